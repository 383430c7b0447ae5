package product

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"github.com/romana/rlog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

// ImageLookupMethod resolves a stock image URL for a search query, will be
// mocked in unit test cases.
type ImageLookupMethod func(query string) string

type HandlerContext struct {
	db                *gorm.DB
	imageLookup       ImageLookupMethod
	UnsplashAccessKey string
	UnsplashSearchUrl string
}

// ProductDetail is a product row joined with its owning business.
type ProductDetail struct {
	model.Product
	BusinessName  *string `json:"business_name"`
	BusinessLogo  *string `json:"business_logo"`
	BusinessImage *string `json:"business_image"`
}

type CreateProductRequest struct {
	BusinessId         uint           `json:"business_id"`
	Name               string         `json:"name"`
	Description        *string        `json:"description"`
	Price              float64        `json:"price"`
	OriginalPrice      *float64       `json:"original_price"`
	Category           string         `json:"category"`
	ImageUrl           *string        `json:"image_url"`
	Images             datatypes.JSON `json:"images"`
	Video              *string        `json:"video"`
	StockQuantity      *int           `json:"stock_quantity"`
	InStock            *bool          `json:"in_stock"`
	IsActive           *bool          `json:"is_active"`
	IsFeatured         *bool          `json:"is_featured"`
	Promotional        *bool          `json:"promotional"`
	AdOnly             *bool          `json:"ad_only"`
	DiscountPercentage *float64       `json:"discount_percentage"`
}

type UpdateProductRequest struct {
	Id uint `json:"id"`
	CreateProductRequest
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB, imageLookup ImageLookupMethod, unsplashAccessKey string) {
	ctx.db = db
	ctx.UnsplashAccessKey = unsplashAccessKey
	ctx.UnsplashSearchUrl = constants.UNSPLASH_SEARCH_URL
	if imageLookup == nil {
		imageLookup = ctx.LookupUnsplashImage
	}
	ctx.imageLookup = imageLookup
}

// HandleProducts serves /api/products for all four methods.
func (ctx *HandlerContext) HandleProducts(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}, w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ctx.queryProducts(w, r)
	case http.MethodPost:
		ctx.createProduct(w, r)
	case http.MethodPut:
		ctx.updateProduct(w, r)
	case http.MethodDelete:
		ctx.deleteProduct(w, r)
	}
}

const productJoinSelect = "products.*, b.name AS business_name, b.logo_url AS business_logo, b.image_url AS business_image"

func (ctx *HandlerContext) queryProducts(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	businessId := r.URL.Query().Get("businessId")

	if id != "" {
		productId, err := strconv.Atoi(id)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}
		detail := ProductDetail{}
		result := ctx.db.Model(&model.Product{}).
			Select(productJoinSelect).
			Joins("LEFT JOIN businesses b ON products.business_id = b.id").
			Where("products.id = ?", productId).
			First(&detail)
		if result.Error != nil {
			util.WriteError(w, http.StatusNotFound, constants.PRODUCT_NOT_FOUND)
			return
		}
		util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "product": detail})
		return
	}

	details := make([]ProductDetail, 0)
	query := ctx.db.Model(&model.Product{}).
		Select(productJoinSelect).
		Joins("LEFT JOIN businesses b ON products.business_id = b.id").
		Order("products.created_at DESC")
	if businessId != "" {
		businessIdInt, err := strconv.Atoi(businessId)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid business ID")
			return
		}
		query = query.Where("products.business_id = ?", businessIdInt)
	}
	if errDb := query.Find(&details).Error; errDb != nil {
		rlog.Error("Fetch products failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "products": details})
}

func (ctx *HandlerContext) createProduct(w http.ResponseWriter, r *http.Request) {
	req := CreateProductRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Validate payload
	if req.BusinessId == 0 || req.Name == "" || req.Price == 0 || req.Category == "" {
		util.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	// Auto-generate an image when none was supplied
	imageUrl := req.ImageUrl
	if imageUrl == nil || *imageUrl == "" {
		searchQuery := req.Name
		if req.Description != nil && *req.Description != "" {
			searchQuery = req.Name + " " + *req.Description
			if len(searchQuery) > 100 {
				searchQuery = searchQuery[:100]
			}
		}
		imageUrl = util.GetStringPtr(ctx.imageLookup(searchQuery))
	}

	// Unspecified stock means sellable, not sold out
	stockQuantity := constants.DEFAULT_STOCK_QUANTITY
	if req.StockQuantity != nil {
		stockQuantity = *req.StockQuantity
	}
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}

	originalPrice := req.Price
	if req.OriginalPrice != nil {
		originalPrice = *req.OriginalPrice
	}

	newProduct := model.Product{
		BusinessId:         req.BusinessId,
		Name:               req.Name,
		Description:        req.Description,
		Price:              req.Price,
		OriginalPrice:      &originalPrice,
		Category:           req.Category,
		ImageUrl:           imageUrl,
		Images:             req.Images,
		Video:              req.Video,
		StockQuantity:      stockQuantity,
		Stock:              stockQuantity,
		InStock:            inStock,
		IsActive:           req.IsActive == nil || *req.IsActive,
		IsFeatured:         req.IsFeatured != nil && *req.IsFeatured,
		Promotional:        req.Promotional != nil && *req.Promotional,
		AdOnly:             req.AdOnly != nil && *req.AdOnly,
		DiscountPercentage: floatOrZero(req.DiscountPercentage),
	}

	if errDb := ctx.db.Create(&newProduct).Error; errDb != nil {
		rlog.Error("Create product failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "product": newProduct})
}

func (ctx *HandlerContext) updateProduct(w http.ResponseWriter, r *http.Request) {
	req := UpdateProductRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Id == 0 {
		util.WriteError(w, http.StatusBadRequest, "Product ID is required")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != 0 {
		updates["price"] = req.Price
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.ImageUrl != nil {
		updates["image_url"] = *req.ImageUrl
	}
	if req.Images != nil {
		updates["images"] = req.Images
	}
	if req.Video != nil {
		updates["video"] = *req.Video
	}
	if req.StockQuantity != nil {
		// A fresh stock count also settles availability
		updates["stock_quantity"] = *req.StockQuantity
		updates["stock"] = *req.StockQuantity
		updates["in_stock"] = *req.StockQuantity > 0
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}
	if req.Promotional != nil {
		updates["promotional"] = *req.Promotional
	}
	if req.AdOnly != nil {
		updates["ad_only"] = *req.AdOnly
	}
	if req.DiscountPercentage != nil {
		updates["discount_percentage"] = *req.DiscountPercentage
	}

	if len(updates) > 0 {
		result := ctx.db.Model(&model.Product{}).Where("id = ?", req.Id).Updates(updates)
		if result.Error != nil {
			rlog.Error("Update product failed: ", result.Error.Error())
			util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
			return
		}
		if result.RowsAffected == 0 {
			util.WriteError(w, http.StatusNotFound, constants.PRODUCT_NOT_FOUND)
			return
		}
	}

	updated := model.Product{}
	if errDb := ctx.db.Where("id = ?", req.Id).First(&updated).Error; errDb != nil {
		util.WriteError(w, http.StatusNotFound, constants.PRODUCT_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "product": updated})
}

func (ctx *HandlerContext) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	productId, err := strconv.Atoi(id)
	if err != nil || id == "" {
		util.WriteError(w, http.StatusBadRequest, "Product ID is required")
		return
	}

	result := ctx.db.Where("id = ?", productId).Delete(&model.Product{})
	if result.Error != nil {
		rlog.Error("Delete product failed: ", result.Error.Error())
		util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		util.WriteError(w, http.StatusNotFound, constants.PRODUCT_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Product deleted successfully"})
}

// HandleStorefrontProducts serves /api/businesses/products?businessId=, the
// customer-facing listing. Ad-only items are excluded, and any product missing
// an image gets a synthesized one persisted back.
func (ctx *HandlerContext) HandleStorefrontProducts(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet}, w, r) {
		return
	}
	businessId, err := strconv.Atoi(r.URL.Query().Get("businessId"))
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid business ID")
		return
	}

	products := make([]model.Product, 0)
	errDb := ctx.db.
		Where("business_id = ? AND (ad_only = false OR ad_only IS NULL) AND is_active = ?", businessId, true).
		Order("created_at DESC").
		Find(&products).Error
	if errDb != nil {
		rlog.Error("Fetch storefront products failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	for i := range products {
		if products[i].ImageUrl != nil && *products[i].ImageUrl != "" {
			continue
		}
		searchQuery := products[i].Name
		if products[i].Description != nil {
			searchQuery += " " + *products[i].Description
		}
		imageUrl := constants.UNSPLASH_SOURCE_URL + url.QueryEscape(searchQuery)
		errUpd := ctx.db.Model(&model.Product{}).Where("id = ?", products[i].ID).
			Update("image_url", imageUrl).Error
		if errUpd != nil {
			rlog.Error("Persist generated image failed: ", errUpd.Error())
			continue
		}
		products[i].ImageUrl = &imageUrl
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "products": products})
}

// LookupUnsplashImage queries the Unsplash search API, any failure falls back
// to a generic product image.
func (ctx *HandlerContext) LookupUnsplashImage(query string) string {
	if ctx.UnsplashAccessKey == "" {
		return constants.FALLBACK_PRODUCT_IMAGE
	}
	imageUrl, err := ctx.searchUnsplash(query)
	if err != nil {
		rlog.Error("Unsplash lookup failed: ", err.Error())
		return constants.FALLBACK_PRODUCT_IMAGE
	}
	return imageUrl
}

func (ctx *HandlerContext) searchUnsplash(query string) (string, error) {
	r, err := http.NewRequest(http.MethodGet, ctx.UnsplashSearchUrl+"?per_page=1&query="+url.QueryEscape(query), nil)
	if err != nil {
		return "", err
	}
	r.Header.Add("Authorization", "Client-ID "+ctx.UnsplashAccessKey)
	response, err := http.DefaultClient.Do(r)
	if err != nil {
		return "", errors.Wrap(err, "call unsplash")
	}
	defer response.Body.Close()

	respObj := struct {
		Results []struct {
			Urls struct {
				Regular string `json:"regular"`
			} `json:"urls"`
		} `json:"results"`
	}{}
	if err := json.NewDecoder(response.Body).Decode(&respObj); err != nil {
		return "", errors.Wrap(err, "decode unsplash response")
	}
	if len(respObj.Results) == 0 {
		return constants.FALLBACK_PRODUCT_IMAGE, nil
	}
	return respObj.Results[0].Urls.Regular, nil
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
