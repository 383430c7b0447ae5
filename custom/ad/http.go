package ad

import (
	"net/http"
	"strconv"

	"github.com/romana/rlog"
	"gorm.io/gorm"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

type HandlerContext struct {
	db *gorm.DB
}

type AdProductRef struct {
	ProductId  uint    `json:"product_id"`
	SpecialTag *string `json:"special_tag"`
}

type UpsertAdRequest struct {
	BusinessId  uint           `json:"business_id"`
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Products    []AdProductRef `json:"products"`
}

// AdSummary is an ad row joined with its business.
type AdSummary struct {
	model.Ad
	BusinessName *string `json:"business_name"`
	BusinessLogo *string `json:"business_logo"`
}

// AdProductSummary is one aggregated product entry inside an ad response.
type AdProductSummary struct {
	Id           uint    `json:"id"`
	ProductId    uint    `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	ProductImage string  `json:"product_image"`
	SpecialTag   *string `json:"special_tag"`
	IsAdOnly     bool    `json:"is_ad_only"`
}

// AdProductDetail carries the full product rows for the ad detail view.
type AdProductDetail struct {
	Id                 uint    `json:"id"`
	ProductId          uint    `json:"product_id"`
	ProductName        string  `json:"product_name"`
	ProductDescription *string `json:"product_description"`
	ProductPrice       float64 `json:"product_price"`
	ProductStock       int     `json:"product_stock"`
	ProductImage       *string `json:"product_image"`
	SpecialTag         string  `json:"special_tag"`
	BusinessId         uint    `json:"business_id"`
	BusinessName       *string `json:"business_name"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB) {
	ctx.db = db
}

const adJoinSelect = "ads.*, b.name AS business_name, b.logo_url AS business_logo"

const adProductSummarySQL = `SELECT ap.id, ap.product_id, p.name AS product_name, p.price AS product_price,
COALESCE(p.image_url, ?) AS product_image, ap.special_tag, p.ad_only AS is_ad_only
FROM ad_products ap JOIN products p ON ap.product_id = p.id WHERE ap.ad_id = ?`

// HandleAds serves /api/ads (GET by business or all active, POST create).
func (ctx *HandlerContext) HandleAds(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPost}, w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ctx.queryAds(w, r)
	case http.MethodPost:
		ctx.createAd(w, r)
	}
}

func (ctx *HandlerContext) queryAds(w http.ResponseWriter, r *http.Request) {
	businessId := r.URL.Query().Get("businessId")

	if businessId != "" {
		businessIdInt, err := strconv.Atoi(businessId)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid business ID")
			return
		}
		ads := make([]AdSummary, 0)
		errDb := ctx.db.Model(&model.Ad{}).
			Select(adJoinSelect).
			Joins("LEFT JOIN businesses b ON ads.business_id = b.id").
			Where("ads.business_id = ?", businessIdInt).
			Order("ads.created_at DESC").
			Limit(1).
			Find(&ads).Error
		if errDb != nil {
			rlog.Error("Fetch business ad failed: ", errDb.Error())
			util.WriteError(w, http.StatusInternalServerError, errDb.Error())
			return
		}
		// No ad is a valid answer for this route, not a 404
		if len(ads) == 0 {
			util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "ad": nil})
			return
		}
		adWithProducts, errAgg := ctx.aggregateAdProducts(ads[0])
		if errAgg != nil {
			util.WriteError(w, http.StatusInternalServerError, errAgg.Error())
			return
		}
		util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "ad": adWithProducts})
		return
	}

	ads := make([]AdSummary, 0)
	errDb := ctx.db.Model(&model.Ad{}).
		Select(adJoinSelect).
		Joins("LEFT JOIN businesses b ON ads.business_id = b.id").
		Where("ads.is_active = ?", true).
		Order("ads.created_at DESC").
		Find(&ads).Error
	if errDb != nil {
		rlog.Error("Fetch ads failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	adList := make([]map[string]interface{}, 0, len(ads))
	for _, adInfo := range ads {
		adWithProducts, errAgg := ctx.aggregateAdProducts(adInfo)
		if errAgg != nil {
			util.WriteError(w, http.StatusInternalServerError, errAgg.Error())
			return
		}
		adList = append(adList, adWithProducts)
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "ads": adList})
}

func (ctx *HandlerContext) aggregateAdProducts(adInfo AdSummary) (map[string]interface{}, error) {
	products := make([]AdProductSummary, 0)
	errDb := ctx.db.Raw(adProductSummarySQL, constants.FALLBACK_AD_PRODUCT_IMAGE, adInfo.ID).Scan(&products).Error
	if errDb != nil {
		rlog.Error("Aggregate ad products failed: ", errDb.Error())
		return nil, errDb
	}
	return map[string]interface{}{
		"id":            adInfo.ID,
		"business_id":   adInfo.BusinessId,
		"title":         adInfo.Title,
		"description":   adInfo.Description,
		"discount_text": adInfo.DiscountText,
		"is_active":     adInfo.IsActive,
		"created_at":    adInfo.CreatedAt,
		"updated_at":    adInfo.UpdatedAt,
		"business_name": adInfo.BusinessName,
		"business_logo": adInfo.BusinessLogo,
		"products":      products,
	}, nil
}

// A business gets one ad. The check is a pre-insert SELECT, then the ad and
// its product rows go in as a single transaction.
func (ctx *HandlerContext) createAd(w http.ResponseWriter, r *http.Request) {
	req := UpsertAdRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BusinessId == 0 || req.Title == "" {
		util.WriteError(w, http.StatusBadRequest, "Business ID and title are required")
		return
	}

	existing := make([]model.Ad, 0)
	errDb := ctx.db.Where("business_id = ?", req.BusinessId).Limit(1).Find(&existing).Error
	if errDb != nil {
		rlog.Error("Check existing ad failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	if len(existing) > 0 {
		util.WriteError(w, http.StatusBadRequest, constants.BUSINESS_HAS_AD)
		return
	}

	newAd := model.Ad{
		BusinessId:  req.BusinessId,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    true,
	}
	errDb = ctx.db.Transaction(func(tx *gorm.DB) error {
		if errTx := tx.Create(&newAd).Error; errTx != nil {
			return errTx
		}
		for _, ref := range req.Products {
			adProduct := model.AdProduct{
				AdId:       newAd.ID,
				ProductId:  ref.ProductId,
				SpecialTag: ref.SpecialTag,
			}
			if errTx := tx.Create(&adProduct).Error; errTx != nil {
				return errTx
			}
		}
		return nil
	})
	if errDb != nil {
		rlog.Error("Create ad failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	util.WriteJson(w, http.StatusCreated, map[string]interface{}{"success": true, "ad": newAd})
}

// HandleAdDetail serves /api/ads/detail?id= (GET full detail, PUT replace
// product set, DELETE with ownership check).
func (ctx *HandlerContext) HandleAdDetail(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPut, http.MethodDelete}, w, r) {
		return
	}
	adId, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid ad ID")
		return
	}
	switch r.Method {
	case http.MethodGet:
		ctx.queryAdDetail(w, uint(adId))
	case http.MethodPut:
		ctx.updateAd(w, r, uint(adId))
	case http.MethodDelete:
		ctx.deleteAd(w, r, uint(adId))
	}
}

func (ctx *HandlerContext) queryAdDetail(w http.ResponseWriter, adId uint) {
	adRow := struct {
		model.Ad
		BusinessName  *string `json:"business_name"`
		BusinessImage *string `json:"business_image"`
	}{}
	result := ctx.db.Model(&model.Ad{}).
		Select("ads.*, b.name AS business_name, b.image_url AS business_image").
		Joins("LEFT JOIN businesses b ON ads.business_id = b.id").
		Where("ads.id = ?", adId).
		First(&adRow)
	if result.Error != nil {
		util.WriteError(w, http.StatusNotFound, "Ad not found")
		return
	}

	productRows := make([]AdProductDetail, 0)
	errDb := ctx.db.Raw(`SELECT ap.id, ap.product_id, ap.special_tag, p.name AS product_name,
p.description AS product_description, p.price AS product_price, p.stock AS product_stock,
p.image_url AS product_image, p.business_id, b.name AS business_name
FROM ad_products ap JOIN products p ON ap.product_id = p.id
LEFT JOIN businesses b ON p.business_id = b.id
WHERE ap.ad_id = ? ORDER BY ap.created_at DESC`, adId).Scan(&productRows).Error
	if errDb != nil {
		rlog.Error("Fetch ad products failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ad": map[string]interface{}{
			"id":            adRow.ID,
			"business_id":   adRow.BusinessId,
			"business_name": adRow.BusinessName,
			"title":         adRow.Title,
			"description":   adRow.Description,
			"image":         adRow.BusinessImage,
			"products":      productRows,
		},
	})
}

// Product set replacement is delete-then-reinsert, inside one transaction so a
// failed insert never leaves the ad half-populated.
func (ctx *HandlerContext) updateAd(w http.ResponseWriter, r *http.Request, adId uint) {
	req := UpsertAdRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BusinessId == 0 || req.Title == "" {
		util.WriteError(w, http.StatusBadRequest, "Business ID and title are required")
		return
	}

	// Ownership check is business_id equality, same as the original contract
	result := ctx.db.Model(&model.Ad{}).
		Where("id = ? AND business_id = ?", adId, req.BusinessId).
		Updates(map[string]interface{}{"title": req.Title, "description": req.Description})
	if result.Error != nil {
		rlog.Error("Update ad failed: ", result.Error.Error())
		util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		util.WriteError(w, http.StatusNotFound, constants.AD_NOT_FOUND)
		return
	}

	errDb := ctx.db.Transaction(func(tx *gorm.DB) error {
		if errTx := tx.Where("ad_id = ?", adId).Delete(&model.AdProduct{}).Error; errTx != nil {
			return errTx
		}
		for _, ref := range req.Products {
			adProduct := model.AdProduct{
				AdId:       adId,
				ProductId:  ref.ProductId,
				SpecialTag: ref.SpecialTag,
			}
			if errTx := tx.Create(&adProduct).Error; errTx != nil {
				return errTx
			}
		}
		return nil
	})
	if errDb != nil {
		rlog.Error("Replace ad products failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	updated := model.Ad{}
	if errDb := ctx.db.Where("id = ?", adId).First(&updated).Error; errDb != nil {
		util.WriteError(w, http.StatusNotFound, "Ad not found")
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "ad": updated})
}

func (ctx *HandlerContext) deleteAd(w http.ResponseWriter, r *http.Request, adId uint) {
	businessId := r.URL.Query().Get("businessId")
	if businessId == "" {
		util.WriteError(w, http.StatusBadRequest, "Business ID is required")
		return
	}

	errDb := ctx.db.Transaction(func(tx *gorm.DB) error {
		// Join rows go first, the FK points at the ad
		if errTx := tx.Where("ad_id = ?", adId).Delete(&model.AdProduct{}).Error; errTx != nil {
			return errTx
		}
		result := tx.Where("id = ? AND business_id = ?", adId, businessId).Delete(&model.Ad{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errDb == gorm.ErrRecordNotFound {
		util.WriteError(w, http.StatusNotFound, constants.AD_NOT_FOUND)
		return
	}
	if errDb != nil {
		rlog.Error("Delete ad failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Ad deleted successfully"})
}

// HandleOffers serves /api/offers, every active ad plus that business's
// ad-only products.
func (ctx *HandlerContext) HandleOffers(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet}, w, r) {
		return
	}

	ads := make([]AdSummary, 0)
	errDb := ctx.db.Model(&model.Ad{}).
		Select(adJoinSelect).
		Joins("LEFT JOIN businesses b ON ads.business_id = b.id").
		Where("ads.is_active = ?", true).
		Order("ads.created_at DESC").
		Find(&ads).Error
	if errDb != nil {
		rlog.Error("Fetch offers failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	offers := make([]map[string]interface{}, 0, len(ads))
	for _, adInfo := range ads {
		products := make([]model.Product, 0)
		errDb := ctx.db.
			Where("business_id = ? AND is_active = ? AND ad_only = ?", adInfo.BusinessId, true, true).
			Order("created_at DESC").
			Find(&products).Error
		if errDb != nil {
			rlog.Error("Fetch offer products failed: ", errDb.Error())
			util.WriteError(w, http.StatusInternalServerError, errDb.Error())
			return
		}
		offers = append(offers, map[string]interface{}{
			"id":            adInfo.ID,
			"business_id":   adInfo.BusinessId,
			"title":         adInfo.Title,
			"description":   adInfo.Description,
			"discount_text": adInfo.DiscountText,
			"is_active":     adInfo.IsActive,
			"created_at":    adInfo.CreatedAt,
			"business_name": adInfo.BusinessName,
			"logo_url":      adInfo.BusinessLogo,
			"products":      products,
		})
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "offers": offers})
}
