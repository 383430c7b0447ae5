package business

import (
	"net/http"
	"strconv"

	"github.com/romana/rlog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

type HandlerContext struct {
	db *gorm.DB
}

type CreateBusinessRequest struct {
	Name              string         `json:"name"`
	Description       *string        `json:"description"`
	OwnerId           util.FlexId    `json:"owner_id"`
	LogoUrl           *string        `json:"logo_url"`
	BannerUrl         *string        `json:"banner_url"`
	ImageUrl          *string        `json:"image_url"`
	Address           *string        `json:"address"`
	Phone             *string        `json:"phone"`
	Email             *string        `json:"email"`
	Website           *string        `json:"website"`
	Categories        datatypes.JSON `json:"categories"`
	IsActive          *bool          `json:"is_active"`
	DeliveryOptions   *string        `json:"delivery_options"`
	PaymentMethods    datatypes.JSON `json:"payment_methods"`
	DeliveryFee       *float64       `json:"delivery_fee"`
	MinimumOrder      *float64       `json:"minimum_order"`
	DeliveryTime      *string        `json:"delivery_time"`
	SpinWheelEnabled  *bool          `json:"spin_wheel_enabled"`
	SpinDiscountType  *string        `json:"spin_discount_type"`
	SpinDiscountValue *float64       `json:"spin_discount_value"`
}

type UpdateBusinessRequest struct {
	Id uint `json:"id"`
	CreateBusinessRequest
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB) {
	ctx.db = db
}

// HandleBusinesses serves /api/businesses for all four methods.
func (ctx *HandlerContext) HandleBusinesses(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}, w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ctx.queryBusinesses(w, r)
	case http.MethodPost:
		ctx.createBusiness(w, r)
	case http.MethodPut:
		ctx.updateBusiness(w, r)
	case http.MethodDelete:
		ctx.deleteBusiness(w, r)
	}
}

// Query by id, by owner, or all active. Missing ratings default to 4.5.
func (ctx *HandlerContext) queryBusinesses(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	ownerId := r.URL.Query().Get("ownerId")

	businesses := make([]model.Business, 0)
	var errDb error
	if id != "" {
		businessId, err := strconv.Atoi(id)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid business ID")
			return
		}
		errDb = ctx.db.Where("id = ?", businessId).Find(&businesses).Error
	} else if ownerId != "" {
		// Owner may be a numeric id or a Firebase UID string
		errDb = ctx.db.Where("owner_id = ?", ownerId).Order("created_at DESC").Find(&businesses).Error
	} else {
		errDb = ctx.db.Where("is_active = ?", true).Order("created_at DESC").Find(&businesses).Error
	}
	if errDb != nil {
		rlog.Error("Fetch businesses failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	for i := range businesses {
		if businesses[i].Rating == nil {
			businesses[i].Rating = util.GetFloatPtr(constants.DEFAULT_RATING)
		}
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "businesses": businesses})
}

func (ctx *HandlerContext) createBusiness(w http.ResponseWriter, r *http.Request) {
	req := CreateBusinessRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Validate payload
	if req.Name == "" || req.OwnerId == "" {
		util.WriteError(w, http.StatusBadRequest, "Name and owner_id are required")
		return
	}

	newBusiness := model.Business{
		Name:              req.Name,
		Description:       req.Description,
		OwnerId:           req.OwnerId.String(),
		LogoUrl:           orPlaceholder(req.LogoUrl),
		BannerUrl:         orPlaceholder(req.BannerUrl),
		ImageUrl:          orPlaceholder(req.ImageUrl),
		Address:           req.Address,
		Phone:             req.Phone,
		Email:             req.Email,
		Website:           req.Website,
		Categories:        req.Categories,
		IsActive:          req.IsActive == nil || *req.IsActive,
		DeliveryOptions:   req.DeliveryOptions,
		PaymentMethods:    req.PaymentMethods,
		DeliveryFee:       req.DeliveryFee,
		MinimumOrder:      req.MinimumOrder,
		DeliveryTime:      req.DeliveryTime,
		SpinWheelEnabled:  req.SpinWheelEnabled != nil && *req.SpinWheelEnabled,
		SpinDiscountType:  req.SpinDiscountType,
		SpinDiscountValue: req.SpinDiscountValue,
	}

	if errDb := ctx.db.Create(&newBusiness).Error; errDb != nil {
		rlog.Error("Create business failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "business": newBusiness})
}

// Partial update, only the supplied fields are written.
func (ctx *HandlerContext) updateBusiness(w http.ResponseWriter, r *http.Request) {
	req := UpdateBusinessRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Id == 0 {
		util.WriteError(w, http.StatusBadRequest, "Business ID is required")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.LogoUrl != nil {
		updates["logo_url"] = *req.LogoUrl
	}
	if req.BannerUrl != nil {
		updates["banner_url"] = *req.BannerUrl
	}
	if req.ImageUrl != nil {
		updates["image_url"] = *req.ImageUrl
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Categories != nil {
		updates["categories"] = req.Categories
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.DeliveryOptions != nil {
		updates["delivery_options"] = *req.DeliveryOptions
	}
	if req.PaymentMethods != nil {
		updates["payment_methods"] = req.PaymentMethods
	}
	if req.DeliveryFee != nil {
		updates["delivery_fee"] = *req.DeliveryFee
	}
	if req.MinimumOrder != nil {
		updates["minimum_order"] = *req.MinimumOrder
	}
	if req.DeliveryTime != nil {
		updates["delivery_time"] = *req.DeliveryTime
	}
	if req.SpinWheelEnabled != nil {
		updates["spin_wheel_enabled"] = *req.SpinWheelEnabled
	}
	if req.SpinDiscountType != nil {
		updates["spin_discount_type"] = *req.SpinDiscountType
	}
	if req.SpinDiscountValue != nil {
		updates["spin_discount_value"] = *req.SpinDiscountValue
	}

	if len(updates) > 0 {
		result := ctx.db.Model(&model.Business{}).Where("id = ?", req.Id).Updates(updates)
		if result.Error != nil {
			rlog.Error("Update business failed: ", result.Error.Error())
			util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
			return
		}
		if result.RowsAffected == 0 {
			util.WriteError(w, http.StatusNotFound, constants.BUSINESS_NOT_FOUND)
			return
		}
	}

	updated := model.Business{}
	if errDb := ctx.db.Where("id = ?", req.Id).First(&updated).Error; errDb != nil {
		util.WriteError(w, http.StatusNotFound, constants.BUSINESS_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "business": updated})
}

func (ctx *HandlerContext) deleteBusiness(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	businessId, err := strconv.Atoi(id)
	if err != nil || id == "" {
		util.WriteError(w, http.StatusBadRequest, "Business ID is required")
		return
	}

	result := ctx.db.Where("id = ?", businessId).Delete(&model.Business{})
	if result.Error != nil {
		rlog.Error("Delete business failed: ", result.Error.Error())
		util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		util.WriteError(w, http.StatusNotFound, constants.BUSINESS_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Business deleted successfully"})
}

// HandleBusinessDetail serves /api/businesses/detail?businessId=, the combined
// business-plus-products view.
func (ctx *HandlerContext) HandleBusinessDetail(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet}, w, r) {
		return
	}
	businessId, err := strconv.Atoi(r.URL.Query().Get("businessId"))
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid business ID")
		return
	}

	businessInfo := model.Business{}
	if errDb := ctx.db.Where("id = ?", businessId).First(&businessInfo).Error; errDb != nil {
		util.WriteError(w, http.StatusNotFound, constants.BUSINESS_NOT_FOUND)
		return
	}
	if businessInfo.Rating == nil {
		businessInfo.Rating = util.GetFloatPtr(constants.DEFAULT_RATING)
	}

	products := make([]model.Product, 0)
	if errDb := ctx.db.Where("business_id = ?", businessId).Find(&products).Error; errDb != nil {
		rlog.Error("Fetch business products failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"business": businessInfo,
		"products": products,
	})
}

// HandlePromotional serves /api/businesses/promotional, the promotional browse tab.
func (ctx *HandlerContext) HandlePromotional(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet}, w, r) {
		return
	}
	businesses := make([]model.Business, 0)
	if errDb := ctx.db.Where("is_active = ?", true).Order("created_at DESC").Find(&businesses).Error; errDb != nil {
		rlog.Error("Fetch promotional businesses failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	for i := range businesses {
		if businesses[i].Rating == nil {
			businesses[i].Rating = util.GetFloatPtr(constants.DEFAULT_RATING)
		}
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "businesses": businesses})
}

func orPlaceholder(url *string) *string {
	if url == nil || *url == "" {
		return util.GetStringPtr(constants.PLACEHOLDER_BUSINESS_IMAGE)
	}
	return url
}
