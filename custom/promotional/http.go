package promotional

import (
	"net/http"

	"github.com/romana/rlog"
	"gorm.io/gorm"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

type HandlerContext struct {
	db *gorm.DB
}

type ValidateCodeRequest struct {
	Code   string      `json:"code"`
	UserId util.FlexId `json:"userId"`
}

type MarkUsedRequest struct {
	Code string `json:"code"`
}

// PromoCodeRow is a promotional code joined with its business name.
type PromoCodeRow struct {
	model.PromotionalCode
	BusinessName *string `json:"business_name"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB) {
	ctx.db = db
}

// HandleValidate serves POST /api/promotional/validate. Code matching is
// case-insensitive, the validity window is open-ended on NULL bounds.
func (ctx *HandlerContext) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodPost}, w, r) {
		return
	}
	req := ValidateCodeRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		util.WriteError(w, http.StatusBadRequest, "Promotional code is required")
		return
	}

	rows := make([]PromoCodeRow, 0)
	errDb := ctx.db.Raw(`SELECT pc.*, b.name AS business_name
FROM promotional_codes pc
LEFT JOIN businesses b ON pc.business_id = b.id
WHERE UPPER(pc.code) = UPPER(?)
AND pc.is_active = true
AND (pc.valid_from IS NULL OR pc.valid_from <= NOW())
AND (pc.valid_until IS NULL OR pc.valid_until >= NOW())`, req.Code).Scan(&rows).Error
	if errDb != nil {
		rlog.Error("Validate promotional code failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	if len(rows) == 0 {
		util.WriteError(w, http.StatusNotFound, constants.PROMO_CODE_INVALID)
		return
	}
	promoCode := rows[0]

	// Global cap first
	if promoCode.UsageLimit != nil && promoCode.UsedCount >= *promoCode.UsageLimit {
		util.WriteError(w, http.StatusBadRequest, constants.PROMO_CODE_EXHAUSTED)
		return
	}

	// Then the per-user cap, counted from this user's prior orders
	if req.UserId != "" && promoCode.MaxUsesPerUser != nil {
		var userUsageCount int64
		errDb := ctx.db.Model(&model.Order{}).
			Where("user_id = ? AND discount_code = ?", req.UserId.String(), req.Code).
			Count(&userUsageCount).Error
		if errDb != nil {
			rlog.Error("Count prior code usage failed: ", errDb.Error())
			util.WriteError(w, http.StatusInternalServerError, errDb.Error())
			return
		}
		if userUsageCount >= int64(*promoCode.MaxUsesPerUser) {
			util.WriteError(w, http.StatusBadRequest, constants.PROMO_CODE_USER_LIMIT)
			return
		}
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "code": promoCode})
}

// HandleMarkUsed serves POST /api/promotional/mark-used. The increment carries
// a used_count < usage_limit guard so two racing redemptions of a nearly
// exhausted code cannot both get through.
func (ctx *HandlerContext) HandleMarkUsed(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodPost}, w, r) {
		return
	}
	req := MarkUsedRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		util.WriteError(w, http.StatusBadRequest, "Promotional code is required")
		return
	}

	result := ctx.db.Exec(`UPDATE promotional_codes
SET used_count = used_count + 1, updated_at = NOW()
WHERE UPPER(code) = UPPER(?)
AND (usage_limit IS NULL OR used_count < usage_limit)`, req.Code)
	if result.Error != nil {
		rlog.Error("Mark promotional code used failed: ", result.Error.Error())
		util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		// Either the code does not exist or it is already at its limit
		existing := make([]model.PromotionalCode, 0)
		if errDb := ctx.db.Where("UPPER(code) = UPPER(?)", req.Code).Limit(1).Find(&existing).Error; errDb != nil {
			util.WriteError(w, http.StatusInternalServerError, errDb.Error())
			return
		}
		if len(existing) == 0 {
			util.WriteError(w, http.StatusNotFound, constants.PROMO_CODE_NOT_FOUND)
			return
		}
		util.WriteError(w, http.StatusBadRequest, constants.PROMO_CODE_EXHAUSTED)
		return
	}

	updated := make([]model.PromotionalCode, 0)
	if errDb := ctx.db.Where("UPPER(code) = UPPER(?)", req.Code).Limit(1).Find(&updated).Error; errDb != nil || len(updated) == 0 {
		util.WriteError(w, http.StatusNotFound, constants.PROMO_CODE_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "code": updated[0]})
}
