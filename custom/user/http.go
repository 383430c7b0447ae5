package user

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

type CreateUserRequest struct {
	Email          string  `json:"email"`
	Name           *string `json:"name"`
	Phone          *string `json:"phone"`
	FirebaseUid    *string `json:"firebase_uid"`
	IsBusinessUser *bool   `json:"is_business_user"`
	PhotoUrl       *string `json:"photo_url"`
}

type UpdateUserRequest struct {
	Email       string  `json:"email"`
	FirebaseUid *string `json:"firebase_uid"`
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	PostalCode  *string `json:"postal_code"`
	PhotoUrl    *string `json:"photo_url"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB) {
	ctx.db = db
}

// HandleUsers serves /api/users. Users are keyed by email or Firebase UID,
// UID wins when both are present.
func (ctx *HandlerContext) HandleUsers(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPost, http.MethodPut}, w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ctx.queryUser(w, r)
	case http.MethodPost:
		ctx.createUser(w, r)
	case http.MethodPut:
		ctx.updateUser(w, r)
	}
}

func (ctx *HandlerContext) queryUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	firebaseUid := r.URL.Query().Get("firebase_uid")
	if firebaseUid == "" {
		firebaseUid = r.URL.Query().Get("firebaseUid")
	}
	if email == "" && firebaseUid == "" {
		util.WriteError(w, http.StatusBadRequest, "Email or firebase_uid is required")
		return
	}

	users := make([]model.User, 0)
	var errDb error
	if firebaseUid != "" {
		errDb = ctx.db.Where("firebase_uid = ?", firebaseUid).Limit(1).Find(&users).Error
	} else {
		errDb = ctx.db.Where("email = ?", email).Limit(1).Find(&users).Error
	}
	if errDb != nil {
		rlog.Error("Fetch user failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	if len(users) == 0 {
		util.WriteError(w, http.StatusNotFound, constants.USER_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "user": users[0]})
}

// Upsert by identity. An existing row is returned untouched, no field merge.
func (ctx *HandlerContext) createUser(w http.ResponseWriter, r *http.Request) {
	req := CreateUserRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" {
		util.WriteError(w, http.StatusBadRequest, "Email is required")
		return
	}

	existing := make([]model.User, 0)
	var errDb error
	if req.FirebaseUid != nil && *req.FirebaseUid != "" {
		errDb = ctx.db.Where("email = ? OR firebase_uid = ?", req.Email, *req.FirebaseUid).Limit(1).Find(&existing).Error
	} else {
		errDb = ctx.db.Where("email = ?", req.Email).Limit(1).Find(&existing).Error
	}
	if errDb != nil {
		rlog.Error("Check existing user failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	if len(existing) > 0 {
		util.WriteJson(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user":    existing[0],
			"message": "User already exists",
		})
		return
	}

	isBusinessUser := req.IsBusinessUser != nil && *req.IsBusinessUser
	userType := "customer"
	if isBusinessUser {
		userType = "business_owner"
	}
	newUser := model.User{
		Email:          req.Email,
		Name:           req.Name,
		Phone:          req.Phone,
		PhotoUrl:       req.PhotoUrl,
		FirebaseUid:    req.FirebaseUid,
		Type:           userType,
		IsBusinessUser: isBusinessUser,
	}
	if errDb := ctx.db.Create(&newUser).Error; errDb != nil {
		rlog.Error("Create user failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    newUser,
		"message": "User created successfully",
	})
}

func (ctx *HandlerContext) updateUser(w http.ResponseWriter, r *http.Request) {
	req := UpdateUserRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" && (req.FirebaseUid == nil || *req.FirebaseUid == "") {
		util.WriteError(w, http.StatusBadRequest, "Email or firebase_uid is required")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	// Address pieces may be cleared on purpose, empty strings go through
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.State != nil {
		updates["state"] = *req.State
	}
	if req.PostalCode != nil {
		updates["postal_code"] = *req.PostalCode
	}
	if req.PhotoUrl != nil && *req.PhotoUrl != "" {
		updates["photo_url"] = *req.PhotoUrl
	}
	if len(updates) == 0 {
		util.WriteError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	query := ctx.db.Model(&model.User{})
	if req.FirebaseUid != nil && *req.FirebaseUid != "" {
		query = query.Where("firebase_uid = ?", *req.FirebaseUid)
	} else {
		query = query.Where("email = ?", req.Email)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		rlog.Error("Update user failed: ", result.Error.Error())
		util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		util.WriteError(w, http.StatusNotFound, constants.USER_NOT_FOUND)
		return
	}

	updated := make([]model.User, 0)
	if req.FirebaseUid != nil && *req.FirebaseUid != "" {
		ctx.db.Where("firebase_uid = ?", *req.FirebaseUid).Limit(1).Find(&updated)
	} else {
		ctx.db.Where("email = ?", req.Email).Limit(1).Find(&updated)
	}
	if len(updated) == 0 {
		util.WriteError(w, http.StatusNotFound, constants.USER_NOT_FOUND)
		return
	}
	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    updated[0],
		"message": "User updated successfully",
	})
}
