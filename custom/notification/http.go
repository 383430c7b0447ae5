package notification

import (
	"net/http"

	"github.com/romana/rlog"
	"gorm.io/gorm"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

type HandlerContext struct {
	db      *gorm.DB
	Email   *EmailSender
	PushUrl string
}

type SendEmailRequest struct {
	Type          string      `json:"type"`
	OrderId       util.FlexId `json:"orderId"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerName  string      `json:"customerName"`
	OrderNumber   string      `json:"orderNumber"`
	Status        string      `json:"status"`
	TrackingUrl   string      `json:"trackingUrl"`
}

type SendPushRequest struct {
	UserId  *util.FlexId  `json:"userId"`
	UserIds []util.FlexId `json:"userIds"`
	Title   string        `json:"title"`
	Body    string        `json:"body"`
	Data    interface{}   `json:"data"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB, email *EmailSender) {
	ctx.db = db
	ctx.Email = email
	ctx.PushUrl = constants.EXPO_PUSH_URL
}

// HandleEmail serves POST /api/notifications/email. The type field selects
// the template; dispatch failures come back as a 200 with success false so
// callers can treat mail as best effort.
func (ctx *HandlerContext) HandleEmail(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodPost}, w, r) {
		return
	}
	req := SendEmailRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Type {
	case "order_confirmation":
		ctx.sendOrderConfirmation(w, &req)
	case "shipping_update":
		ctx.sendShippingUpdate(w, &req)
	default:
		util.WriteError(w, http.StatusBadRequest, "Unknown email type")
	}
}

func (ctx *HandlerContext) sendOrderConfirmation(w http.ResponseWriter, req *SendEmailRequest) {
	if req.OrderId == "" {
		util.WriteError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	orders := make([]model.Order, 0)
	if errDb := ctx.db.Where("id = ?", req.OrderId.String()).Limit(1).Find(&orders).Error; errDb != nil {
		rlog.Error("Fetch order for email failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}
	if len(orders) == 0 {
		util.WriteError(w, http.StatusNotFound, constants.ORDER_NOT_FOUND)
		return
	}

	result, err := ctx.Email.SendOrderConfirmation(&orders[0])
	if err != nil {
		rlog.Error("Send order confirmation failed: ", err.Error())
	}
	util.WriteJson(w, http.StatusOK, result)
}

func (ctx *HandlerContext) sendShippingUpdate(w http.ResponseWriter, req *SendEmailRequest) {
	if req.CustomerEmail == "" || req.OrderNumber == "" || req.Status == "" {
		util.WriteError(w, http.StatusBadRequest, "customerEmail, orderNumber and status are required")
		return
	}
	customerName := req.CustomerName
	if customerName == "" {
		customerName = "Customer"
	}

	result, err := ctx.Email.SendShippingUpdate(req.CustomerEmail, customerName, req.OrderNumber, req.Status, req.TrackingUrl)
	if err != nil {
		rlog.Error("Send shipping update failed: ", err.Error())
	}
	util.WriteJson(w, http.StatusOK, result)
}

// HandleSendPush serves POST /api/notifications/send-push. Accepts either a
// single userId or a userIds list.
func (ctx *HandlerContext) HandleSendPush(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodPost}, w, r) {
		return
	}
	req := SendPushRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.Body == "" {
		util.WriteError(w, http.StatusBadRequest, "Title and body are required")
		return
	}

	if len(req.UserIds) > 0 {
		userIds := make([]int64, 0, len(req.UserIds))
		for _, flexId := range req.UserIds {
			id, err := flexId.Int64()
			if err != nil {
				util.WriteError(w, http.StatusBadRequest, "Invalid userIds entry")
				return
			}
			userIds = append(userIds, id)
		}
		util.WriteJson(w, http.StatusOK, ctx.SendPushToMultipleUsers(userIds, req.Title, req.Body, req.Data))
		return
	}

	if req.UserId == nil || *req.UserId == "" {
		util.WriteError(w, http.StatusBadRequest, "userId or userIds is required")
		return
	}
	userId, err := req.UserId.Int64()
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid userId")
		return
	}
	util.WriteJson(w, http.StatusOK, ctx.SendPushToUser(userId, req.Title, req.Body, req.Data))
}
