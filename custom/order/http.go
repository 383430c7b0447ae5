package order

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/romana/rlog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketplace_api/constants"
	"marketplace_api/custom/util"
	"marketplace_api/model"
)

// ConfirmationEmailMethod sends the order confirmation, will be mocked in unit
// test cases.
type ConfirmationEmailMethod func(order *model.Order) error

type HandlerContext struct {
	db                *gorm.DB
	confirmationEmail ConfirmationEmailMethod
}

type CreateOrderRequest struct {
	UserId          util.FlexId     `json:"user_id"`
	BusinessId      uint            `json:"business_id"`
	Items           datatypes.JSON  `json:"items"`
	TotalAmount     float64         `json:"total_amount"`
	Subtotal        float64         `json:"subtotal"`
	ShippingFee     float64         `json:"shipping_fee"`
	DeliveryType    *string         `json:"delivery_type"`
	DeliveryAddress json.RawMessage `json:"delivery_address"`
	PaymentMethod   *string         `json:"payment_method"`
	CustomerName    *string         `json:"customer_name"`
	CustomerEmail   *string         `json:"customer_email"`
	CustomerPhone   *string         `json:"customer_phone"`
	DiscountCode    *string         `json:"discount_code"`
	DiscountAmount  float64         `json:"discount_amount"`
	Notes           *string         `json:"notes"`
}

type UpdateOrderRequest struct {
	OrderId        *util.FlexId `json:"orderId"`
	OrderIdAlt     *util.FlexId `json:"order_id"`
	Status         *string      `json:"status"`
	TrackingNumber *string      `json:"tracking_number"`
}

// OrderDetail is a single order joined with its business.
type OrderDetail struct {
	model.Order
	DeliveryFee    float64 `json:"delivery_fee"`
	BusinessName   *string `json:"business_name"`
	BusinessUserId *string `json:"business_user_id"`
}

// UserOrderRow is one entry of a user's order history, with the first-item
// preview fields filled in from the snapshot.
type UserOrderRow struct {
	model.Order
	DeliveryFee    float64 `json:"delivery_fee"`
	BusinessName   *string `json:"business_name"`
	BusinessLogo   *string `json:"business_logo"`
	ItemsCount     int     `json:"items_count" gorm:"-"`
	FirstItemName  *string `json:"first_item_name" gorm:"-"`
	FirstItemImage *string `json:"first_item_image" gorm:"-"`
}

func (ctx *HandlerContext) InitialHandlerContext(db *gorm.DB, confirmationEmail ConfirmationEmailMethod) {
	ctx.db = db
	ctx.confirmationEmail = confirmationEmail
}

// GenerateOrderNumber builds ORD-<epoch millis>-<random 0..999>. Not globally
// unique, collisions are possible under high-frequency creation.
func GenerateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%d", time.Now().UnixMilli(), rand.Intn(1000))
}

// HandleOrders serves /api/orders (GET lookup modes, POST create, PUT update).
func (ctx *HandlerContext) HandleOrders(w http.ResponseWriter, r *http.Request) {
	if !util.IsAllowHttpMethod([]string{http.MethodGet, http.MethodPost, http.MethodPut}, w, r) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ctx.queryOrders(w, r)
	case http.MethodPost:
		ctx.createOrder(w, r)
	case http.MethodPut:
		ctx.updateOrder(w, r)
	}
}

const orderJoinSelect = "orders.*, orders.shipping_fee AS delivery_fee, b.name AS business_name, b.owner_id AS business_user_id"

// Lookup priority: order_number, then orderId/id, then userId, then businessId.
func (ctx *HandlerContext) queryOrders(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	orderNumber := params.Get("order_number")
	orderIdParam := params.Get("orderId")
	if orderIdParam == "" {
		orderIdParam = params.Get("id")
	}
	userId := params.Get("userId")
	businessId := params.Get("businessId")

	if orderNumber != "" {
		detail := OrderDetail{}
		result := ctx.db.Model(&model.Order{}).
			Select(orderJoinSelect).
			Joins("LEFT JOIN businesses b ON orders.business_id = b.id").
			Where("orders.order_number = ?", orderNumber).
			First(&detail)
		if result.Error != nil {
			util.WriteError(w, http.StatusNotFound, constants.ORDER_NOT_FOUND)
			return
		}
		normalizeMoney(&detail.Order)
		detail.DeliveryFee = detail.ShippingFee
		util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "order": detail})
		return
	}

	if orderIdParam != "" {
		orderId, err := strconv.Atoi(orderIdParam)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid order ID")
			return
		}
		detail := OrderDetail{}
		result := ctx.db.Model(&model.Order{}).
			Select(orderJoinSelect).
			Joins("LEFT JOIN businesses b ON orders.business_id = b.id").
			Where("orders.id = ?", orderId).
			First(&detail)
		if result.Error != nil {
			util.WriteError(w, http.StatusNotFound, constants.ORDER_NOT_FOUND)
			return
		}
		normalizeMoney(&detail.Order)
		detail.DeliveryFee = detail.ShippingFee
		util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "order": detail})
		return
	}

	if userId != "" {
		rows := make([]UserOrderRow, 0)
		errDb := ctx.db.Model(&model.Order{}).
			Select("orders.*, orders.shipping_fee AS delivery_fee, b.name AS business_name, b.logo_url AS business_logo").
			Joins("LEFT JOIN businesses b ON orders.business_id = b.id").
			Where("orders.user_id = ?", userId).
			Order("orders.created_at DESC").
			Find(&rows).Error
		if errDb != nil {
			rlog.Error("Fetch user orders failed: ", errDb.Error())
			util.WriteError(w, http.StatusInternalServerError, errDb.Error())
			return
		}
		for i := range rows {
			normalizeMoney(&rows[i].Order)
			rows[i].DeliveryFee = rows[i].ShippingFee
			fillItemPreview(&rows[i])
		}
		util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "orders": rows})
		return
	}

	if businessId != "" {
		businessIdInt, err := strconv.Atoi(businessId)
		if err != nil {
			util.WriteError(w, http.StatusBadRequest, "Invalid business ID")
			return
		}
		orders := make([]model.Order, 0)
		errDb := ctx.db.Where("business_id = ?", businessIdInt).
			Order("created_at DESC").
			Find(&orders).Error
		if errDb != nil {
			rlog.Error("Fetch business orders failed: ", errDb.Error())
			util.WriteError(w, http.StatusInternalServerError, errDb.Error())
			return
		}
		rows := make([]OrderDetail, 0, len(orders))
		for i := range orders {
			normalizeMoney(&orders[i])
			rows = append(rows, OrderDetail{Order: orders[i], DeliveryFee: orders[i].ShippingFee})
		}
		util.WriteJson(w, http.StatusOK, map[string]interface{}{"success": true, "orders": rows})
		return
	}

	util.WriteError(w, http.StatusBadRequest, "userId or businessId is required")
}

func (ctx *HandlerContext) createOrder(w http.ResponseWriter, r *http.Request) {
	req := CreateOrderRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Validate payload
	if req.UserId == "" || req.BusinessId == 0 || len(req.Items) == 0 {
		util.WriteError(w, http.StatusBadRequest, "user_id, business_id and items are required")
		return
	}

	newOrder := model.Order{
		OrderNumber:     GenerateOrderNumber(),
		UserId:          req.UserId.String(),
		BusinessId:      req.BusinessId,
		Items:           req.Items,
		TotalAmount:     req.TotalAmount,
		Subtotal:        req.Subtotal,
		ShippingFee:     req.ShippingFee,
		DiscountAmount:  req.DiscountAmount,
		DeliveryType:    req.DeliveryType,
		DeliveryAddress: rawToString(req.DeliveryAddress),
		PaymentMethod:   req.PaymentMethod,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DiscountCode:    req.DiscountCode,
		Notes:           req.Notes,
		Status:          constants.ORDER_STATUS_PENDING,
	}

	if errDb := ctx.db.Create(&newOrder).Error; errDb != nil {
		rlog.Error("Create order failed: ", errDb.Error())
		util.WriteError(w, http.StatusInternalServerError, errDb.Error())
		return
	}

	// Confirmation email is best effort, the order stands either way
	if newOrder.CustomerEmail != nil && *newOrder.CustomerEmail != "" && ctx.confirmationEmail != nil {
		if errMail := ctx.confirmationEmail(&newOrder); errMail != nil {
			rlog.Error("Send order confirmation email failed: ", errMail.Error())
		} else {
			rlog.Infof("Confirmation email sent for order %s", newOrder.OrderNumber)
		}
	}

	normalizeMoney(&newOrder)
	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   OrderDetail{Order: newOrder, DeliveryFee: newOrder.ShippingFee},
	})
}

func (ctx *HandlerContext) updateOrder(w http.ResponseWriter, r *http.Request) {
	req := UpdateOrderRequest{}
	if err := util.FetchReqObject(r, &req); err != nil {
		util.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	idParam := req.OrderId
	if idParam == nil {
		idParam = req.OrderIdAlt
	}
	if idParam == nil || *idParam == "" {
		util.WriteError(w, http.StatusBadRequest, "orderId is required")
		return
	}
	if req.Status == nil && req.TrackingNumber == nil {
		util.WriteError(w, http.StatusBadRequest, "status or tracking_number is required")
		return
	}
	orderId, err := strconv.Atoi(idParam.String())
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.TrackingNumber != nil {
		updates["tracking_number"] = *req.TrackingNumber
	}

	result := ctx.db.Model(&model.Order{}).Where("id = ?", orderId).Updates(updates)
	if result.Error != nil {
		rlog.Error("Update order failed: ", result.Error.Error())
		util.WriteError(w, http.StatusInternalServerError, result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		util.WriteError(w, http.StatusNotFound, constants.ORDER_NOT_FOUND)
		return
	}

	updated := model.Order{}
	if errDb := ctx.db.Where("id = ?", orderId).First(&updated).Error; errDb != nil {
		util.WriteError(w, http.StatusNotFound, constants.ORDER_NOT_FOUND)
		return
	}
	normalizeMoney(&updated)
	util.WriteJson(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"order":   OrderDetail{Order: updated, DeliveryFee: updated.ShippingFee},
	})
}

// Money fields come back from the numeric columns as floats, NaN collapses to 0.
func normalizeMoney(o *model.Order) {
	o.Subtotal = nanToZero(o.Subtotal)
	o.ShippingFee = nanToZero(o.ShippingFee)
	o.TotalAmount = nanToZero(o.TotalAmount)
	o.DiscountAmount = nanToZero(o.DiscountAmount)
}

func nanToZero(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func fillItemPreview(row *UserOrderRow) {
	items := make([]model.OrderItem, 0)
	if err := json.Unmarshal(row.Items, &items); err != nil || len(items) == 0 {
		return
	}
	row.ItemsCount = len(items)
	row.FirstItemName = &items[0].Name
	row.FirstItemImage = items[0].Image
}

func rawToString(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	// Address may arrive as a plain string or a structured object
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	asText := string(raw)
	return &asText
}
