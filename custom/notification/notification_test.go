package notification

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gorm.io/datatypes"

	"marketplace_api/custom/util"
	"marketplace_api/model"
)

var testOrder = model.Order{
	ID:            11,
	OrderNumber:   "ORD-1700000000000-42",
	UserId:        "7",
	BusinessId:    1,
	Items:         datatypes.JSON(`[{"name":"Croissant","quantity":2,"price":4.5}]`),
	TotalAmount:   9,
	Subtotal:      9,
	CustomerName:  util.GetStringPtr("Jo"),
	CustomerEmail: util.GetStringPtr("jo@example.com"),
	Status:        "pending",
}

func TestSendOrderConfirmationUnconfigured(t *testing.T) {
	sender := EmailSender{}
	order := testOrder

	result, err := sender.SendOrderConfirmation(&order)

	assert.Nil(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Email service not configured", result.Message)
}

func TestSendOrderConfirmationNoRecipient(t *testing.T) {
	sender := EmailSender{ApiKey: "test-key"}
	order := testOrder
	order.CustomerEmail = nil

	result, err := sender.SendOrderConfirmation(&order)

	assert.Nil(t, err)
	assert.False(t, result.Success)
}

func TestSendOrderConfirmationViaLocalServer(t *testing.T) {
	var sentBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sentBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := EmailSender{
		ApiKey:    "test-key",
		FromEmail: "orders@marketplace.app",
		FromName:  "Marketplace",
		Host:      server.URL,
	}
	order := testOrder

	result, err := sender.SendOrderConfirmation(&order)

	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, string(sentBody), "jo@example.com")
	assert.Contains(t, string(sentBody), "ORD-1700000000000-42")
}

func TestSendShippingUpdateUnknownStatusFallsBack(t *testing.T) {
	var sentBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sentBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := EmailSender{ApiKey: "test-key", FromEmail: "orders@marketplace.app", Host: server.URL}

	result, err := sender.SendShippingUpdate("jo@example.com", "Jo", "ORD-1", "teleported", "")

	assert.Nil(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, string(sentBody), "Order Being Prepared")
}

func TestSendPushToUserNoToken(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})

	mock.ExpectQuery(`SELECT push_token FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"push_token"}).AddRow(nil))

	result := handlerCtx.SendPushToUser(7, "Order update", "Your order shipped", nil)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.False(t, result.Success)
	assert.Equal(t, "User has no push token registered", result.Message)
}

func TestSendPushToUserDispatches(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()

	var sentBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sentBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"data":[{"status":"ok"}]}`))
	}))
	defer server.Close()

	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})
	handlerCtx.PushUrl = server.URL

	mock.ExpectQuery(`SELECT push_token FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"push_token"}).AddRow("ExponentPushToken[abc]"))

	result := handlerCtx.SendPushToUser(7, "Order update", "Your order shipped", map[string]interface{}{"orderId": 11})

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Sent)

	messages := make([]PushMessage, 0)
	json.Unmarshal(sentBody, &messages)
	assert.Len(t, messages, 1)
	assert.Equal(t, "ExponentPushToken[abc]", messages[0].To)
	assert.Equal(t, "default", messages[0].Sound)
}

func TestSendPushToMultipleUsersSkipsMissingTokens(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})
	handlerCtx.PushUrl = server.URL

	mock.ExpectQuery(`SELECT push_token FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"push_token"}).
			AddRow("ExponentPushToken[abc]").
			AddRow("ExponentPushToken[def]"))

	result := handlerCtx.SendPushToMultipleUsers([]int64{7, 8}, "Flash sale", "Croissants half price", nil)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Sent)
}

func TestHandleSendPushMissingTitle(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})

	w := httptest.NewRecorder()
	reqBody := []byte(`{"userId":"7"}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/notifications/send-push", bytes.NewBuffer(reqBody))
	handlerCtx.HandleSendPush(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSendPushMissingUser(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})

	w := httptest.NewRecorder()
	reqBody := []byte(`{"title":"Hi","body":"There"}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/notifications/send-push", bytes.NewBuffer(reqBody))
	handlerCtx.HandleSendPush(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEmailUnknownType(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})

	w := httptest.NewRecorder()
	reqBody := []byte(`{"type":"carrier_pigeon"}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/notifications/email", bytes.NewBuffer(reqBody))
	handlerCtx.HandleEmail(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEmailOrderNotFound(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	reqBody := []byte(`{"type":"order_confirmation","orderId":99}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/notifications/email", bytes.NewBuffer(reqBody))
	handlerCtx.HandleEmail(w, r)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleEmailShippingUpdateMissingFields(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB, &EmailSender{})

	w := httptest.NewRecorder()
	reqBody := []byte(`{"type":"shipping_update","customerEmail":"jo@example.com"}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/notifications/email", bytes.NewBuffer(reqBody))
	handlerCtx.HandleEmail(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
