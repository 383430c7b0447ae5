package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"

	"marketplace_api/custom/util"
	"marketplace_api/model"
)

func TestQueryUserMissingParams(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://localhost/api/users", nil)
	handlerCtx.HandleUsers(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryUserPrefersFirebaseUid(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	returnData := sqlmock.NewRows([]string{"id", "email", "firebase_uid", "type"}).
		AddRow(7, "jo@example.com", "firebase-uid-1", "customer")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE firebase_uid`).WillReturnRows(returnData)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://localhost/api/users?email=jo@example.com&firebase_uid=firebase-uid-1", nil)
	handlerCtx.HandleUsers(w, r)

	actualResp := struct {
		Success bool       `json:"success"`
		User    model.User `json:"user"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "firebase-uid-1", *actualResp.User.FirebaseUid)
}

func TestQueryUserNotFound(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://localhost/api/users?email=ghost@example.com", nil)
	handlerCtx.HandleUsers(w, r)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUserSuccess(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	reqBody := []byte(`{"email":"jo@example.com","name":"Jo"}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/users", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUsers(w, r)

	actualResp := struct {
		Success bool       `json:"success"`
		User    model.User `json:"user"`
		Message string     `json:"message"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "customer", actualResp.User.Type)
	assert.False(t, actualResp.User.IsBusinessUser)
	assert.Equal(t, "User created successfully", actualResp.Message)
}

func TestCreateUserAlreadyExists(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	existing := sqlmock.NewRows([]string{"id", "email", "type"}).
		AddRow(7, "jo@example.com", "customer")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email`).WillReturnRows(existing)

	w := httptest.NewRecorder()
	reqBody := []byte(`{"email":"jo@example.com"}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/users", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUsers(w, r)

	actualResp := struct {
		Message string `json:"message"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User already exists", actualResp.Message)
}

func TestCreateBusinessOwnerUser(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	reqBody := []byte(`{"email":"owner@example.com","firebase_uid":"owner-uid-1","is_business_user":true}`)
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/users", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUsers(w, r)

	actualResp := struct {
		User model.User `json:"user"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, "business_owner", actualResp.User.Type)
	assert.True(t, actualResp.User.IsBusinessUser)
}

func TestCreateUserMissingEmail(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/users", bytes.NewBuffer([]byte(`{}`)))
	handlerCtx.HandleUsers(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUserNoFields(t *testing.T) {
	sqlDB, gormDB, _ := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	w := httptest.NewRecorder()
	reqBody := []byte(`{"email":"jo@example.com"}`)
	r := httptest.NewRequest(http.MethodPut, "http://localhost/api/users", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUsers(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateUserClearsAddress(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	refetched := sqlmock.NewRows([]string{"id", "email", "address", "type"}).
		AddRow(7, "jo@example.com", "", "customer")
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email`).WillReturnRows(refetched)

	w := httptest.NewRecorder()
	reqBody := []byte(`{"email":"jo@example.com","address":""}`)
	r := httptest.NewRequest(http.MethodPut, "http://localhost/api/users", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUsers(w, r)

	actualResp := struct {
		Success bool       `json:"success"`
		User    model.User `json:"user"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, actualResp.Success)
}

func TestUpdateUserNotFound(t *testing.T) {
	sqlDB, gormDB, mock := util.DbMock(t)
	defer sqlDB.Close()
	handlerCtx := HandlerContext{}
	handlerCtx.InitialHandlerContext(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	reqBody := []byte(`{"email":"ghost@example.com","name":"Ghost"}`)
	r := httptest.NewRequest(http.MethodPut, "http://localhost/api/users", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUsers(w, r)

	assert.Nil(t, mock.ExpectationsWereMet())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
