package upload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketplace_api/constants"
)

func testHandlerContext(backendUrl string) HandlerContext {
	return HandlerContext{
		UploadUrl:  backendUrl,
		BlobUrl:    backendUrl,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestUploadGetInfo(t *testing.T) {
	handlerCtx := testHandlerContext("http://localhost:0")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "http://localhost/api/upload", nil)
	handlerCtx.HandleUpload(w, r)

	actualResp := map[string]interface{}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, actualResp["success"])
	assert.NotEmpty(t, actualResp["allowed"])
}

func TestUploadNoPayload(t *testing.T) {
	handlerCtx := testHandlerContext("http://localhost:0")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer([]byte(`{}`)))
	handlerCtx.HandleUpload(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadMultipartForwarded(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		assert.Nil(t, err)
		defer file.Close()
		assert.Equal(t, "photo.png", header.Filename)
		w.Write([]byte(`{"url":"https://cdn.example.com/photo.png"}`))
	}))
	defer backend.Close()
	handlerCtx := testHandlerContext(backend.URL)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="photo.png"`)
	partHeader.Set("Content-Type", "image/png")
	part, _ := writer.CreatePart(partHeader)
	part.Write([]byte("fake png bytes"))
	writer.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	handlerCtx.HandleUpload(w, r)

	actualResp := struct {
		Success bool   `json:"success"`
		Url     string `json:"url"`
		Size    int    `json:"size"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, actualResp.Success)
	assert.Equal(t, "https://cdn.example.com/photo.png", actualResp.Url)
	assert.Equal(t, len("fake png bytes"), actualResp.Size)
}

func TestUploadMultipartDisallowedType(t *testing.T) {
	handlerCtx := testHandlerContext("http://localhost:0")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="run.sh"`)
	partHeader.Set("Content-Type", "application/x-sh")
	part, _ := writer.CreatePart(partHeader)
	part.Write([]byte("#!/bin/sh"))
	writer.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", &body)
	r.Header.Set("Content-Type", writer.FormDataContentType())
	handlerCtx.HandleUpload(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadBase64Forwarded(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://cdn.example.com/note.png"}`))
	}))
	defer backend.Close()
	handlerCtx := testHandlerContext(backend.URL)

	payload := map[string]string{
		"base64":   base64.StdEncoding.EncodeToString([]byte("fake png bytes")),
		"fileName": "note.png",
		"mimeType": "image/png",
	}
	reqBody, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	actualResp := struct {
		Success bool   `json:"success"`
		Url     string `json:"url"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.example.com/note.png", actualResp.Url)
}

func TestUploadBase64DataUri(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://cdn.example.com/inline.png"}`))
	}))
	defer backend.Close()
	handlerCtx := testHandlerContext(backend.URL)

	dataUri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
	reqBody, _ := json.Marshal(map[string]string{"base64": dataUri})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	actualResp := struct {
		Success bool   `json:"success"`
		Type    string `json:"type"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", actualResp.Type)
}

func TestUploadBase64NearCapAccepted(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://cdn.example.com/big.png"}`))
	}))
	defer backend.Close()
	handlerCtx := testHandlerContext(backend.URL)

	// 8MB decoded is under the cap even though its base64 wire form is over 10MB
	data := bytes.Repeat([]byte{0x42}, 8<<20)
	payload := map[string]string{
		"base64":   base64.StdEncoding.EncodeToString(data),
		"fileName": "big.png",
		"mimeType": "image/png",
	}
	reqBody, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	actualResp := struct {
		Success bool `json:"success"`
		Size    int  `json:"size"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, actualResp.Success)
	assert.Equal(t, 8<<20, actualResp.Size)
}

func TestUploadBase64OverCapRejected(t *testing.T) {
	handlerCtx := testHandlerContext("http://localhost:0")

	data := bytes.Repeat([]byte{0x42}, int(constants.MAX_UPLOAD_BYTES)+1)
	payload := map[string]string{
		"base64":   base64.StdEncoding.EncodeToString(data),
		"mimeType": "image/png",
	}
	reqBody, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadBase64Invalid(t *testing.T) {
	handlerCtx := testHandlerContext("http://localhost:0")

	reqBody := []byte(`{"base64":"not base64 at all!!!","mimeType":"image/png"}`)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadFromUrlForwarded(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake jpeg bytes"))
	}))
	defer source.Close()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://cdn.example.com/fetched.jpg"}`))
	}))
	defer backend.Close()
	handlerCtx := testHandlerContext(backend.URL)

	reqBody, _ := json.Marshal(map[string]string{"url": source.URL + "/fetched.jpg"})
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	actualResp := struct {
		Success bool   `json:"success"`
		Url     string `json:"url"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.example.com/fetched.jpg", actualResp.Url)
}

func TestUploadBlobBackendSelectedByToken(t *testing.T) {
	blob := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer blob-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"url":"https://blob.example.com/note.png"}`))
	}))
	defer blob.Close()
	handlerCtx := testHandlerContext(blob.URL)
	handlerCtx.BlobToken = "blob-token"

	payload := map[string]string{
		"base64":   base64.StdEncoding.EncodeToString([]byte("fake png bytes")),
		"fileName": "note.png",
		"mimeType": "image/png",
	}
	reqBody, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	actualResp := struct {
		Url string `json:"url"`
	}{}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://blob.example.com/note.png", actualResp.Url)
}

func TestUploadProviderFailureRelayed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer backend.Close()
	handlerCtx := testHandlerContext(backend.URL)

	payload := map[string]string{
		"base64":   base64.StdEncoding.EncodeToString([]byte("fake png bytes")),
		"mimeType": "image/png",
	}
	reqBody, _ := json.Marshal(payload)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "http://localhost/api/upload", bytes.NewBuffer(reqBody))
	handlerCtx.HandleUpload(w, r)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
