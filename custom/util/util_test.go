package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexIdAcceptsStringAndNumber(t *testing.T) {
	payload := struct {
		UserId FlexId `json:"user_id"`
	}{}

	assert.Nil(t, json.Unmarshal([]byte(`{"user_id":"firebase-uid-1"}`), &payload))
	assert.Equal(t, "firebase-uid-1", payload.UserId.String())

	assert.Nil(t, json.Unmarshal([]byte(`{"user_id":42}`), &payload))
	assert.Equal(t, "42", payload.UserId.String())

	id, err := payload.UserId.Int64()
	assert.Nil(t, err)
	assert.Equal(t, int64(42), id)
}

func TestFlexIdInt64RejectsNonNumeric(t *testing.T) {
	id := FlexId("firebase-uid-1")
	_, err := id.Int64()
	assert.NotNil(t, err)
}

func TestWriteErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "Business not found")

	actualResp := struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{Success: true}
	json.Unmarshal(w.Body.Bytes(), &actualResp)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.False(t, actualResp.Success)
	assert.Equal(t, "Business not found", actualResp.Error)
}

func TestGetEnvFallback(t *testing.T) {
	t.Setenv("MARKETPLACE_TEST_KEY", "")
	assert.Equal(t, "fallback", GetEnv("MARKETPLACE_TEST_KEY", "fallback"))

	t.Setenv("MARKETPLACE_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnv("MARKETPLACE_TEST_KEY", "fallback"))
}
