package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestJSONShape(t *testing.T) {
	c, rec := newContext()
	Created(c, "Complaint submitted successfully", "complaint", gin.H{"id": "c1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Complaint submitted successfully", body["message"])
	assert.Equal(t, "c1", body["complaint"].(map[string]interface{})["id"])
}

func TestErrorHidesDetailByDefault(t *testing.T) {
	EnableDiagnostics(false)
	c, rec := newContext()
	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
	assert.Equal(t, "INTERNAL_ERROR", body.Error)
	assert.Empty(t, body.Detail)
}

func TestErrorDetailWithDiagnostics(t *testing.T) {
	EnableDiagnostics(true)
	defer EnableDiagnostics(false)
	c, rec := newContext()
	Error(c, appErrors.Wrap(errors.New("bad rating"), appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid feedback payload", body.Message)
	assert.Equal(t, "bad rating", body.Detail)
}

func TestFieldsKeepsMessage(t *testing.T) {
	c, rec := newContext()
	Fields(c, http.StatusOK, "Login successful", gin.H{"token": "t", "message": "ignored"})

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "t", body["token"])
}
