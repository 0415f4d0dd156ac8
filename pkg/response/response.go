package response

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

var diagnostics atomic.Bool

// EnableDiagnostics toggles the "detail" field on error bodies. Never enable in production.
func EnableDiagnostics(enabled bool) {
	diagnostics.Store(enabled)
}

// ErrorBody is the error contract: a human readable message plus a stable code.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends {"message": message, key: data}. An empty key sends only the message.
func JSON(c *gin.Context, status int, message, key string, data interface{}) {
	noStore(c)
	body := gin.H{"message": message}
	if key != "" {
		body[key] = data
	}
	c.JSON(status, body)
}

// Fields sends {"message": message} merged with fields.
func Fields(c *gin.Context, status int, message string, fields gin.H) {
	noStore(c)
	body := gin.H{"message": message}
	for k, v := range fields {
		if k != "message" {
			body[k] = v
		}
	}
	c.JSON(status, body)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, message, key string, data interface{}) {
	JSON(c, http.StatusOK, message, key, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, message, key string, data interface{}) {
	JSON(c, http.StatusCreated, message, key, data)
}

// Message responds with HTTP 200 and only a message.
func Message(c *gin.Context, message string) {
	JSON(c, http.StatusOK, message, "", nil)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := ErrorBody{Message: appErr.Message, Error: appErr.Code}
	if diagnostics.Load() && appErr.Err != nil {
		body.Detail = appErr.Err.Error()
	}
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	noStore(c)
	c.JSON(appErr.Status, body)
}
