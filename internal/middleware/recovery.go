package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/middleware/requestid"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

// Recovery wraps gin's recovery with the error envelope and a structured log line.
// Broken pipes and connection resets are left to gin, which aborts without writing.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("request_id", requestid.Value(c)),
			zap.Any("panic", rec),
			zap.Stack("stack"))
		if !c.Writer.Written() {
			response.Error(c, appErrors.Internal(fmt.Errorf("panic: %v", rec), appErrors.ErrInternal.Message))
		}
		c.Abort()
	})
}
