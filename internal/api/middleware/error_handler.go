package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audio-transcriber/internal/api/errors"
)

// ErrorHandler recovers panics into a 500 JSON body
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		requestID := c.GetString(RequestIDKey)

		logger.Error("Panic while handling request",
			zap.Any("recovered", recovered),
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Stack("stack"),
		)

		apiErr := errors.NewInternalError("Internal server error")
		apiErr.RequestID = requestID
		c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
	})
}

// HandleError writes err as a JSON error body and aborts the chain
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := errors.FromError(err)
	apiErr.RequestID = c.GetString(RequestIDKey)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
}
