package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"veilchat-server/chat-api/internal/utils/platformerrors"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns an X-Request-Id to every request, echoes it on the
// response, and propagates it on the request context so platform errors
// raised anywhere downstream carry the id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, requestID)
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(platformerrors.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// RequestIDFromContext returns the request id stored in the gin context.
func RequestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDHeader); ok {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}
