package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aclio/aclio/utils"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing a well-formed incoming one.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		ctx.Set(utils.RequestIDKey, id)
		ctx.Header(requestIDHeader, id)
		ctx.Next()
	}
}
