package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Success writes data as the JSON body with status 200.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}

// Error writes a standard error response and aborts the handler chain.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
