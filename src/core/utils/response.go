package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey gin context key set by the request id middleware
const RequestIDKey = "request_id"

// UnifiedResponse envelope of every JSON endpoint except the assistant message round trip
type UnifiedResponse struct {
	Code      int         `json:"code"`
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func respond(c *gin.Context, statusCode int, resp UnifiedResponse) {
	resp.Code = statusCode
	resp.Success = statusCode < http.StatusBadRequest
	resp.RequestID = c.GetString(RequestIDKey)
	c.JSON(statusCode, resp)
}

func Success(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, UnifiedResponse{Message: "OK", Data: data})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, UnifiedResponse{Message: message, Data: data})
}

func Error(c *gin.Context, statusCode int, message string) {
	respond(c, statusCode, UnifiedResponse{Message: message})
}

// ErrorWithDetail 500s keep err's text so clients can report it
func ErrorWithDetail(c *gin.Context, statusCode int, message string, err error) {
	resp := UnifiedResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	respond(c, statusCode, resp)
}
