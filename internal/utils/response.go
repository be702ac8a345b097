package utils

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse defines the standard API error envelope.
type ErrorResponse struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Error   *ErrorInfo `json:"error"`
	Meta    Meta       `json:"meta"`
}

// ErrorInfo provides details for error responses.
type ErrorInfo struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// Meta contains request-scoped metadata.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// Pagination holds offset pagination metadata for list responses.
type Pagination struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ListResponse is the envelope for every collection endpoint.
type ListResponse[T any] struct {
	Count      int        `json:"count"`
	List       []T        `json:"list"`
	Pagination Pagination `json:"pagination"`
}

// NewListResponse wraps items; a nil slice is rendered as [].
func NewListResponse[T any](items []T, total, offset, limit int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Count: len(items),
		List:  items,
		Pagination: Pagination{
			Total:  total,
			Offset: offset,
			Limit:  limit,
		},
	}
}

// Error writes an error response with provided API error code and message.
func Error(c *gin.Context, code int, errCode, message string) {
	writeError(c, code, &ErrorInfo{Code: errCode, Message: message})
}

// ValidationFailed writes a 400 response listing the rejected fields.
func ValidationFailed(c *gin.Context, message string, fields []FieldError) {
	writeError(c, 400, &ErrorInfo{Code: "VALIDATION_ERROR", Message: message, Fields: fields})
}

func writeError(c *gin.Context, code int, info *ErrorInfo) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Success: false,
		Code:    code,
		Message: info.Message,
		Error:   info,
		Meta: Meta{
			RequestID: getRequestID(c),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return uuid.New().String()[:8]
}
