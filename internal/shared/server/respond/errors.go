package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/telemetry"
)

// ErrorBody is the "error" object of every failed response. RequestID lets
// clients quote the request when reporting a failure.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// ErrorResponse is the envelope around ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Context keys set by the middleware and ingestion handlers.
var errorContextKeys = map[string]string{
	"userId":     "user_id",
	"isGuest":    "is_guest",
	"documentId": "document_id",
	"storageKey": "storage_key",
}

// Error aborts the request with an ErrorResponse. Client errors are logged as
// warnings and server errors as errors.
func Error(c *gin.Context, status int, code, message string, details any) {
	requestID := c.GetString("requestId")
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": requestID,
	}
	for key, field := range errorContextKeys {
		if v, ok := c.Get(key); ok && v != "" {
			fields[field] = v
		}
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Details:   details,
	}})
}
