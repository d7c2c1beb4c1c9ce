package respond

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/telemetry"
)

func TestErrorWritesEnvelopeAndLogsContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	restore := telemetry.SetOutput(&logs)
	defer restore()

	r := gin.New()
	r.POST("/documents", func(c *gin.Context) {
		c.Set("requestId", "req-1")
		c.Set("userId", "u1")
		c.Set("storageKey", "1-invoice.pdf")
		Error(c, http.StatusInternalServerError, "storage_error", "failed to store document", nil)
		c.String(http.StatusOK, "unreachable")
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/documents", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "storage_error" || body.Error.RequestID != "req-1" {
		t.Fatalf("unexpected body %+v", body)
	}

	line := logs.String()
	for _, want := range []string{`"level":"error"`, `"msg":"http.error"`, `"storage_key":"1-invoice.pdf"`, `"user_id":"u1"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in log line %s", want, line)
		}
	}
}

func TestErrorLogsClientErrorsAsWarnings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	restore := telemetry.SetOutput(&logs)
	defer restore()

	r := gin.New()
	r.GET("/query", func(c *gin.Context) {
		Error(c, http.StatusBadRequest, "validation_error", "question is required", gin.H{"field": "question"})
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/query", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "requestId") {
		t.Fatalf("expected no requestId without middleware, got %s", resp.Body.String())
	}
	if !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Fatalf("expected warn level, got %s", logs.String())
	}
}
