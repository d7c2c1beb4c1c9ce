package uploads

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/storage/object"
	"docflow-backend/internal/shared/telemetry"
)

const (
	maxUploadBytes = 20 << 20
	presignExpires = 15 * time.Minute
)

var allowedContentTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"text/plain": {},
	"text/html":  {},
	"image/png":  {},
	"image/jpeg": {},
}

// KeySource issues storage keys for new uploads.
type KeySource interface {
	NewStorageKey(fileName string) (string, error)
}

// Handler issues presigned upload URLs. The client then PUTs the file and
// calls POST /documents/from-storage with the returned key.
type Handler struct {
	presigner object.Presigner
	keys      KeySource
}

// NewHandler returns nil when the configured store cannot presign.
func NewHandler(store object.ObjectStore, keys KeySource) *Handler {
	presigner, ok := store.(object.Presigner)
	if !ok || keys == nil {
		return nil
	}
	return &Handler{presigner: presigner, keys: keys}
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	MimeType    string `json:"mimeType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	StorageKey       string `json:"storageKey"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// RegisterRoutes attaches the presign route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.presign)
}

func (h *Handler) presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.FileName = strings.TrimSpace(req.FileName)
	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.ContentType == "" {
		req.ContentType = strings.TrimSpace(req.MimeType)
	}

	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	if _, ok := allowedContentTypes[req.ContentType]; !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "contentType is not allowed", nil)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > maxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes exceeds limit", nil)
		return
	}

	key, err := h.keys.NewStorageKey(req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	url, err := h.presigner.PresignPut(c.Request.Context(), key, req.ContentType, req.SizeBytes, presignExpires)
	if err != nil {
		fields := map[string]any{
			"err":          err.Error(),
			"storage_key":  key,
			"content_type": req.ContentType,
			"size_bytes":   req.SizeBytes,
			"request_id":   c.GetString("requestId"),
		}
		if errors.Is(err, context.Canceled) {
			fields["canceled"] = true
		}
		telemetry.Error("uploads.presign.failed", fields)
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	respond.OK(c, presignResponse{
		UploadURL:        url,
		StorageKey:       key,
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}
