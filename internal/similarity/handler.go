package similarity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
)

// Handler serves similar-document lookups.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

type similarItem struct {
	documents.DocumentResponse
	Score float64 `json:"score"`
}

// RegisterRoutes attaches the similarity route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/:id/similar", h.similar)
}

func (h *Handler) similar(c *gin.Context) {
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)
	if _, err := uuid.Parse(documentID); err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		return
	}

	k := DefaultK
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "k must be a positive integer", nil)
			return
		}
		k = parsed
	}

	results, err := h.Svc.Similar(c.Request.Context(), middleware.UserIDFromContext(c), documentID, k)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, documents.ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to find similar documents", nil)
		}
		return
	}

	items := make([]similarItem, 0, len(results))
	for _, r := range results {
		items = append(items, similarItem{DocumentResponse: documents.ToResponse(r.Document, false), Score: r.Score})
	}
	respond.OK(c, gin.H{"items": items})
}
