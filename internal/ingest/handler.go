package ingest

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/server/middleware"
	"docflow-backend/internal/shared/server/respond"
	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/users"
)

const (
	maxUploadSize      = 20 << 20  // 20MB
	maxBatchUploadSize = 100 << 20 // 100MB
	maxBatchFiles      = 20
)

// OwnerResolver loads the caller's user, provisioning guests when allowed.
type OwnerResolver interface {
	Resolve(ctx context.Context, userID string, allowGuest bool) (users.User, error)
}

// DocumentCache is primed with freshly ingested documents.
type DocumentCache interface {
	Remember(doc documents.Document)
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Pipeline *Pipeline
	Users    OwnerResolver
	Cache    DocumentCache
}

// NewHandler constructs a Handler.
func NewHandler(p *Pipeline, resolver OwnerResolver, cache DocumentCache) *Handler {
	return &Handler{Pipeline: p, Users: resolver, Cache: cache}
}

// RegisterRoutes attaches ingestion and query routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.POST("/documents/batch", h.batch)
	rg.POST("/documents/from-storage", h.fromStorage)
	rg.POST("/extract", h.extract)
	rg.POST("/extract/query", h.extractQuery)
	rg.GET("/query", h.query)
	rg.POST("/chat", h.chat)
}

func (h *Handler) upload(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	file, closeFn, ok := h.formFile(c)
	if !ok {
		return
	}
	defer closeFn()

	doc, err := h.Pipeline.Ingest(c.Request.Context(), file, ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.remember(c, doc)
	respond.Created(c, documents.ToResponse(doc, true))
}

type batchItemResponse struct {
	FileName string                      `json:"fileName"`
	Document *documents.DocumentResponse `json:"document,omitempty"`
	Error    *respond.ErrorBody          `json:"error,omitempty"`
}

func (h *Handler) batch(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBatchUploadSize)

	form, err := c.MultipartForm()
	if tooLarge(err) {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds size limit", gin.H{"maxBytes": maxBatchUploadSize})
		return
	}
	if err != nil || form == nil || len(form.File["files"]) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "files are required", nil)
		return
	}
	headers := form.File["files"]
	if len(headers) > maxBatchFiles {
		respond.Error(c, http.StatusBadRequest, "validation_error", "too many files", gin.H{"max": maxBatchFiles})
		return
	}

	files := make([]*UploadedFile, 0, len(headers))
	for _, fh := range headers {
		file, closeFn, err := openUpload(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", gin.H{"fileName": fh.Filename})
			return
		}
		defer closeFn()
		files = append(files, file)
	}

	items, err := h.Pipeline.IngestBatch(c.Request.Context(), files, ownerID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]batchItemResponse, 0, len(items))
	for _, item := range items {
		out := batchItemResponse{FileName: item.FileName}
		if item.Err != nil {
			_, code, msg := classify(item.Err)
			out.Error = &respond.ErrorBody{Code: code, Message: msg}
		} else {
			h.remember(c, item.Document)
			rendered := documents.ToResponse(item.Document, false)
			out.Document = &rendered
		}
		resp = append(resp, out)
	}
	respond.Created(c, resp)
}

type fromStorageRequest struct {
	StorageKey  string `json:"storageKey"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

func (h *Handler) fromStorage(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	var req fromStorageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	c.Set(middleware.StorageKeyKey, req.StorageKey)

	doc, err := h.Pipeline.IngestStored(c.Request.Context(), StoredObject{
		Key:         req.StorageKey,
		FileName:    req.FileName,
		ContentType: strings.TrimSpace(req.ContentType),
		Size:        req.SizeBytes,
	}, ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.remember(c, doc)
	respond.Created(c, documents.ToResponse(doc, true))
}

func (h *Handler) extract(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	file, closeFn, ok := h.formFile(c)
	if !ok {
		return
	}
	defer closeFn()

	res, err := h.Pipeline.Extract(c.Request.Context(), file, ownerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.StorageKeyKey, res.StorageKey)
	respond.OK(c, gin.H{
		"storageKey":    res.StorageKey,
		"fileName":      res.FileName,
		"fileSize":      res.FileSize,
		"fileType":      res.FileType,
		"extractedText": res.ExtractedText,
	})
}

func (h *Handler) extractQuery(c *gin.Context) {
	ownerID, ok := h.owner(c)
	if !ok {
		return
	}
	file, closeFn, ok := h.formFile(c)
	if !ok {
		return
	}
	defer closeFn()

	res, err := h.Pipeline.QueryDocument(c.Request.Context(), file, ownerID, c.PostForm("query"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.StorageKeyKey, res.StorageKey)
	respond.OK(c, gin.H{
		"storageKey": res.StorageKey,
		"fileName":   res.FileName,
		"query":      res.Question,
		"answer":     res.Answer,
		"found":      res.Found,
	})
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	reply, err := h.Pipeline.Chat(c.Request.Context(), req.Prompt)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"response": reply})
}

func (h *Handler) query(c *gin.Context) {
	question := strings.TrimSpace(c.Query("question"))
	documentID := strings.TrimSpace(c.Query("documentId"))

	var (
		answer string
		err    error
	)
	if documentID != "" {
		c.Set(middleware.DocumentIDKey, documentID)
		answer, err = h.Pipeline.AnswerFor(c.Request.Context(), middleware.UserIDFromContext(c), documentID, question)
	} else {
		answer, err = h.Pipeline.Answer(c.Request.Context(), question)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	resp := gin.H{"question": question, "answer": answer}
	if documentID != "" {
		resp["documentId"] = documentID
	}
	respond.OK(c, resp)
}

// owner resolves the caller and provisions guest users in dev-like environments.
func (h *Handler) owner(c *gin.Context) (string, bool) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return "", false
	}
	if h.Users == nil {
		return userID, true
	}
	if _, err := h.Users.Resolve(c.Request.Context(), userID, middleware.IsGuest(c)); err != nil && !errors.Is(err, users.ErrNotFound) {
		telemetry.Error("ingest.owner_resolve_failed", map[string]any{
			"user_id": userID,
			"err":     err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to resolve user", nil)
		return "", false
	}
	return userID, true
}

func (h *Handler) remember(c *gin.Context, doc documents.Document) {
	c.Set(middleware.DocumentIDKey, doc.ID)
	c.Set(middleware.StorageKeyKey, doc.StorageKey)
	if h.Cache != nil {
		h.Cache.Remember(doc)
	}
}

// formFile reads the "file" part of a body capped at maxUploadSize. It writes
// the error response itself and reports false when there is no usable file.
func (h *Handler) formFile(c *gin.Context) (*UploadedFile, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if tooLarge(err) {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds size limit", gin.H{"maxBytes": maxUploadSize})
		return nil, nil, false
	}
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return nil, nil, false
	}
	file, closeFn, err := openUpload(fileHeader)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return nil, nil, false
	}
	return file, closeFn, true
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func openUpload(fh *multipart.FileHeader) (*UploadedFile, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &UploadedFile{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     f,
	}, func() { _ = f.Close() }, nil
}

// classify maps pipeline errors to an HTTP status, code and client message.
// Storage and persistence details stay in the server logs.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "validation_error", err.Error()
	case errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound, "not_found", "document not found"
	case errors.Is(err, ErrNoDocumentAvailable):
		return http.StatusBadRequest, "no_document", "no document with extracted text is available"
	case errors.Is(err, ErrQueryUnsupported):
		return http.StatusNotImplemented, "not_supported", "document queries require the textract extractor"
	case errors.Is(err, ErrStorage):
		return http.StatusInternalServerError, "storage_error", "failed to store document"
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError, "persistence_error", "failed to save document"
	default:
		return http.StatusInternalServerError, "internal_error", "unexpected error"
	}
}

func writeError(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		telemetry.Error("ingest.failed", map[string]any{
			"request_id": c.GetString("requestId"),
			"err":        err.Error(),
		})
	}
	respond.Error(c, status, code, msg, nil)
}
