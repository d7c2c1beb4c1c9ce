package similarity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/documents"
	"docflow-backend/internal/shared/server/middleware"
)

const (
	docA = "11111111-1111-4111-8111-111111111111"
	docB = "22222222-2222-4222-8222-222222222222"
	docC = "33333333-3333-4333-8333-333333333333"
)

// keywordEmbedder maps text onto two axes so tests can steer similarity.
type keywordEmbedder struct {
	calls int
	last  string
	err   error
}

func (e *keywordEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	e.last = text
	if e.err != nil {
		return nil, e.err
	}
	vec := []float32{0, 0}
	if strings.Contains(text, "invoice") {
		vec[0] = 1
	}
	if strings.Contains(text, "lab") {
		vec[1] = 1
	}
	return vec, nil
}

func newTestService(t *testing.T, embedder *keywordEmbedder) (*Service, *documents.MemoryRepo) {
	t.Helper()
	repo := documents.NewMemoryRepo()
	svc := &Service{
		Embedder: embedder,
		Model:    "test-embedding",
		Index:    NewMemoryIndex(),
		Docs:     documents.NewService(repo, nil, 0, 0),
	}
	return svc, repo
}

func seed(t *testing.T, repo *documents.MemoryRepo, id, userID, text string) documents.Document {
	t.Helper()
	doc, err := repo.Save(context.Background(), documents.Document{
		ID:            id,
		UserID:        userID,
		FileName:      id + ".pdf",
		FileType:      "application/pdf",
		StorageKey:    id,
		ExtractedText: text,
		Category:      "Financial",
		SubCategory:   "invoice",
		Summary:       "TBD",
	})
	require.NoError(t, err)
	return doc
}

func TestSimilarReturnsNeighbours(t *testing.T) {
	ctx := context.Background()
	embedder := &keywordEmbedder{}
	svc, repo := newTestService(t, embedder)

	for _, d := range []documents.Document{
		seed(t, repo, docA, "u1", "invoice total 50"),
		seed(t, repo, docB, "u1", "invoice and lab results"),
		seed(t, repo, docC, "u1", "lab report"),
	} {
		require.NoError(t, svc.DocumentIngested(ctx, d))
	}

	got, err := svc.Similar(ctx, "u1", docA, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, docB, got[0].Document.ID)
	assert.Equal(t, docC, got[1].Document.ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestDocumentIngestedSkipsEmptyText(t *testing.T) {
	embedder := &keywordEmbedder{}
	svc, repo := newTestService(t, embedder)
	doc := seed(t, repo, docA, "u1", "   ")

	require.NoError(t, svc.DocumentIngested(context.Background(), doc))
	assert.Equal(t, 0, embedder.calls)
}

func TestDocumentIngestedCapsTextOnRuneBoundary(t *testing.T) {
	embedder := &keywordEmbedder{}
	svc, repo := newTestService(t, embedder)
	doc := seed(t, repo, "00000000-0000-0000-0000-0000000000d1", "u1", "a"+strings.Repeat("é", 9000)+" invoice")

	require.NoError(t, svc.DocumentIngested(context.Background(), doc))
	assert.True(t, utf8.ValidString(embedder.last))
	assert.Equal(t, maxEmbedChars, utf8.RuneCountInString(embedder.last))
	assert.Equal(t, "a"+strings.Repeat("é", maxEmbedChars-1), embedder.last)

	short := seed(t, repo, "00000000-0000-0000-0000-0000000000d2", "u1", "a"+strings.Repeat("é", 5000))
	require.NoError(t, svc.DocumentIngested(context.Background(), short))
	assert.Equal(t, short.ExtractedText, embedder.last, "multi-byte text under the cap is sent whole")
}

func TestIndexDocumentSurfacesEmbedError(t *testing.T) {
	embedder := &keywordEmbedder{err: errors.New("rate limited")}
	svc, repo := newTestService(t, embedder)
	seed(t, repo, docA, "u1", "invoice")

	err := svc.IndexDocument(context.Background(), "u1", docA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestIndexDocumentMissing(t *testing.T) {
	svc, _ := newTestService(t, &keywordEmbedder{})
	err := svc.IndexDocument(context.Background(), "u1", docA)
	assert.ErrorIs(t, err, documents.ErrNotFound)
}

func TestSimilarNotIndexedIsEmpty(t *testing.T) {
	svc, repo := newTestService(t, &keywordEmbedder{})
	seed(t, repo, docA, "u1", "invoice")

	got, err := svc.Similar(context.Background(), "u1", docA, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSimilarHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	svc, repo := newTestService(t, &keywordEmbedder{})
	guest := "guest:abc"
	require.NoError(t, svc.DocumentIngested(ctx, seed(t, repo, docA, guest, "invoice")))
	require.NoError(t, svc.DocumentIngested(ctx, seed(t, repo, docB, guest, "invoice too")))

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.Auth("test"))
	NewHandler(svc).RegisterRoutes(api)

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{name: "found", path: "/api/documents/" + docA + "/similar?k=3", status: http.StatusOK, body: docB},
		{name: "unknown document", path: "/api/documents/" + docC + "/similar", status: http.StatusNotFound, body: "not_found"},
		{name: "malformed id", path: "/api/documents/nope/similar", status: http.StatusNotFound, body: "not_found"},
		{name: "bad k", path: "/api/documents/" + docA + "/similar?k=x", status: http.StatusBadRequest, body: "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("X-Guest-Id", "abc")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Contains(t, resp.Body.String(), tt.body)
		})
	}
}
