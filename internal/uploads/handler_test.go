package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/shared/storage/object"
)

type fakePresignStore struct {
	key, contentType string
	size             int64
	expires          time.Duration
	err              error
}

func (f *fakePresignStore) Provider() string { return "s3" }

func (f *fakePresignStore) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (int64, error) {
	return 0, errors.New("not used")
}

func (f *fakePresignStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, object.ErrNotFound
}

func (f *fakePresignStore) Stat(ctx context.Context, key string) (object.Info, error) {
	return object.Info{}, object.ErrNotFound
}

func (f *fakePresignStore) Copy(ctx context.Context, srcKey, dstKey string) error { return nil }

func (f *fakePresignStore) PresignPut(ctx context.Context, key, contentType string, size int64, expires time.Duration) (string, error) {
	f.key, f.contentType, f.size, f.expires = key, contentType, size, expires
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=abc", nil
}

type fixedKeys struct{}

func (fixedKeys) NewStorageKey(fileName string) (string, error) {
	if strings.Contains(fileName, "..") {
		return "", errors.New("invalid")
	}
	return "1700000000000000000-" + fileName, nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/presign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPresignReturnsKeyAndURL(t *testing.T) {
	store := &fakePresignStore{}
	h := NewHandler(store, fixedKeys{})
	require.NotNil(t, h)

	resp := post(newRouter(h), `{"fileName":"invoice.pdf","contentType":"application/pdf","sizeBytes":500000}`)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out presignResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "1700000000000000000-invoice.pdf", out.StorageKey)
	assert.Contains(t, out.UploadURL, out.StorageKey)
	assert.Equal(t, int64(900), out.ExpiresInSeconds)
	assert.Equal(t, int64(500000), store.size)
	assert.Equal(t, presignExpires, store.expires)
}

func TestPresignAcceptsMimeTypeAlias(t *testing.T) {
	store := &fakePresignStore{}
	resp := post(newRouter(NewHandler(store, fixedKeys{})), `{"fileName":"a.txt","mimeType":"text/plain","sizeBytes":10}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/plain", store.contentType)
}

func TestPresignValidation(t *testing.T) {
	r := newRouter(NewHandler(&fakePresignStore{}, fixedKeys{}))
	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "missing name", body: `{"contentType":"application/pdf","sizeBytes":1}`},
		{name: "disallowed type", body: `{"fileName":"a.exe","contentType":"application/x-msdownload","sizeBytes":1}`},
		{name: "zero size", body: `{"fileName":"a.pdf","contentType":"application/pdf","sizeBytes":0}`},
		{name: "too large", body: `{"fileName":"a.pdf","contentType":"application/pdf","sizeBytes":999999999}`},
		{name: "bad name", body: `{"fileName":"../a.pdf","contentType":"application/pdf","sizeBytes":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(r, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, resp.Body.String(), "validation_error")
		})
	}
}

func TestPresignFailureIsHidden(t *testing.T) {
	store := &fakePresignStore{err: errors.New("no credentials")}
	resp := post(newRouter(NewHandler(store, fixedKeys{})), `{"fileName":"a.pdf","contentType":"application/pdf","sizeBytes":1}`)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "no credentials")
}

func TestNewHandlerRequiresPresigner(t *testing.T) {
	var store object.ObjectStore = &noPresign{}
	assert.Nil(t, NewHandler(store, fixedKeys{}))
	assert.Nil(t, NewHandler(&fakePresignStore{}, nil))
}

type noPresign struct{}

func (noPresign) Provider() string { return "local" }
func (noPresign) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (int64, error) {
	return 0, nil
}
func (noPresign) Open(ctx context.Context, key string) (io.ReadCloser, error) { return nil, nil }
func (noPresign) Stat(ctx context.Context, key string) (object.Info, error) {
	return object.Info{}, nil
}
func (noPresign) Copy(ctx context.Context, srcKey, dstKey string) error { return nil }
