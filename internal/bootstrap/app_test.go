package bootstrap

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:                "0",
		CORSAllowOrigin:     []string{"http://localhost:5173"},
		LocalStoreDir:       t.TempDir(),
		Env:                 "dev",
		ObjectStoreType:     "local",
		ExtractorType:       "local",
		LLMProvider:         "none",
		DocumentCacheSize:   16,
		IngestRatePerMinute: 100,
		BatchIngestWorkers:  2,
	}
}

func uploadRequest(t *testing.T, name, content string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "integration")
	return req
}

func TestBuildServesUploadGetAndQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.Nil(t, app.Similarity, "no embedder without an LLM provider")
	assert.Nil(t, app.UploadsHandler, "local store cannot presign")

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, uploadRequest(t, "hello.txt", "hello world"))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		ID               string   `json:"id"`
		UserID           string   `json:"userId"`
		Category         string   `json:"category"`
		SuggestedQueries []string `json:"suggestedQueries"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "guest:integration", created.UserID)
	assert.Equal(t, "Others", created.Category)

	get := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.ID, nil)
	get.Header.Set("X-Guest-Id", "integration")
	getResp := httptest.NewRecorder()
	app.Router.ServeHTTP(getResp, get)
	require.Equal(t, http.StatusOK, getResp.Code)
	assert.Contains(t, getResp.Body.String(), "hello world")

	query := httptest.NewRequest(http.MethodGet, "/api/v1/query?question=what", nil)
	query.Header.Set("X-Guest-Id", "integration")
	queryResp := httptest.NewRecorder()
	app.Router.ServeHTTP(queryResp, query)
	require.Equal(t, http.StatusOK, queryResp.Code)
	assert.Contains(t, queryResp.Body.String(), "No relevant data found.")

	me := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	me.Header.Set("X-Guest-Id", "integration")
	meResp := httptest.NewRecorder()
	app.Router.ServeHTTP(meResp, me)
	require.Equal(t, http.StatusOK, meResp.Code)
	assert.Contains(t, meResp.Body.String(), `"isGuest":true`)
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuildRejectsTextractWithoutS3(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExtractorType = "textract"
	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestBuildWithLocalExtractorServesChatButNotDocumentQueries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(app.Close)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", "invoice.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("pdf"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("query", "What is the total?"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/query", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "integration")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotImplemented, resp.Code)
	assert.Contains(t, resp.Body.String(), "not_supported")

	chat := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(`{"prompt":"hello"}`))
	chat.Header.Set("Content-Type", "application/json")
	chat.Header.Set("X-Guest-Id", "integration")
	chatResp := httptest.NewRecorder()
	app.Router.ServeHTTP(chatResp, chat)
	require.Equal(t, http.StatusOK, chatResp.Code, chatResp.Body.String())
	assert.Contains(t, chatResp.Body.String(), "No response")
}
