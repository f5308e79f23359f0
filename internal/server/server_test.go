package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequery-ai/codequery/internal/config"
	"github.com/codequery-ai/codequery/internal/embedder"
	"github.com/codequery-ai/codequery/internal/query"
	"github.com/codequery-ai/codequery/internal/vector"
	"github.com/codequery-ai/codequery/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()

	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "stub answer"}}},
		})
	}))
	t.Cleanup(llmSrv.Close)

	cfg := config.Default()
	cfg.LLM.APIKey = "sk-test"
	store := vector.NewLocalStore(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, store.Initialize(context.Background(), embedder.NewLocal().Dimensions()))

	engine := query.NewEngine(embedder.NewLocal(), store, query.NewLLMClient(cfg).WithBaseURL(llmSrv.URL))
	return New(cfg, engine, token)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	s.router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"service":"codequery"`)
}

func TestQueryEndpointEmptyIndex(t *testing.T) {
	s := newTestServer(t, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"question": "where is auth?"}`))
	req.Header.Set("Content-Type", "application/json")

	s.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp types.QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "No relevant code found for your query.", resp.Answer)
	assert.Empty(t, resp.References)
}

func TestQueryEndpointRejectsMissingQuestion(t *testing.T) {
	s := newTestServer(t, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"top_k": 3}`))
	req.Header.Set("Content-Type", "application/json")

	s.router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBearerAuth(t *testing.T) {
	s := newTestServer(t, "secret")
	router := s.router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/index/status", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/index/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/index/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Health stays open regardless of the token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIndexStatusReportsStats(t *testing.T) {
	s := newTestServer(t, "")
	s.SetStats(types.IndexStats{TotalFiles: 10, IndexedFiles: 9, FailedFiles: 1, TotalChunks: 42})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/index/status", nil)
	s.router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(10), body["total_files"])
	assert.Equal(t, float64(9), body["indexed_files"])
	assert.Equal(t, float64(1), body["failed_files"])
	assert.Equal(t, float64(42), body["total_chunks"])
}

func callToolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestMCPQueryTool(t *testing.T) {
	s := newTestServer(t, "")

	result, err := s.handleMCPQuery(context.Background(), callToolRequest(map[string]interface{}{
		"question": "where is auth?",
		"top_k":    float64(3),
	}))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, "No relevant code found")
}

func TestMCPQueryToolRequiresQuestion(t *testing.T) {
	s := newTestServer(t, "")

	result, err := s.handleMCPQuery(context.Background(), callToolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPIndexStatusTool(t *testing.T) {
	s := newTestServer(t, "")
	s.SetStats(types.IndexStats{TotalFiles: 3, IndexedFiles: 3, TotalChunks: 7})

	result, err := s.handleMCPIndexStatus(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, `"total_chunks": 7`)
}
