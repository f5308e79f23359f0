package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/codequery-ai/codequery/pkg/types"
)

// QdrantStore is the remote backend, speaking qdrant's REST API. Collection
// lifecycle, persistence, and search policy belong to the server; this
// client only honors the Store contract.
type QdrantStore struct {
	baseURL    string
	collection string
	client     *http.Client
}

// NewQdrantStore creates a client for the given qdrant URL and collection.
func NewQdrantStore(url, collection string) *QdrantStore {
	return &QdrantStore{
		baseURL:    strings.TrimRight(url, "/"),
		collection: collection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Initialize creates the collection with cosine distance if it does not
// exist yet.
func (q *QdrantStore) Initialize(ctx context.Context, vectorSize int) error {
	if _, err := q.do(ctx, http.MethodGet, "/collections/"+q.collection, nil); err == nil {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	_, err := q.do(ctx, http.MethodPut, "/collections/"+q.collection, body)
	return err
}

// Upsert writes documents as qdrant points, waiting for the operation to be
// applied.
func (q *QdrantStore) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		points = append(points, map[string]any{
			"id":      doc.ID,
			"vector":  doc.Embedding,
			"payload": doc.Metadata,
		})
	}

	_, err := q.do(ctx, http.MethodPut, "/collections/"+q.collection+"/points?wait=true", map[string]any{"points": points})
	return err
}

// Search asks the server for the topK nearest points with payloads.
func (q *QdrantStore) Search(ctx context.Context, query []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", types.ErrVectorStore, topK)
	}

	body := map[string]any{
		"vector":       query,
		"limit":        topK,
		"with_payload": true,
	}
	data, err := q.do(ctx, http.MethodPost, "/collections/"+q.collection+"/points/search", body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", types.ErrVectorStore, err)
	}

	results := make([]SearchResult, 0, len(parsed.Result))
	for _, item := range parsed.Result {
		results = append(results, SearchResult{Score: item.Score, Metadata: item.Payload})
	}
	return results, nil
}

// DeleteByFile removes every point whose file_path payload matches exactly.
func (q *QdrantStore) DeleteByFile(ctx context.Context, path string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": MetaFilePath, "match": map[string]any{"value": path}},
			},
		},
	}
	_, err := q.do(ctx, http.MethodPost, "/collections/"+q.collection+"/points/delete?wait=true", body)
	return err
}

// CreateDocument builds a document with the shared metadata shape. Qdrant
// accepts the UUID string ids this produces.
func (q *QdrantStore) CreateDocument(chunk types.CodeChunk, embedding []float32) Document {
	return newDocument(chunk, embedding)
}

func (q *QdrantStore) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal request: %v", types.ErrVectorStore, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", types.ErrVectorStore, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant request: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", types.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: qdrant returned %d for %s %s: %s", types.ErrVectorStore, resp.StatusCode, method, path, data)
	}
	return data, nil
}
