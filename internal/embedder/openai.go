package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/codequery-ai/codequery/pkg/types"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// modelDimensions records the vector sizes of the known OpenAI embedding
// models. Unknown models get the small-model default.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAI calls the OpenAI embeddings endpoint.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider for the given model.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultOpenAIBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the provider at a different endpoint. Used by tests and
// OpenAI-compatible gateways.
func (o *OpenAI) WithBaseURL(url string) *OpenAI {
	o.baseURL = url
	return o
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.model
}

// Dimensions returns the model's vector size.
func (o *OpenAI) Dimensions() int {
	if d, ok := modelDimensions[o.model]; ok {
		return d
	}
	return modelDimensions["text-embedding-3-small"]
}

// Embed embeds a single text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedBatch embeds all texts in one API call.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key is not configured", types.ErrEmbedding)
	}

	body, err := json.Marshal(embeddingRequest{Model: o.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", types.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", types.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: embeddings API returned %d: %s", types.ErrEmbedding, resp.StatusCode, msg)
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", types.ErrEmbedding, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", types.ErrEmbedding, len(texts), len(parsed.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", types.ErrEmbedding, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
