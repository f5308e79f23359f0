// Package embedder turns text into fixed-length vectors. Two providers are
// available: the OpenAI embeddings API and a deterministic local hasher that
// needs no network or key.
package embedder

import (
	"context"
	"fmt"

	"github.com/codequery-ai/codequery/internal/config"
	"github.com/codequery-ai/codequery/pkg/types"
)

// Provider produces embeddings. Implementations must be safe for concurrent
// use.
type Provider interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the vector length this provider produces.
	Dimensions() int

	// Model names the embedding model, used for cache keying.
	Model() string
}

// New builds the provider selected by the configuration.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return NewOpenAI(cfg.LLM.APIKey, cfg.Embedding.Model), nil
	case "local":
		return NewLocal(), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider: %s", types.ErrConfig, cfg.Embedding.Provider)
	}
}
