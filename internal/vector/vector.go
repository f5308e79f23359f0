// Package vector abstracts document storage and similarity search over two
// interchangeable backends: an embedded persistent store and a remote qdrant
// instance.
package vector

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/codequery-ai/codequery/internal/config"
	"github.com/codequery-ai/codequery/pkg/types"
)

// Metadata keys every document carries.
const (
	MetaFilePath  = "file_path"
	MetaContent   = "content"
	MetaLineStart = "line_start"
	MetaLineEnd   = "line_end"
	MetaChunkType = "chunk_type"
	MetaLanguage  = "language"
)

// Document is the storage-layer unit: a unique id, an embedding, and a
// metadata mapping.
type Document struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
}

// SearchResult is one similarity hit.
type SearchResult struct {
	Score    float32
	Metadata map[string]any
}

// Store is the capability set every backend implements. Implementations must
// be safe for concurrent use.
type Store interface {
	// Initialize creates the collection with the given dimensionality if
	// absent. Idempotent.
	Initialize(ctx context.Context, vectorSize int) error

	// Upsert inserts or fully replaces documents by id.
	Upsert(ctx context.Context, docs []Document) error

	// Search returns up to topK results ordered by descending similarity.
	// topK <= 0 is invalid input.
	Search(ctx context.Context, query []float32, topK int) ([]SearchResult, error)

	// DeleteByFile removes every document whose file_path metadata equals
	// path exactly.
	DeleteByFile(ctx context.Context, path string) error

	// CreateDocument builds a document from a chunk and its embedding.
	// Pure construction, no I/O.
	CreateDocument(chunk types.CodeChunk, embedding []float32) Document
}

// New builds the store selected by the configuration.
func New(cfg *config.Config) (Store, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		return NewQdrantStore(cfg.Vector.URL, cfg.Vector.CollectionName), nil
	case "local":
		dir, err := config.DataDir()
		if err != nil {
			return nil, err
		}
		return NewLocalStore(filepath.Join(dir, "local_vector_store.json")), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector backend: %s", types.ErrConfig, cfg.Vector.Backend)
	}
}

// newDocument is the shared construction both backends use: a fresh UUID and
// the standard metadata shape.
func newDocument(chunk types.CodeChunk, embedding []float32) Document {
	return Document{
		ID:        uuid.NewString(),
		Embedding: embedding,
		Metadata: map[string]any{
			MetaFilePath:  chunk.FilePath,
			MetaContent:   chunk.Content,
			MetaLineStart: chunk.StartLine,
			MetaLineEnd:   chunk.EndLine,
			MetaChunkType: string(chunk.Type),
			MetaLanguage:  chunk.Language,
		},
	}
}

// Cosine computes cosine similarity, dot(a,b) / (‖a‖·‖b‖). Mismatched
// lengths compare over the shorter prefix; a zero-norm vector scores 0.
func Cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, x := range a {
		normA += float64(x) * float64(x)
	}
	for _, x := range b {
		normB += float64(x) * float64(x)
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
