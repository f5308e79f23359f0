package types

import "errors"

// Sentinel errors classifying failures across the pipeline. Wrap with %w and
// test with errors.Is; callers should never need to parse error strings.
var (
	ErrConfig      = errors.New("configuration error")
	ErrIndexing    = errors.New("indexing error")
	ErrQuery       = errors.New("query error")
	ErrEmbedding   = errors.New("embedding error")
	ErrVectorStore = errors.New("vector store error")
	ErrNetwork     = errors.New("network error")
)
