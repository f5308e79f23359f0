package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/codequery-ai/codequery/pkg/types"
)

// LocalStore is the embedded backend: every document lives in memory, every
// mutation rewrites a JSON snapshot on disk, and search is an exact
// brute-force cosine scan. The snapshot is loaded on first access, so a
// freshly constructed store sees whatever a previous process indexed. The
// snapshot format only needs to round-trip through this same backend.
type LocalStore struct {
	mu     sync.RWMutex
	path   string
	docs   []Document
	loaded bool
}

// NewLocalStore creates a store persisting to the given snapshot path.
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

// Initialize forces the snapshot load eagerly. Safe to call repeatedly; the
// vector size is not enforced here, callers own dimensionality discipline.
func (s *LocalStore) Initialize(_ context.Context, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// loadLocked reads the snapshot once. Callers hold the write lock.
func (s *LocalStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("%w: read snapshot %s: %v", types.ErrVectorStore, s.path, err)
	}

	if err := json.Unmarshal(data, &s.docs); err != nil {
		return fmt.Errorf("%w: parse snapshot %s: %v", types.ErrVectorStore, s.path, err)
	}
	s.loaded = true
	return nil
}

// ensureLoaded loads the snapshot if no access has done so yet.
func (s *LocalStore) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Upsert replaces documents with matching ids and appends the rest, then
// rewrites the snapshot. The save happens under the same exclusive section
// as the in-memory mutation so concurrent writers cannot interleave a stale
// snapshot.
func (s *LocalStore) Upsert(_ context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	byID := make(map[string]int, len(s.docs))
	for i, d := range s.docs {
		byID[d.ID] = i
	}

	for _, doc := range docs {
		if i, ok := byID[doc.ID]; ok {
			s.docs[i] = doc
			continue
		}
		byID[doc.ID] = len(s.docs)
		s.docs = append(s.docs, doc)
	}

	return s.save()
}

// Search scans every document and returns the topK most similar. Stable
// sorting keeps ties in insertion order, which makes ranking deterministic.
func (s *LocalStore) Search(_ context.Context, query []float32, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", types.ErrVectorStore, topK)
	}
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, SearchResult{
			Score:    Cosine(query, doc.Embedding),
			Metadata: doc.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByFile drops every document whose file_path metadata equals path,
// then rewrites the snapshot. Deleting a path with no documents is a no-op.
func (s *LocalStore) DeleteByFile(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	kept := s.docs[:0]
	for _, doc := range s.docs {
		if fp, _ := doc.Metadata[MetaFilePath].(string); fp == path {
			continue
		}
		kept = append(kept, doc)
	}
	s.docs = kept

	return s.save()
}

// CreateDocument builds a document with the shared metadata shape.
func (s *LocalStore) CreateDocument(chunk types.CodeChunk, embedding []float32) Document {
	return newDocument(chunk, embedding)
}

// Len reports the number of stored documents.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// save rewrites the snapshot. Callers hold the write lock.
func (s *LocalStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create snapshot directory: %v", types.ErrVectorStore, err)
	}

	data, err := json.Marshal(s.docs)
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %v", types.ErrVectorStore, err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot %s: %v", types.ErrVectorStore, s.path, err)
	}
	return nil
}
