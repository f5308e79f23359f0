package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequery-ai/codequery/pkg/types"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s := NewLocalStore(filepath.Join(t.TempDir(), "snapshot.json"))
	require.NoError(t, s.Initialize(context.Background(), 3))
	return s
}

func docWithPath(id, path string, embedding []float32) Document {
	return Document{
		ID:        id,
		Embedding: embedding,
		Metadata:  map[string]any{MetaFilePath: path, MetaContent: "x"},
	}
}

func TestLocalStoreSearchRanking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Document{
		docWithPath("a", "a.go", []float32{1, 0, 0}),
		docWithPath("b", "b.go", []float32{0, 1, 0}),
		docWithPath("c", "c.go", []float32{0.9, 0.1, 0}),
	}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a.go", results[0].Metadata[MetaFilePath])
	assert.Equal(t, "c.go", results[1].Metadata[MetaFilePath])
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLocalStoreSearchEmpty(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocalStoreUpsertReplacesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Document{docWithPath("a", "old.go", []float32{1, 0, 0})}))
	require.NoError(t, s.Upsert(ctx, []Document{docWithPath("a", "new.go", []float32{0, 1, 0})}))

	assert.Equal(t, 1, s.Len())

	results, err := s.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new.go", results[0].Metadata[MetaFilePath])
}

func TestLocalStoreDeleteByFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Document{
		docWithPath("a", "keep.go", []float32{1, 0, 0}),
		docWithPath("b", "drop.go", []float32{0, 1, 0}),
		docWithPath("c", "drop.go", []float32{0, 0, 1}),
	}))

	require.NoError(t, s.DeleteByFile(ctx, "drop.go"))
	assert.Equal(t, 1, s.Len())

	// Deleting an absent path is a no-op, not an error.
	require.NoError(t, s.DeleteByFile(ctx, "never-indexed.go"))
	assert.Equal(t, 1, s.Len())
}

func TestLocalStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	ctx := context.Background()

	first := NewLocalStore(path)
	require.NoError(t, first.Initialize(ctx, 3))
	chunk := types.CodeChunk{
		FilePath: "main.go", Content: "func main() {}",
		StartLine: 1, EndLine: 3,
		Type: types.ChunkFunction, Language: "go",
	}
	doc := first.CreateDocument(chunk, []float32{1, 0, 0})
	require.NoError(t, first.Upsert(ctx, []Document{doc}))

	second := NewLocalStore(path)
	require.NoError(t, second.Initialize(ctx, 3))
	assert.Equal(t, 1, second.Len())

	results, err := second.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, "main.go", results[0].Metadata[MetaFilePath])
	assert.Equal(t, "func main() {}", results[0].Metadata[MetaContent])
}

func TestLocalStoreLoadsSnapshotWithoutInitialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	ctx := context.Background()

	first := NewLocalStore(path)
	require.NoError(t, first.Upsert(ctx, []Document{
		docWithPath("a", "main.go", []float32{1, 0, 0}),
		docWithPath("b", "other.go", []float32{0, 1, 0}),
	}))

	// A fresh instance on the same path must see the snapshot on first
	// access, with no Initialize call in between.
	second := NewLocalStore(path)
	results, err := second.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "main.go", results[0].Metadata[MetaFilePath])

	// Mutations on yet another fresh instance must not clobber the
	// snapshot either.
	third := NewLocalStore(path)
	require.NoError(t, third.DeleteByFile(ctx, "other.go"))
	assert.Equal(t, 1, third.Len())
}
