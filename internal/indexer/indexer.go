// Package indexer orchestrates discovery, chunking, embedding, and storage
// into full indexing passes and an optional live watch loop.
package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codequery-ai/codequery/internal/chunker"
	"github.com/codequery-ai/codequery/internal/discovery"
	"github.com/codequery-ai/codequery/internal/embedder"
	"github.com/codequery-ai/codequery/internal/vector"
	"github.com/codequery-ai/codequery/pkg/types"
)

// Indexer runs the chunk → embed → upsert pipeline.
type Indexer struct {
	walker    *discovery.Walker
	chunker   *chunker.Chunker
	provider  embedder.Provider
	store     vector.Store
	batchSize int

	// OnProgress, when set, is called after each file of a full pass.
	OnProgress func(done, total int)
}

// New wires an Indexer from its collaborators.
func New(walker *discovery.Walker, ch *chunker.Chunker, provider embedder.Provider, store vector.Store, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Indexer{
		walker:    walker,
		chunker:   ch,
		provider:  provider,
		store:     store,
		batchSize: batchSize,
	}
}

// Index runs one full pass over the given roots. Every root is walked up
// front so progress reports run against the grand total. Files are processed
// one at a time in discovery order; a per-file failure is counted and logged
// but never aborts the pass.
func (ix *Indexer) Index(ctx context.Context, roots []string) (*types.IndexStats, error) {
	if err := ix.store.Initialize(ctx, ix.provider.Dimensions()); err != nil {
		return nil, err
	}

	var files []string
	for _, root := range roots {
		found, err := ix.walker.Walk(root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	stats := &types.IndexStats{}
	for _, path := range files {
		stats.TotalFiles++
		chunks, err := ix.indexFile(ctx, path)
		if err != nil {
			stats.FailedFiles++
			log.Warn().Err(err).Str("file", path).Msg("failed to index file")
		} else {
			stats.IndexedFiles++
			stats.TotalChunks += chunks
		}
		if ix.OnProgress != nil {
			ix.OnProgress(stats.TotalFiles, len(files))
		}
	}

	log.Info().
		Int("total", stats.TotalFiles).
		Int("indexed", stats.IndexedFiles).
		Int("failed", stats.FailedFiles).
		Int("chunks", stats.TotalChunks).
		Msg("indexing pass complete")
	return stats, nil
}

// Watch runs a full pass and then applies filesystem events until every
// watch closes or the context is canceled. A watch that cannot be
// established is fatal.
func (ix *Indexer) Watch(ctx context.Context, roots []string) (*types.IndexStats, error) {
	stats, err := ix.Index(ctx, roots)
	if err != nil {
		return nil, err
	}

	watches := make([]*discovery.Watch, 0, len(roots))
	for _, root := range roots {
		w, err := ix.walker.Watch(root)
		if err != nil {
			for _, open := range watches {
				_ = open.Close()
			}
			return nil, fmt.Errorf("%w: watch %s: %v", types.ErrIndexing, root, err)
		}
		watches = append(watches, w)
		log.Info().Str("root", root).Msg("watching for changes")
	}
	defer func() {
		for _, w := range watches {
			_ = w.Close()
		}
	}()

	events := mergeEvents(ctx, watches)
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return stats, nil
			}
			ix.applyEvent(ctx, ev)
		}
	}
}

// mergeEvents fans all watch streams into one channel, closed once every
// stream has closed or the context is canceled. Events keep per-stream
// arrival order. The context bound keeps forwarders from blocking forever
// when the consumer stops reading.
func mergeEvents(ctx context.Context, watches []*discovery.Watch) <-chan discovery.Event {
	merged := make(chan discovery.Event)
	var wg sync.WaitGroup
	wg.Add(len(watches))
	for _, w := range watches {
		go func(events <-chan discovery.Event) {
			defer wg.Done()
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					select {
					case merged <- ev:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(w.Events)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}

// applyEvent handles one filesystem event. Failures are logged, never
// propagated; last writer wins on back-to-back events for the same path.
func (ix *Indexer) applyEvent(ctx context.Context, ev discovery.Event) {
	log.Debug().Stringer("event", ev.Kind).Str("file", ev.Path).Msg("file change")

	switch ev.Kind {
	case discovery.EventCreated, discovery.EventModified:
		if _, err := ix.indexFile(ctx, ev.Path); err != nil {
			log.Warn().Err(err).Str("file", ev.Path).Msg("failed to reindex file")
		}
	case discovery.EventDeleted:
		if err := ix.store.DeleteByFile(ctx, ev.Path); err != nil {
			log.Warn().Err(err).Str("file", ev.Path).Msg("failed to remove deleted file")
		}
	}
}

// indexFile chunks one file, embeds the chunk texts, and replaces the file's
// documents in the store. Returns the number of chunks written. A file with
// zero chunks is skipped without touching the store.
func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	chunks, err := ix.chunker.ChunkFile(path)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := ix.provider.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return 0, err
		}
		embeddings = append(embeddings, batch...)
	}

	docs := make([]vector.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = ix.store.CreateDocument(c, embeddings[i])
	}

	// Replace the file's previous documents wholesale; document ids are
	// fresh on every pass, so stale chunks must go first.
	if err := ix.store.DeleteByFile(ctx, path); err != nil {
		return 0, err
	}
	if err := ix.store.Upsert(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
