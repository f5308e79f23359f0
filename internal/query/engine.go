// Package query answers natural-language questions about indexed code:
// embed the question, retrieve the nearest chunks, assemble a context
// document, and ask the completion model.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codequery-ai/codequery/internal/embedder"
	"github.com/codequery-ai/codequery/internal/vector"
	"github.com/codequery-ai/codequery/pkg/types"
)

// noResultsAnswer is returned when the store has nothing relevant. Not an
// error.
const noResultsAnswer = "No relevant code found for your query."

// Engine ties retrieval and completion together.
type Engine struct {
	provider embedder.Provider
	store    vector.Store
	llm      *LLMClient

	// OnDelta, when set, receives each streamed answer fragment as it
	// arrives. Only used for streaming queries.
	OnDelta func(text string)
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(provider embedder.Provider, store vector.Store, llm *LLMClient) *Engine {
	return &Engine{provider: provider, store: store, llm: llm}
}

// Query answers a question from the topK most similar chunks. With stream
// set, the answer is accumulated from incremental completion fragments.
func (e *Engine) Query(ctx context.Context, question string, topK int, stream bool) (*types.QueryResponse, error) {
	log.Debug().Str("question", question).Int("top_k", topK).Msg("processing query")

	queryVector, err := e.provider.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", types.ErrEmbedding, err)
	}

	results, err := e.store.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &types.QueryResponse{Answer: noResultsAnswer, References: []types.CodeReference{}}, nil
	}

	contextDoc := buildContext(results)
	references := extractReferences(results)

	var answer string
	if stream {
		answer, err = e.llm.StreamCompletion(ctx, question, contextDoc, e.OnDelta)
	} else {
		answer, err = e.llm.Completion(ctx, question, contextDoc)
	}
	if err != nil {
		return nil, err
	}

	return &types.QueryResponse{Answer: answer, References: references}, nil
}

// buildContext concatenates the retrieved chunks into one prompt document.
// Results missing content or file path metadata contribute nothing; a
// missing line range just omits the Lines header.
func buildContext(results []vector.SearchResult) string {
	var sb strings.Builder

	for i, result := range results {
		content, ok := result.Metadata[vector.MetaContent].(string)
		if !ok {
			continue
		}
		filePath, ok := result.Metadata[vector.MetaFilePath].(string)
		if !ok {
			continue
		}

		fmt.Fprintf(&sb, "\n--- Result %d (score: %.3f) ---\n", i+1, result.Score)
		fmt.Fprintf(&sb, "File: %s\n", filePath)
		if lineStart, ok := metaInt(result.Metadata, vector.MetaLineStart); ok {
			fmt.Fprintf(&sb, "Lines: %d", lineStart)
			if lineEnd, ok := metaInt(result.Metadata, vector.MetaLineEnd); ok {
				fmt.Fprintf(&sb, "-%d", lineEnd)
			}
			sb.WriteByte('\n')
		}
		sb.WriteString("```\n")
		sb.WriteString(content)
		sb.WriteString("\n```\n")
	}

	return sb.String()
}

// extractReferences keeps one reference per result carrying all of file
// path, line range, and content. Incomplete results are dropped silently.
func extractReferences(results []vector.SearchResult) []types.CodeReference {
	references := make([]types.CodeReference, 0, len(results))

	for _, result := range results {
		filePath, ok := result.Metadata[vector.MetaFilePath].(string)
		if !ok {
			continue
		}
		lineStart, ok := metaInt(result.Metadata, vector.MetaLineStart)
		if !ok {
			continue
		}
		lineEnd, ok := metaInt(result.Metadata, vector.MetaLineEnd)
		if !ok {
			continue
		}
		snippet, ok := result.Metadata[vector.MetaContent].(string)
		if !ok {
			continue
		}

		references = append(references, types.CodeReference{
			FilePath:       filePath,
			LineStart:      lineStart,
			LineEnd:        lineEnd,
			Snippet:        snippet,
			RelevanceScore: result.Score,
		})
	}

	return references
}

// metaInt reads an integer metadata value. Numbers arrive as int from the
// indexer but as float64 after a JSON round trip through a snapshot or a
// remote payload.
func metaInt(metadata map[string]any, key string) (int, bool) {
	switch v := metadata[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
