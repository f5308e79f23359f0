// Package chunker turns source files into semantically scoped chunks. Files
// in a supported language are cut at declaration boundaries; everything else
// falls back to fixed-size sliding windows so no non-empty file is lost.
package chunker

import (
	"fmt"
	"os"
	"strings"

	"github.com/codequery-ai/codequery/pkg/types"
)

const (
	// contextLines pads each structural chunk's content on both sides so
	// short captures still carry enough surrounding syntax to embed well.
	contextLines = 3

	// fallbackWindow and fallbackOverlap shape the sliding windows used
	// when no structural chunks can be extracted.
	fallbackWindow  = 50
	fallbackOverlap = 10
)

// span is a structural capture: a 1-based inclusive line range plus its
// declaration kind.
type span struct {
	start int
	end   int
	typ   types.ChunkType
}

// Chunker extracts chunks from source files.
type Chunker struct{}

// New creates a Chunker.
func New() *Chunker {
	return &Chunker{}
}

// ChunkFile reads a file and chunks its content.
func (c *Chunker) ChunkFile(path string) ([]types.CodeChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrIndexing, path, err)
	}
	return c.Chunk(path, string(data)), nil
}

// Chunk splits content into chunks. The language is detected from the path's
// extension, falling back to a shebang sniff. A supported language goes
// through its structural scanner; zero structural captures (unsupported
// language, scanner found nothing, unparseable file) trigger the windowed
// fallback. An empty file yields no chunks.
func (c *Chunker) Chunk(path, content string) []types.CodeChunk {
	if content == "" {
		return nil
	}

	language := DetectLanguage(path, content)
	lines := splitLines(content)

	if scan := scannerFor(language); scan != nil {
		if spans := scan(path, content, lines); len(spans) > 0 {
			return c.structuralChunks(path, language, lines, spans)
		}
	}
	return c.fallbackChunks(path, language, lines)
}

// structuralChunks converts spans into chunks, padding each chunk's content
// with up to contextLines lines on both sides, clamped to the file bounds.
// The recorded line range stays the capture's own span.
func (c *Chunker) structuralChunks(path, language string, lines []string, spans []span) []types.CodeChunk {
	chunks := make([]types.CodeChunk, 0, len(spans))
	for _, s := range spans {
		if s.start < 1 || s.end < s.start || s.start > len(lines) {
			continue
		}
		end := s.end
		if end > len(lines) {
			end = len(lines)
		}

		padStart := s.start - 1 - contextLines
		if padStart < 0 {
			padStart = 0
		}
		padEnd := end + contextLines
		if padEnd > len(lines) {
			padEnd = len(lines)
		}

		chunks = append(chunks, types.CodeChunk{
			FilePath:  path,
			Content:   strings.Join(lines[padStart:padEnd], "\n"),
			StartLine: s.start,
			EndLine:   end,
			Type:      s.typ,
			Language:  language,
		})
	}
	return chunks
}

// fallbackChunks covers the whole file with fallbackWindow-line windows
// overlapping by fallbackOverlap lines. The last window always ends at the
// final line.
func (c *Chunker) fallbackChunks(path, language string, lines []string) []types.CodeChunk {
	var chunks []types.CodeChunk
	stride := fallbackWindow - fallbackOverlap

	for i := 0; i < len(lines); i += stride {
		end := i + fallbackWindow
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, types.CodeChunk{
			FilePath:  path,
			Content:   strings.Join(lines[i:end], "\n"),
			StartLine: i + 1,
			EndLine:   end,
			Type:      types.ChunkOther,
			Language:  language,
		})
	}
	return chunks
}

// splitLines splits on newlines without manufacturing a phantom final line
// for content that ends in one.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
