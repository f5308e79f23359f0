package types

import "errors"

// ChunkType classifies what kind of declaration a chunk was cut from.
type ChunkType string

const (
	ChunkFunction ChunkType = "Function"
	ChunkClass    ChunkType = "Class"
	ChunkMethod   ChunkType = "Method"
	ChunkModule   ChunkType = "Module"
	ChunkComment  ChunkType = "Comment"
	ChunkOther    ChunkType = "Other"
)

// CodeChunk is a contiguous span of one file's content, padded with a few
// lines of surrounding context. Line numbers are 1-based and inclusive.
type CodeChunk struct {
	FilePath  string
	Content   string
	StartLine int
	EndLine   int
	Type      ChunkType
	Language  string
}

// Validate checks the structural invariants of a chunk.
func (c *CodeChunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	return nil
}
