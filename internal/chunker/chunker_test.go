package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequery-ai/codequery/pkg/types"
)

func chunkTypes(chunks []types.CodeChunk) []types.ChunkType {
	out := make([]types.ChunkType, len(chunks))
	for i, c := range chunks {
		out[i] = c.Type
	}
	return out
}

func assertLineBounds(t *testing.T, chunks []types.CodeChunk, totalLines int) {
	t.Helper()
	for _, c := range chunks {
		assert.LessOrEqual(t, c.StartLine, c.EndLine)
		assert.GreaterOrEqual(t, c.StartLine, 1)
		assert.LessOrEqual(t, c.EndLine, totalLines)
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "go", DetectLanguage("main.go", ""))
	assert.Equal(t, "rs", DetectLanguage("lib.rs", ""))
	assert.Equal(t, "tsx", DetectLanguage("App.tsx", ""))
	assert.Equal(t, "cpp", DetectLanguage("engine.CPP", ""))
	assert.Equal(t, "py", DetectLanguage("script", "#!/usr/bin/env python\nprint(1)\n"))
	assert.Equal(t, "js", DetectLanguage("tool", "#!/usr/bin/env node\nconsole.log(1)\n"))
	assert.Equal(t, "unknown", DetectLanguage("notes.txt", "just text"))
}

func TestChunkEmptyFile(t *testing.T) {
	assert.Empty(t, New().Chunk("empty.go", ""))
}

func TestChunkGoFile(t *testing.T) {
	src := `package sample

type Greeter struct {
	name string
}

func (g *Greeter) Greet() string {
	return "hello " + g.name
}

func Add(a, b int) int {
	return a + b
}
`
	chunks := New().Chunk("sample.go", src)
	require.Len(t, chunks, 3)
	assert.Equal(t, []types.ChunkType{types.ChunkClass, types.ChunkMethod, types.ChunkFunction}, chunkTypes(chunks))
	assertLineBounds(t, chunks, 13)

	for _, c := range chunks {
		assert.Equal(t, "go", c.Language)
		assert.Equal(t, "sample.go", c.FilePath)
	}

	add := chunks[2]
	assert.Equal(t, 11, add.StartLine)
	assert.Equal(t, 13, add.EndLine)
	// Padding pulls in up to three lines before the declaration.
	assert.Contains(t, add.Content, `return "hello " + g.name`)
	assert.Contains(t, add.Content, "func Add(a, b int) int")
}

func TestChunkGoFileUnparseable(t *testing.T) {
	chunks := New().Chunk("broken.go", "this is not go code\nat all\n")
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, types.ChunkOther, c.Type)
	}
}

func TestChunkPythonFile(t *testing.T) {
	src := `import os

def top():
    return 1

class Thing:
    def method(self):
        return 2
`
	chunks := New().Chunk("thing.py", src)
	require.Len(t, chunks, 3)
	assert.Equal(t, []types.ChunkType{types.ChunkFunction, types.ChunkClass, types.ChunkMethod}, chunkTypes(chunks))
	assertLineBounds(t, chunks, 8)

	cls := chunks[1]
	assert.Equal(t, 6, cls.StartLine)
	assert.Equal(t, 8, cls.EndLine)
}

func TestChunkJavaScriptFile(t *testing.T) {
	src := `export function render(tree) {
  return tree;
}

const sum = (a, b) => a + b;

class Widget {
  draw() {
    return null;
  }
}
`
	chunks := New().Chunk("ui.js", src)
	require.Len(t, chunks, 4)
	assert.Equal(t, []types.ChunkType{
		types.ChunkFunction, types.ChunkFunction, types.ChunkClass, types.ChunkMethod,
	}, chunkTypes(chunks))
	assertLineBounds(t, chunks, 11)
}

func TestChunkRustFile(t *testing.T) {
	src := `pub struct Point {
    x: f64,
}

impl Point {
    pub fn norm(&self) -> f64 {
        self.x.abs()
    }
}
`
	chunks := New().Chunk("point.rs", src)
	require.Len(t, chunks, 3)
	assert.Equal(t, []types.ChunkType{types.ChunkClass, types.ChunkOther, types.ChunkFunction}, chunkTypes(chunks))
	assertLineBounds(t, chunks, 9)
}

func TestChunkJavaFile(t *testing.T) {
	src := `package demo;

public class Account {
    private long balance;

    public long getBalance() {
        return balance;
    }
}
`
	chunks := New().Chunk("Account.java", src)
	require.Len(t, chunks, 2)
	assert.Equal(t, []types.ChunkType{types.ChunkClass, types.ChunkMethod}, chunkTypes(chunks))
	assertLineBounds(t, chunks, 9)
}

func TestFallbackWindowsCoverFile(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("line of plain text\n")
	}

	chunks := New().Chunk("notes.txt", sb.String())
	require.Len(t, chunks, 3)

	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 50, chunks[0].EndLine)
	assert.Equal(t, 41, chunks[1].StartLine)
	assert.Equal(t, 90, chunks[1].EndLine)
	assert.Equal(t, 81, chunks[2].StartLine)
	assert.Equal(t, 120, chunks[2].EndLine)

	for _, c := range chunks {
		assert.Equal(t, types.ChunkOther, c.Type)
		assert.Equal(t, "unknown", c.Language)
	}
}

func TestFallbackShortFileSingleWindow(t *testing.T) {
	chunks := New().Chunk("short.txt", "one\ntwo\nthree\n")
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
	assert.Equal(t, "one\ntwo\nthree", chunks[0].Content)
}

func TestShebangScriptGetsStructuralChunks(t *testing.T) {
	src := "#!/usr/bin/env python\ndef main():\n    pass\n"
	chunks := New().Chunk("run", src)
	require.Len(t, chunks, 1)
	assert.Equal(t, types.ChunkFunction, chunks[0].Type)
	assert.Equal(t, "py", chunks[0].Language)
}
