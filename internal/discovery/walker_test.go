package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkSkipsDenylistedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, root, "target/debug/app", "binary")
	writeFile(t, root, "src/lib.rs", "fn main() {}\n")

	files, err := NewWalker().Walk(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "src", "lib.rs"),
	}, files)
}

func TestWalkSkipsBinaryExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "print('hi')\n")
	writeFile(t, root, "app.exe", "MZ")
	writeFile(t, root, "lib.so", "ELF")
	writeFile(t, root, "logo.png", "PNG")

	files, err := NewWalker().Walk(root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "app.py")}, files)
}

func TestWalkHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\ngenerated/\n")
	writeFile(t, root, "keep.go", "package keep\n")
	writeFile(t, root, "debug.log", "noise")
	writeFile(t, root, "generated/out.go", "package out\n")

	files, err := NewWalker().Walk(root)
	require.NoError(t, err)

	assert.Contains(t, files, filepath.Join(root, "keep.go"))
	assert.NotContains(t, files, filepath.Join(root, "debug.log"))
	assert.NotContains(t, files, filepath.Join(root, "generated", "out.go"))
	// The ignore file itself is still a regular text file.
	assert.Contains(t, files, filepath.Join(root, ".gitignore"))
}

func TestWalkExcludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b/skip_test.go", "package b\n")
	writeFile(t, root, "a/b/keep.go", "package b\n")

	files, err := NewWalker().WithExcludeGlobs([]string{"**/*_test.go"}).Walk(root)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(root, "a", "b", "keep.go")}, files)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := NewWalker().Walk(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "modified", EventModified.String())
	assert.Equal(t, "deleted", EventDeleted.String())
}
