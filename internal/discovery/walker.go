// Package discovery enumerates indexable files under a root and, in watch
// mode, streams raw filesystem change events for them.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/codequery-ai/codequery/pkg/types"
)

// defaultExcludeDirs are directory names never descended into. Version
// control metadata plus the usual dependency and build output trees.
var defaultExcludeDirs = map[string]struct{}{
	".git":          {},
	"node_modules":  {},
	"target":        {},
	"dist":          {},
	"build":         {},
	"vendor":        {},
	"__pycache__":   {},
	".pytest_cache": {},
	".mypy_cache":   {},
}

// binaryExtensions denote compiled or packed artifacts that are never worth
// chunking.
var binaryExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".o": {}, ".a": {},
	".bin": {}, ".wasm": {}, ".zip": {}, ".tar": {}, ".gz": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {}, ".pdf": {},
}

// Walker finds regular files under a root, honoring the root's own ignore
// rules plus a built-in denylist. Traversal order is unspecified.
type Walker struct {
	excludeDirs  map[string]struct{}
	excludeGlobs []string
}

// NewWalker creates a Walker with the default denylist.
func NewWalker() *Walker {
	return &Walker{excludeDirs: defaultExcludeDirs}
}

// WithExcludeGlobs adds user-supplied glob patterns (doublestar syntax,
// matched against root-relative paths) to the exclusion set.
func (w *Walker) WithExcludeGlobs(patterns []string) *Walker {
	w.excludeGlobs = append(w.excludeGlobs, patterns...)
	return w
}

// Walk returns every indexable regular file beneath root. Errors reading a
// directory entry abort the walk and are propagated.
func (w *Walker) Walk(root string) ([]string, error) {
	matcher := loadIgnoreRules(root)

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := w.excludeDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if matcher != nil && matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if w.shouldIgnore(rel, matcher) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", types.ErrIndexing, root, err)
	}

	return files, nil
}

// shouldIgnore applies extension, ignore-file, and glob exclusions to a
// root-relative file path.
func (w *Walker) shouldIgnore(rel string, matcher *gitignore.GitIgnore) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	if _, skip := binaryExtensions[ext]; skip {
		return true
	}
	if matcher != nil && matcher.MatchesPath(rel) {
		return true
	}
	for _, pattern := range w.excludeGlobs {
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

// loadIgnoreRules compiles the root's .gitignore, its local excludes, and
// the user's global ignore file into one matcher. Missing files are fine;
// a tree with no ignore rules yields a nil matcher.
func loadIgnoreRules(root string) *gitignore.GitIgnore {
	var lines []string

	for _, candidate := range ignoreFileCandidates(root) {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}

	if len(lines) == 0 {
		return nil
	}
	return gitignore.CompileIgnoreLines(lines...)
}

func ignoreFileCandidates(root string) []string {
	candidates := []string{
		filepath.Join(root, ".gitignore"),
		filepath.Join(root, ".git", "info", "exclude"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "git", "ignore"))
	}
	return candidates
}
