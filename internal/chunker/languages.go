package chunker

import (
	"path/filepath"
	"strings"
)

// supportedLanguages maps file extensions (without the dot) to themselves.
// The language tag carried on a chunk is the extension that selected it.
var supportedLanguages = map[string]struct{}{
	"rs": {}, "py": {}, "js": {}, "ts": {}, "tsx": {}, "go": {},
	"java": {}, "c": {}, "h": {}, "cc": {}, "cxx": {}, "cpp": {}, "hpp": {},
}

// DetectLanguage resolves a language tag for a file. The extension wins when
// it names a supported language; otherwise a shebang sniff recognizes python
// and node scripts; otherwise the tag is "unknown".
func DetectLanguage(path, content string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if _, ok := supportedLanguages[ext]; ok {
		return ext
	}

	if strings.HasPrefix(content, "#!/usr/bin/env python") ||
		strings.HasPrefix(content, "#!/usr/bin/python") {
		return "py"
	}
	if strings.HasPrefix(content, "#!/usr/bin/env node") ||
		strings.HasPrefix(content, "#!/usr/bin/node") {
		return "js"
	}

	return "unknown"
}

// scanFunc extracts structural spans from a file's content. Implementations
// receive both the raw content and its pre-split lines; returning no spans
// hands the file to the windowed fallback.
type scanFunc func(path, content string, lines []string) []span

// scannerFor selects the structural scanner for a language tag, or nil when
// only the fallback applies.
func scannerFor(language string) scanFunc {
	switch language {
	case "go":
		return goSpans
	case "py":
		return pythonSpans
	case "js", "ts", "tsx":
		return javascriptSpans
	case "rs":
		return rustSpans
	case "java":
		return javaSpans
	case "c", "h", "cc", "cxx", "cpp", "hpp":
		return cFamilySpans
	}
	return nil
}
