package chunker

import (
	"regexp"
	"strings"

	"github.com/codequery-ai/codequery/pkg/types"
)

// declPattern recognizes a declaration line. The regexp's first capture
// group, when present, is the declared name; names listed in reject are
// control-flow keywords the loose pattern would otherwise swallow.
type declPattern struct {
	re           *regexp.Regexp
	typ          types.ChunkType
	reject       map[string]struct{}
	requireBrace bool
}

func keywordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// braceSpans runs the patterns over every line and extends each match
// through its brace-balanced block. Nested declarations (methods inside a
// class) produce their own spans in addition to the enclosing one.
func braceSpans(lines []string, patterns []declPattern) []span {
	var spans []span
	for i, line := range lines {
		p := matchDecl(line, patterns)
		if p == nil {
			continue
		}
		end, opened := braceBlockEnd(lines, i)
		if p.requireBrace && !opened {
			continue
		}
		spans = append(spans, span{start: i + 1, end: end + 1, typ: p.typ})
	}
	return spans
}

func matchDecl(line string, patterns []declPattern) *declPattern {
	for i := range patterns {
		p := &patterns[i]
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if p.reject != nil && len(m) > 1 {
			if _, bad := p.reject[m[1]]; bad {
				continue
			}
		}
		return p
	}
	return nil
}

// braceBlockEnd finds the line closing the block that opens at start.
// Counting is textual, not lexical. A declaration that hits ';' before any
// '{' (prototype, unit struct, module declaration) ends on that line.
func braceBlockEnd(lines []string, start int) (end int, opened bool) {
	depth := 0
	for i := start; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i, true
		}
		if !opened && strings.Contains(lines[i], ";") {
			return i, false
		}
	}
	return len(lines) - 1, opened
}

var pythonDefRe = regexp.MustCompile(`^(async\s+)?def\s`)

// pythonSpans cuts blocks at def/class lines, extending each through every
// following line that is blank or indented deeper than the declaration.
func pythonSpans(_, _ string, lines []string) []span {
	var spans []span
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)

		var typ types.ChunkType
		switch {
		case pythonDefRe.MatchString(trimmed):
			typ = types.ChunkFunction
			if indent > 0 {
				typ = types.ChunkMethod
			}
		case strings.HasPrefix(trimmed, "class "):
			typ = types.ChunkClass
		default:
			continue
		}

		spans = append(spans, span{start: i + 1, end: pythonBlockEnd(lines, i, indent) + 1, typ: typ})
	}
	return spans
}

func pythonBlockEnd(lines []string, start, indent int) int {
	end := start
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimLeft(lines[i], " \t")
		if trimmed == "" {
			continue
		}
		if len(lines[i])-len(trimmed) <= indent {
			break
		}
		end = i
	}
	return end
}

var javascriptPatterns = []declPattern{
	{
		re:  regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*[\w$]*`),
		typ: types.ChunkFunction,
	},
	{
		re:  regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+[\w$]+\s*(?::[^=]+)?=.*=>`),
		typ: types.ChunkFunction,
	},
	{
		re:  regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+[\w$]+`),
		typ: types.ChunkClass,
	},
	{
		re:           regexp.MustCompile(`^\s+(?:static\s+)?(?:async\s+)?(?:get\s+|set\s+)?([\w$]+)\s*\([^)]*\)\s*\{`),
		typ:          types.ChunkMethod,
		reject:       keywordSet("if", "for", "while", "switch", "catch", "function", "return", "do", "else", "constructor"),
		requireBrace: true,
	},
}

func javascriptSpans(_, _ string, lines []string) []span {
	return braceSpans(lines, javascriptPatterns)
}

var rustPatterns = []declPattern{
	{
		re:  regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:const\s+)?(?:async\s+)?(?:unsafe\s+)?(?:extern\s+"[^"]*"\s+)?fn\s+\w+`),
		typ: types.ChunkFunction,
	},
	{
		re:  regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+\w+`),
		typ: types.ChunkClass,
	},
	{
		re:  regexp.MustCompile(`^\s*(?:pub(?:\([^)]*\))?\s+)?mod\s+\w+`),
		typ: types.ChunkModule,
	},
	{
		re:  regexp.MustCompile(`^\s*(?:unsafe\s+)?impl\b`),
		typ: types.ChunkOther,
	},
}

func rustSpans(_, _ string, lines []string) []span {
	return braceSpans(lines, rustPatterns)
}

var javaPatterns = []declPattern{
	{
		re:  regexp.MustCompile(`^\s*(?:(?:public|private|protected|final|abstract|static|strictfp)\s+)*(?:class|interface|enum|record)\s+\w+`),
		typ: types.ChunkClass,
	},
	{
		re:           regexp.MustCompile(`^\s+(?:(?:public|private|protected|static|final|synchronized|abstract|native)\s+)+[\w<>\[\],\s\.\?]+\s(\w+)\s*\([^;]*\)`),
		typ:          types.ChunkMethod,
		reject:       keywordSet("if", "for", "while", "switch", "catch", "new", "return"),
		requireBrace: true,
	},
}

func javaSpans(_, _ string, lines []string) []span {
	return braceSpans(lines, javaPatterns)
}

var cFamilyPatterns = []declPattern{
	{
		re:  regexp.MustCompile(`^\s*(?:typedef\s+)?(?:struct|class|union|enum)\s+\w+`),
		typ: types.ChunkClass,
	},
	{
		re:           regexp.MustCompile(`^(?:[\w:<>,&\*~]+[\s\*&]+)+([\w:~]+)\s*\([^;]*\)?\s*(?:const\s*)?\{?\s*$`),
		typ:          types.ChunkFunction,
		reject:       keywordSet("if", "for", "while", "switch", "return", "else", "do", "sizeof"),
		requireBrace: true,
	},
}

func cFamilySpans(_, _ string, lines []string) []span {
	return braceSpans(lines, cFamilyPatterns)
}
