package chunker

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/codequery-ai/codequery/pkg/types"
)

// goSpans extracts top-level Go declarations with the standard library
// parser. Syntax errors are non-fatal: whatever partial AST comes back still
// contributes spans, and a nil AST defers to the fallback.
func goSpans(path, content string, _ []string) []span {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.SkipObjectResolution)
	if file == nil && err != nil {
		return nil
	}

	var spans []span
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			typ := types.ChunkFunction
			if d.Recv != nil && len(d.Recv.List) > 0 {
				typ = types.ChunkMethod
			}
			spans = append(spans, span{
				start: fset.Position(d.Pos()).Line,
				end:   fset.Position(d.End()).Line,
				typ:   typ,
			})
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			spans = append(spans, span{
				start: fset.Position(d.Pos()).Line,
				end:   fset.Position(d.End()).Line,
				typ:   types.ChunkClass,
			})
		}
	}
	return spans
}
