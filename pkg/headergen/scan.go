// pkg/headergen/scan.go
// Finding //export functions in Go source

package headergen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Export is one function carrying a cgo //export directive.
type Export struct {
	Name     string         // name from the directive
	GoName   string         // name of the Go function
	Position token.Position // file, line and column
	Params   []Param
	Results  []string

	decl *ast.FuncDecl
}

// Param is a Go parameter of an exported function.
type Param struct {
	Name string
	Type string // type as written, e.g. "*C.char"
}

// ScanExports parses the non-test Go files of dir and returns its
// exported entry points sorted by name.
//
// LEARN: The parser does not need cgo to run. `import "C"` is just an
// import path to it, so the scan works on machines without a C compiler.
func ScanExports(dir string) ([]Export, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	fset := token.NewFileSet()
	var exports []Export
	for _, path := range matches {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		exports = append(exports, exportsOf(file, fset)...)
	}

	if len(matches) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
	}

	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return exports, nil
}

// ScanSource is ScanExports for a single in-memory file.
func ScanSource(src string) ([]Export, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "source.go", src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	return exportsOf(file, fset), nil
}

func exportsOf(file *ast.File, fset *token.FileSet) []Export {
	var out []Export
	for _, d := range file.Decls {
		fn, ok := d.(*ast.FuncDecl)
		if !ok || fn.Doc == nil || fn.Recv != nil {
			continue
		}
		name, ok := exportDirective(fn.Doc)
		if !ok {
			continue
		}

		e := Export{
			Name:     name,
			GoName:   fn.Name.Name,
			Position: fset.Position(fn.Pos()),
			decl:     fn,
		}
		for _, field := range fn.Type.Params.List {
			typ := types.ExprString(field.Type)
			if len(field.Names) == 0 {
				e.Params = append(e.Params, Param{Type: typ})
			}
			for _, n := range field.Names {
				e.Params = append(e.Params, Param{Name: n.Name, Type: typ})
			}
		}
		if fn.Type.Results != nil {
			for _, field := range fn.Type.Results.List {
				e.Results = append(e.Results, types.ExprString(field.Type))
			}
		}
		out = append(out, e)
	}
	return out
}

// exportDirective returns the name from a "//export name" line.
//
// LEARN: Directives are raw comment text; CommentGroup.Text() strips them,
// so the individual comments have to be read.
func exportDirective(doc *ast.CommentGroup) (string, bool) {
	for _, c := range doc.List {
		if rest, ok := strings.CutPrefix(c.Text, "//export "); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
