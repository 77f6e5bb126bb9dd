// internal/cabi/preamble_test.go

package cabi

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cgo compiles each preamble before it writes _cgo_export.h, so a
// preamble that includes it cannot build. C calling back into Go lives
// in the .c files instead.
func TestPreamblesDoNotIncludeExportHeader(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatal(err)
	}

	fset := token.NewFileSet()
	preambles := 0
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly|parser.ParseComments)
		if err != nil {
			t.Fatal(err)
		}
		for _, decl := range f.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.IMPORT || !importsC(gen) {
				continue
			}
			preambles++
			if gen.Doc != nil && strings.Contains(gen.Doc.Text(), "_cgo_export.h") {
				t.Errorf("%s: preamble includes _cgo_export.h", path)
			}
		}
	}
	if preambles == 0 {
		t.Fatal("no cgo preambles found")
	}
}

func importsC(gen *ast.GenDecl) bool {
	for _, spec := range gen.Specs {
		if is, ok := spec.(*ast.ImportSpec); ok && is.Path.Value == `"C"` {
			return true
		}
	}
	return false
}

// A .c file without the cgo constraint breaks CGO_ENABLED=0 builds.
func TestCSourcesAreCgoOnly(t *testing.T) {
	for _, name := range []string{"selfcheck.c", "trampoline.c"} {
		data, err := os.ReadFile(name)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(data), "//go:build cgo\n") {
			t.Errorf("%s: missing //go:build cgo", name)
		}
		if !strings.Contains(string(data), `#include "_cgo_export.h"`) {
			t.Errorf("%s: does not include _cgo_export.h", name)
		}
	}
}
