// Package headergen turns the boundary's declared entry points into a C
// header and cross-checks them against the //export functions in Go
// source.
//
// LEARN: The header is generated from the same metadata the Go side is
// checked against, so a struct layout or a release pairing cannot be
// changed in one place and forgotten in the other.
package headergen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/khaaliswooden-max/ffibridge/pkg/boundary"
)

// Options control header rendering.
type Options struct {
	Guard        string // include guard macro; derived from the library name when empty
	IncludePairs bool   // emit "Released by" notes on acquiring functions
	Generator    string // tool name for the generated-code banner
}

// Render emits a C header for abi.
func Render(abi boundary.ABI, opts Options) ([]byte, error) {
	if err := abi.Validate(); err != nil {
		return nil, fmt.Errorf("render header: %w", err)
	}
	if opts.Guard == "" {
		opts.Guard = strings.ToUpper(abi.Library) + "_H"
	}
	if opts.Generator == "" {
		opts.Generator = "ffigen"
	}

	var b bytes.Buffer

	fmt.Fprintf(&b, "/* Code generated by %s. DO NOT EDIT. */\n\n", opts.Generator)
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", opts.Guard, opts.Guard)
	b.WriteString("#include <stdbool.h>\n#include <stddef.h>\n#include <stdint.h>\n\n")
	b.WriteString("#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")

	for _, t := range abi.Types {
		writeDoc(&b, t.Doc, "")
		switch t.Kind {
		case boundary.KindOpaque:
			fmt.Fprintf(&b, "typedef struct %s %s;\n\n", t.Tag, t.Name)
		default:
			fmt.Fprintf(&b, "typedef struct %s {\n", t.Tag)
			for _, f := range t.Fields {
				fmt.Fprintf(&b, "    %s;\n", Declarator(f.CType, f.Name))
			}
			fmt.Fprintf(&b, "} %s;\n\n", t.Name)
		}
	}

	for _, f := range abi.Funcs {
		released := ""
		if opts.IncludePairs {
			released = f.ReleasedBy
		}
		writeDoc(&b, f.Doc, released)
		b.WriteString(Prototype(f))
		b.WriteString(";\n\n")
	}

	b.WriteString("#ifdef __cplusplus\n} /* extern \"C\" */\n#endif\n\n")
	fmt.Fprintf(&b, "#endif /* %s */\n", opts.Guard)

	return b.Bytes(), nil
}

// Prototype renders a function declaration without the trailing semicolon.
func Prototype(f boundary.FuncDecl) string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = Declarator(p.CType, p.Name)
	}
	list := "void"
	if len(params) > 0 {
		list = strings.Join(params, ", ")
	}
	return fmt.Sprintf("%s %s (%s)", f.Result, f.Name, list)
}

// Declarator places name inside a C type spelling: after a plain type,
// inside the "(*)" of a function pointer, or before an array bound.
func Declarator(ctype, name string) string {
	if i := strings.Index(ctype, "(*)"); i >= 0 {
		return ctype[:i] + "(*" + name + ")" + ctype[i+3:]
	}
	if i := strings.IndexByte(ctype, '['); i >= 0 {
		return ctype[:i] + " " + name + ctype[i:]
	}
	return ctype + " " + name
}

func writeDoc(b *bytes.Buffer, doc, releasedBy string) {
	if doc == "" && releasedBy == "" {
		return
	}
	b.WriteString("/**\n")
	if doc != "" {
		for _, line := range strings.Split(doc, "\n") {
			fmt.Fprintf(b, " * %s\n", line)
		}
	}
	if releasedBy != "" {
		if doc != "" {
			b.WriteString(" *\n")
		}
		fmt.Fprintf(b, " * Released by: %s\n", releasedBy)
	}
	b.WriteString(" */\n")
}
