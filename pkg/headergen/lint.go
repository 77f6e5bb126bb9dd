// pkg/headergen/lint.go
// Checks on //export functions
//
// LEARN: cgo accepts many exported signatures that are wrong at runtime.
// A Go string or slice passed to C carries a Go pointer; a panic escaping
// an export unwinds into C frames. These rules catch both from the AST.

package headergen

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
)

// Severity indicates how serious a diagnostic is.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is a single finding.
type Diagnostic struct {
	Position token.Position
	Severity Severity
	Rule     string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s [%s]: %s",
		d.Position.Filename, d.Position.Line, d.Position.Column,
		d.Severity, d.Rule, d.Message)
}

// Rule is one check over an exported function.
type Rule interface {
	Name() string
	Check(e Export) []Diagnostic
}

// DefaultRules are the rules Lint applies.
func DefaultRules() []Rule {
	return []Rule{
		&NameMatchRule{},
		&GoTypeRule{},
		&GuardRule{},
	}
}

// Lint runs rules (DefaultRules when none are given) over exports.
func Lint(exports []Export, rules ...Rule) []Diagnostic {
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	var diags []Diagnostic
	for _, e := range exports {
		for _, r := range rules {
			for _, d := range r.Check(e) {
				if d.Position.Filename == "" {
					d.Position = e.Position
				}
				if d.Rule == "" {
					d.Rule = r.Name()
				}
				diags = append(diags, d)
			}
		}
	}
	return diags
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// NameMatchRule: cgo requires the directive name to equal the Go name.
type NameMatchRule struct{}

func (r *NameMatchRule) Name() string { return "export-name" }

func (r *NameMatchRule) Check(e Export) []Diagnostic {
	if e.Name == e.GoName {
		return nil
	}
	return []Diagnostic{{
		Severity: SeverityError,
		Message:  fmt.Sprintf("//export %s on func %s", e.Name, e.GoName),
	}}
}

// GoTypeRule flags parameters and results whose Go type holds Go
// pointers or has no fixed C size.
type GoTypeRule struct{}

func (r *GoTypeRule) Name() string { return "export-go-type" }

func (r *GoTypeRule) Check(e Export) []Diagnostic {
	if e.decl == nil {
		return nil
	}

	var diags []Diagnostic
	check := func(fields *ast.FieldList, what string) {
		if fields == nil {
			return
		}
		for _, f := range fields.List {
			if sev, why, bad := goOnlyType(f.Type); bad {
				diags = append(diags, Diagnostic{
					Severity: sev,
					Message:  fmt.Sprintf("%s %s of %s: %s", what, types.ExprString(f.Type), e.Name, why),
				})
			}
		}
	}
	check(e.decl.Type.Params, "parameter")
	check(e.decl.Type.Results, "result")
	return diags
}

// goOnlyType classifies a Go type expression that should not cross.
func goOnlyType(expr ast.Expr) (Severity, string, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		switch t.Name {
		case "string", "error", "any":
			return SeverityError, "holds a Go pointer", true
		case "int", "uint":
			return SeverityWarning, "platform-sized; use C.int or a fixed-width type", true
		}
	case *ast.ArrayType:
		if t.Len == nil {
			return SeverityError, "slice holds a Go pointer", true
		}
		return goOnlyType(t.Elt)
	case *ast.MapType, *ast.ChanType, *ast.FuncType, *ast.InterfaceType:
		return SeverityError, "Go-managed type", true
	case *ast.StarExpr:
		// *C.T and unsafe.Pointer-like pointees are fine; *string is not.
		return goOnlyType(t.X)
	}
	return 0, "", false
}

// GuardRule flags exports that do not start by deferring the panic guard.
type GuardRule struct {
	// Func is the guard function name. Defaults to "guard".
	Func string
}

func (r *GuardRule) Name() string { return "export-guard" }

func (r *GuardRule) Check(e Export) []Diagnostic {
	if e.decl == nil || e.decl.Body == nil {
		return nil
	}
	fn := r.Func
	if fn == "" {
		fn = "guard"
	}

	if len(e.decl.Body.List) > 0 {
		if d, ok := e.decl.Body.List[0].(*ast.DeferStmt); ok && callsNamed(d.Call, fn) {
			return nil
		}
	}
	return []Diagnostic{{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("%s does not start with defer %s(...); a panic would unwind into C", e.Name, fn),
	}}
}

// callsNamed reports whether call is fn(...) or fn(...)(...).
func callsNamed(call *ast.CallExpr, fn string) bool {
	switch f := call.Fun.(type) {
	case *ast.Ident:
		return f.Name == fn
	case *ast.CallExpr:
		return callsNamed(f, fn)
	}
	return false
}
