// pkg/boundary/abi.go
// Structural description of the C entry points

package boundary

import (
	"fmt"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// DeclKind says how a type is described to C.
type DeclKind int

const (
	// KindStruct types have their full layout in the header.
	KindStruct DeclKind = iota
	// KindOpaque types are forward-declared only.
	KindOpaque
)

// CField is one member of a struct typedef. Function pointer types are
// spelled with an empty declarator, e.g. "int32_t (*)(void *)".
type CField struct {
	Name  string
	CType string
}

// TypeDecl is a typedef the header must carry.
type TypeDecl struct {
	Tag    string // struct tag, e.g. "Point"
	Name   string // typedef name, e.g. "Point_t"
	Kind   DeclKind
	Fields []CField
	Doc    string
}

// Param is a function parameter.
type Param struct {
	Name  string
	CType string
}

// FuncDecl is an exported entry point.
type FuncDecl struct {
	Name   string
	Params []Param
	Result string // "void" when nothing is returned
	Doc    string

	// ReleasedBy names the entry point that frees what this one returns.
	// Empty when the result is a plain value or a borrowed reference.
	ReleasedBy string
}

// Pair ties an acquiring entry point to the one that releases its result.
type Pair struct {
	Acquire string
	Release string
}

// ABI is the full set of declarations handed to the interface generator.
type ABI struct {
	Library string
	Types   []TypeDecl
	Funcs   []FuncDecl
}

// Func looks an entry point up by name.
func (a ABI) Func(name string) (FuncDecl, bool) {
	for _, f := range a.Funcs {
		if f.Name == name {
			return f, true
		}
	}
	return FuncDecl{}, false
}

// Pairs lists every acquire/release pair in declaration order.
func (a ABI) Pairs() []Pair {
	var pairs []Pair
	for _, f := range a.Funcs {
		if f.ReleasedBy != "" {
			pairs = append(pairs, Pair{Acquire: f.Name, Release: f.ReleasedBy})
		}
	}
	return pairs
}

// Validate checks that every release entry point is declared. A release
// that names a struct member (e.g. "BoxDynFnMut1_int32_int32_t.free") is
// checked against the type's fields.
func (a ABI) Validate() error {
	for _, p := range a.Pairs() {
		if _, ok := a.Func(p.Release); ok {
			continue
		}
		if a.hasMember(p.Release) {
			continue
		}
		return fmt.Errorf("%s released by %s: %w", p.Acquire, p.Release, ffierrors.ErrUnknownExport)
	}
	return nil
}

func (a ABI) hasMember(ref string) bool {
	for _, t := range a.Types {
		for _, f := range t.Fields {
			if t.Name+"."+f.Name == ref {
				return true
			}
		}
	}
	return false
}

// Type names used by the entry points.
const (
	PointType       = "Point_t"
	ComplicatedType = "ComplicatedStruct_t"
	SliceU8Type     = "slice_ref_uint8_t"
	RefFn0Type      = "RefDynFnMut0_int32_t"
	BoxFn1Type      = "BoxDynFnMut1_int32_int32_t"
)

// Exports describes every entry point of the C library. Point's fields
// come from its Go layout, so the header cannot drift from the struct.
func Exports() ABI {
	return ABI{
		Library: "ffibridge",
		Types: []TypeDecl{
			pointDecl(),
			{
				Tag:  "ComplicatedStruct",
				Name: ComplicatedType,
				Kind: KindOpaque,
				Doc:  "Opaque; use create/destroy and the accessors.",
			},
			{
				Tag:  "slice_ref_uint8",
				Name: SliceU8Type,
				Kind: KindStruct,
				Fields: []CField{
					{Name: "ptr", CType: "uint8_t const *"},
					{Name: "len", CType: "size_t"},
				},
				Doc: "Borrowed view; valid for the duration of the call only.",
			},
			{
				Tag:  "RefDynFnMut0_int32",
				Name: RefFn0Type,
				Kind: KindStruct,
				Fields: []CField{
					{Name: "env_ptr", CType: "void *"},
					{Name: "call", CType: "int32_t (*)(void *)"},
				},
				Doc: "Borrowed closure; not called after the receiving call returns.",
			},
			{
				Tag:  "BoxDynFnMut1_int32_int32",
				Name: BoxFn1Type,
				Kind: KindStruct,
				Fields: []CField{
					{Name: "env_ptr", CType: "void *"},
					{Name: "call", CType: "int32_t (*)(void *, int32_t)"},
					{Name: "free", CType: "void (*)(void *)"},
				},
				Doc: "Owned closure; call any number of times, then free exactly once.",
			},
		},
		Funcs: []FuncDecl{
			{
				Name:   "mid_point",
				Params: []Param{{"a", PointType + " const *"}, {"b", PointType + " const *"}},
				Result: PointType,
				Doc:    "Returns the middle point of [a, b].",
			},
			{
				Name:   "print_point",
				Params: []Param{{"point", PointType + " const *"}},
				Result: "void",
				Doc:    "Pretty-prints a point.",
			},
			{
				Name:       "print_msg",
				Params:     []Param{{"msg", "char const *"}},
				Result:     "char *",
				Doc:        "Prints msg and returns \"ok <msg>\". NULL when msg is not valid UTF-8.",
				ReleasedBy: "drop_str",
			},
			{
				Name:   "drop_str",
				Params: []Param{{"msg", "char *"}},
				Result: "void",
				Doc:    "Releases a string returned by print_msg or complicated_path.",
			},
			{
				Name:   "get_str",
				Result: "char const *",
				Doc:    "Process-lifetime constant; never free it.",
			},
			{
				Name:       "call_closures",
				Params:     []Param{{"p", RefFn0Type}},
				Result:     BoxFn1Type,
				Doc:        "Calls p once and returns an owned identity closure.",
				ReleasedBy: BoxFn1Type + ".free",
			},
			{
				Name:   "call_fun_ptr",
				Params: []Param{{"p", "int32_t (*)(int32_t, int32_t)"}},
				Result: "int32_t",
				Doc:    "Returns p(1, 2).",
			},
			{
				Name:       "create",
				Result:     ComplicatedType + " *",
				Doc:        "Creates an object with path \"/tmp\" and x = 42. Never NULL.",
				ReleasedBy: "destroy",
			},
			{
				Name:       "create_at",
				Params:     []Param{{"path", "char const *"}, {"x", "int32_t"}},
				Result:     ComplicatedType + " *",
				Doc:        "Creates an object, or returns NULL on invalid path or allocation failure.",
				ReleasedBy: "destroy",
			},
			{
				Name:       "complicated_clone",
				Params:     []Param{{"it", ComplicatedType + " const *"}},
				Result:     ComplicatedType + " *",
				Doc:        "New object with the same path and x, sharing the callback of it.",
				ReleasedBy: "destroy",
			},
			{
				Name:   "call_and_get_x",
				Params: []Param{{"it", ComplicatedType + " const *"}},
				Result: "int32_t",
				Doc:    "Runs the stored callback on the stored path and returns x.",
			},
			{
				Name:       "complicated_path",
				Params:     []Param{{"it", ComplicatedType + " const *"}},
				Result:     "char *",
				Doc:        "Owned copy of the stored path.",
				ReleasedBy: "drop_str",
			},
			{
				Name:   "destroy",
				Params: []Param{{"it", ComplicatedType + " *"}},
				Result: "void",
				Doc:    "Consumes it.",
			},
			{
				Name:   "max_u8",
				Params: []Param{{"xs", SliceU8Type}},
				Result: "uint8_t",
				Doc:    "Largest byte of xs, 0 when xs is empty.",
			},
			{
				Name:       "new_int",
				Params:     []Param{{"x", "int32_t"}},
				Result:     "int32_t *",
				Doc:        "Heap-allocates x. NULL on allocation failure.",
				ReleasedBy: "free_int",
			},
			{
				Name:   "free_int",
				Params: []Param{{"x", "int32_t *"}},
				Result: "void",
				Doc:    "Frees a pointer returned by new_int.",
			},
		},
	}
}

func pointDecl() TypeDecl {
	l := AnalyzeStruct(Point{})
	fields := make([]CField, len(l.Fields))
	for i, f := range l.Fields {
		fields[i] = CField{Name: f.CName, CType: f.CType}
	}
	return TypeDecl{
		Tag:    "Point",
		Name:   PointType,
		Kind:   KindStruct,
		Fields: fields,
	}
}
