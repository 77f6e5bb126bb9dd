// pkg/boundary/layout.go
// Memory layout checks for types that cross by value
//
// LEARN: A struct copied across the boundary must have the same layout on
// both sides. Go and C agree on field order and natural alignment, but
// padding is where mismatches hide, so a crossing type is accepted only
// when every field has a fixed C size and there are no padding bytes.

package boundary

import (
	"fmt"
	"reflect"
	"strings"

	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// Field describes a single field in a struct layout.
type Field struct {
	Name      string  // Go field name
	CName     string  // C field name (from the `c` tag, else lowercased Name)
	Type      string  // Go type
	CType     string  // C type, empty when the field has none
	Size      uintptr // Size in bytes
	Alignment uintptr // Alignment requirement
	Offset    uintptr // Offset from struct start
	Padding   uintptr // Padding bytes before this field
}

// Layout describes the memory layout of a struct.
type Layout struct {
	Name         string
	Size         uintptr
	Alignment    uintptr
	Fields       []Field
	TotalPadding uintptr
}

// AnalyzeStruct returns the memory layout of a struct value or pointer.
func AnalyzeStruct(v any) Layout {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return analyzeType(t)
}

func analyzeType(t reflect.Type) Layout {
	layout := Layout{
		Name:      t.Name(),
		Size:      t.Size(),
		Alignment: uintptr(t.Align()),
	}
	if t.Kind() != reflect.Struct {
		return layout
	}

	layout.Fields = make([]Field, t.NumField())

	var prevEnd uintptr
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		padding := f.Offset - prevEnd
		layout.TotalPadding += padding

		cname := f.Tag.Get("c")
		if cname == "" {
			cname = strings.ToLower(f.Name)
		}
		ctype, _ := CType(f.Type)

		layout.Fields[i] = Field{
			Name:      f.Name,
			CName:     cname,
			Type:      f.Type.String(),
			CType:     ctype,
			Size:      f.Type.Size(),
			Alignment: uintptr(f.Type.Align()),
			Offset:    f.Offset,
			Padding:   padding,
		}

		prevEnd = f.Offset + f.Type.Size()
	}

	// Trailing padding
	if prevEnd < t.Size() {
		layout.TotalPadding += t.Size() - prevEnd
	}

	return layout
}

// String renders the layout as a table.
func (l Layout) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Struct: %s ===\n", l.Name)
	fmt.Fprintf(&b, "Size: %d bytes, Alignment: %d bytes, Padding: %d bytes\n\n",
		l.Size, l.Alignment, l.TotalPadding)

	fmt.Fprintf(&b, "Offset | Size | Align | Pad | Field\n")
	fmt.Fprintf(&b, "-------|------|-------|-----|------\n")

	for _, f := range l.Fields {
		padStr := ""
		if f.Padding > 0 {
			padStr = fmt.Sprintf("+%d", f.Padding)
		}
		fmt.Fprintf(&b, "%6d | %4d | %5d | %3s | %s %s\n",
			f.Offset, f.Size, f.Alignment, padStr, f.CName, f.CType)
	}

	return b.String()
}

// CheckFixedLayout reports whether v's type may cross by value: a struct
// whose fields all map to fixed-size C types, with no padding anywhere.
func CheckFixedLayout(v any) error {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ffierrors.WrapLayout(t.String(), "", ffierrors.ErrNotFixedSize)
	}

	l := analyzeType(t)
	for _, f := range l.Fields {
		if f.CType == "" {
			return ffierrors.WrapLayout(l.Name, f.Name, ffierrors.ErrNotFixedSize)
		}
	}
	if l.TotalPadding > 0 {
		return ffierrors.WrapLayout(l.Name, "", ffierrors.ErrPadding)
	}
	return nil
}

// cScalars maps Go kinds to fixed-width C types.
var cScalars = map[reflect.Kind]string{
	reflect.Bool:    "bool",
	reflect.Int8:    "int8_t",
	reflect.Int16:   "int16_t",
	reflect.Int32:   "int32_t",
	reflect.Int64:   "int64_t",
	reflect.Uint8:   "uint8_t",
	reflect.Uint16:  "uint16_t",
	reflect.Uint32:  "uint32_t",
	reflect.Uint64:  "uint64_t",
	reflect.Uintptr: "uintptr_t",
	reflect.Float32: "float",
	reflect.Float64: "double",
}

// CType returns the C spelling of a fixed-size Go type. Platform-sized
// int/uint, strings, slices, maps and other GC-managed types have none.
func CType(t reflect.Type) (string, error) {
	if s, ok := cScalars[t.Kind()]; ok {
		return s, nil
	}
	switch t.Kind() {
	case reflect.Array:
		elem, err := CType(t.Elem())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%d]", elem, t.Len()), nil
	case reflect.Struct:
		if t.Name() == "" {
			break
		}
		if err := CheckFixedLayout(reflect.New(t).Interface()); err != nil {
			return "", err
		}
		return t.Name() + "_t", nil
	}
	return "", ffierrors.WrapLayout(t.String(), "", ffierrors.ErrNotFixedSize)
}

// pointerFree reports whether values of t contain no Go pointers and may
// therefore live in memory the GC does not scan.
func pointerFree(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return pointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}
