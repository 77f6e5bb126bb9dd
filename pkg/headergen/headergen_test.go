// pkg/headergen/headergen_test.go
// Tests for header rendering, export scanning and linting

package headergen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaaliswooden-max/ffibridge/pkg/boundary"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

func TestRender_Exports(t *testing.T) {
	out, err := Render(boundary.Exports(), Options{IncludePairs: true})
	require.NoError(t, err)
	h := string(out)

	// LEARN: Checking fragments keeps the test stable across cosmetic
	// changes while still pinning every declaration the C side relies on.
	for _, want := range []string{
		"Code generated by ffigen",
		"#ifndef FFIBRIDGE_H",
		"#include <stdint.h>",
		"typedef struct Point {\n    double x;\n    double y;\n} Point_t;",
		"typedef struct ComplicatedStruct ComplicatedStruct_t;",
		"    int32_t (*call)(void *);",
		"    void (*free)(void *);",
		"    uint8_t const * ptr;",
		"Point_t mid_point (Point_t const * a, Point_t const * b);",
		"char const * get_str (void);",
		"int32_t call_fun_ptr (int32_t (*p)(int32_t, int32_t));",
		"ComplicatedStruct_t * create_at (char const * path, int32_t x);",
		"uint8_t max_u8 (slice_ref_uint8_t xs);",
		" * Released by: free_int",
		" * Released by: BoxDynFnMut1_int32_int32_t.free",
		"#endif /* FFIBRIDGE_H */",
	} {
		assert.Contains(t, h, want)
	}

	t.Logf("Generated header:\n%s", h)
}

func TestRender_Options(t *testing.T) {
	out, err := Render(boundary.Exports(), Options{Guard: "MY_GUARD", Generator: "test"})
	require.NoError(t, err)
	h := string(out)

	assert.Contains(t, h, "#define MY_GUARD")
	assert.Contains(t, h, "Code generated by test")
	assert.NotContains(t, h, "Released by")
}

func TestRender_InvalidABI(t *testing.T) {
	abi := boundary.ABI{Funcs: []boundary.FuncDecl{{Name: "f", Result: "void *", ReleasedBy: "g"}}}
	_, err := Render(abi, Options{})
	assert.ErrorIs(t, err, ffierrors.ErrUnknownExport)
}

func TestDeclarator(t *testing.T) {
	tests := []struct {
		ctype, name, want string
	}{
		{"double", "x", "double x"},
		{"char const *", "msg", "char const * msg"},
		{"int32_t (*)(void *, int32_t)", "call", "int32_t (*call)(void *, int32_t)"},
		{"uint16_t[4]", "v", "uint16_t v[4]"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Declarator(tc.ctype, tc.name))
	}
}

const exportSrc = `package cabi

import "C"

//export good
func good(x C.int32_t) C.int32_t {
	defer guard("good")()
	return x
}

//export renamed
func other() {}

//export leaky
func leaky(s string, xs []byte, n int) *string {
	return nil
}

// notExported has no directive.
func notExported() {}
`

func TestScanSource(t *testing.T) {
	exports, err := ScanSource(exportSrc)
	require.NoError(t, err)
	require.Len(t, exports, 3)

	assert.Equal(t, "good", exports[0].Name)
	assert.Equal(t, []Param{{Name: "x", Type: "C.int32_t"}}, exports[0].Params)
	assert.Equal(t, []string{"C.int32_t"}, exports[0].Results)
	assert.Equal(t, "other", exports[1].GoName)
}

func TestLint(t *testing.T) {
	exports, err := ScanSource(exportSrc)
	require.NoError(t, err)

	byName := map[string][]Diagnostic{}
	for _, d := range Lint(exports) {
		byName[d.Rule] = append(byName[d.Rule], d)
	}

	require.Len(t, byName["export-name"], 1)
	assert.Contains(t, byName["export-name"][0].Message, "renamed")

	// string, []byte and *string are errors; int is a warning.
	var errs, warns int
	for _, d := range byName["export-go-type"] {
		if d.Severity == SeverityError {
			errs++
		} else {
			warns++
		}
	}
	assert.Equal(t, 3, errs)
	assert.Equal(t, 1, warns)

	// good is guarded; other and leaky are not.
	assert.Len(t, byName["export-guard"], 2)
	assert.True(t, HasErrors(Lint(exports)))

	for _, d := range byName["export-guard"] {
		assert.True(t, strings.HasPrefix(d.String(), "source.go:"), d.String())
	}
}

func TestScanExports_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(exportSrc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_test.go"), []byte("package cabi\n\n//export fromtest\nfunc fromtest() {}\n"), 0o644))

	exports, err := ScanExports(dir)
	require.NoError(t, err)
	assert.Len(t, exports, 3)

	_, err = ScanExports(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	abi := boundary.ABI{Funcs: []boundary.FuncDecl{{Name: "good"}, {Name: "absent"}}}
	exports := []Export{{Name: "good"}, {Name: "extra"}, {Name: InternalPrefix + "helper"}}

	r := Verify(abi, exports)
	assert.False(t, r.OK())
	assert.Equal(t, []string{"absent"}, r.MissingInGo)
	assert.Equal(t, []string{"extra"}, r.MissingInABI)
	assert.ErrorIs(t, r.Err(), ffierrors.ErrUnknownExport)

	assert.NoError(t, Verify(abi, []Export{{Name: "good"}, {Name: "absent"}}).Err())
}

func TestCabiMatchesExports(t *testing.T) {
	exports, err := ScanExports(filepath.Join("..", "..", "internal", "cabi"))
	require.NoError(t, err)
	require.NotEmpty(t, exports)

	assert.NoError(t, Verify(boundary.Exports(), exports).Err())
	assert.Empty(t, Lint(exports))
}
