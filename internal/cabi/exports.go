//go:build cgo

// internal/cabi/exports.go
// The C entry points
//
// LEARN: A preamble in a file with //export is copied into two C files,
// so it may only hold declarations and static inline helpers. The helpers
// below exist because Go cannot call a C function pointer directly.

package cabi

/*
#include "ffibridge_types.h"

static inline int32_t ffibridge_call_ref_fn0(RefDynFnMut0_int32_t f) {
    return f.call(f.env_ptr);
}

static inline int32_t ffibridge_call_binary(binary_fn_t f, int32_t a, int32_t b) {
    return f(a, b);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/khaaliswooden-max/ffibridge/pkg/boundary"
	ffierrors "github.com/khaaliswooden-max/ffibridge/pkg/errors"
)

// === Value transfer ===

func goPoint(p *C.Point_t) *boundary.Point {
	return (*boundary.Point)(unsafe.Pointer(p))
}

//export mid_point
func mid_point(a, b *C.Point_t) C.Point_t {
	defer guard("mid_point")()
	if a == nil || b == nil {
		violation("mid_point", ffierrors.ErrNilHandle)
	}

	m := boundary.Borrow2(goPoint(a), goPoint(b), boundary.MidPoint)
	return *(*C.Point_t)(unsafe.Pointer(&m))
}

//export print_point
func print_point(point *C.Point_t) {
	defer guard("print_point")()
	if point == nil {
		violation("print_point", ffierrors.ErrNilHandle)
	}

	err := boundary.Borrow(goPoint(point), func(p boundary.Ref[boundary.Point]) error {
		return boundary.PrintPoint(console, p)
	})
	if err != nil {
		logger.Warn("console write failed", "entry", "print_point", "error", err)
	}
}

// === Text ===

//export print_msg
func print_msg(msg *C.char) *C.char {
	defer guard("print_msg")()
	if msg == nil {
		violation("print_msg", ffierrors.ErrNilHandle)
	}

	text := string(boundary.BorrowCString(unsafe.Pointer(msg)))
	out, err := boundary.FormatOK(text)
	if err != nil {
		logger.Error("rejected text",
			"entry", "print_msg",
			"error", err,
			"code", ffierrors.ErrorCode(err),
		)
		return nil
	}

	fmt.Fprintln(console, text)
	return newText("print_msg", out)
}

//export drop_str
func drop_str(msg *C.char) {
	defer guard("drop_str")()
	if msg == nil {
		return
	}

	p := unsafe.Pointer(msg)
	release("drop_str", kindText, p)
	if err := texts.take(p).Release(); err != nil {
		violation("drop_str", err)
	}
}

var staticStr struct {
	once sync.Once
	str  *C.char
}

//export get_str
func get_str() *C.char {
	defer guard("get_str")()

	// Allocated once and never freed: the caller only ever borrows it.
	staticStr.once.Do(func() {
		staticStr.str = C.CString(boundary.StaticText())
	})
	return staticStr.str
}

// === Callbacks ===

//export call_closures
func call_closures(p C.RefDynFnMut0_int32_t) C.BoxDynFnMut1_int32_int32_t {
	defer guard("call_closures")()
	if p.call == nil {
		violation("call_closures", ffierrors.ErrNilHandle)
	}

	fn := boundary.WithRefFn0(func() int32 {
		return int32(C.ffibridge_call_ref_fn0(p))
	}, boundary.CallClosures)

	b := boundary.NewBox(fn, func(f *boundary.BoxFn1[int32, int32]) { _ = f.Release() })
	env, err := closures.Export(b).Unwrap()
	if err != nil {
		panic(err)
	}
	acquire("call_closures", kindClosure, env)
	return makeBox(env)
}

//export ffibridge_box_fn1_call
func ffibridge_box_fn1_call(env unsafe.Pointer, x C.int32_t) C.int32_t {
	defer guard(kindClosure + ".call")()

	fn, err := closures.Borrow(env)
	if err != nil {
		violation(kindClosure+".call", err)
	}
	return C.int32_t(fn.Call(int32(x)))
}

//export ffibridge_box_fn1_free
func ffibridge_box_fn1_free(env unsafe.Pointer) {
	defer guard(kindClosure + ".free")()

	release(kindClosure+".free", kindClosure, env)
	if err := closures.Release(env); err != nil {
		violation(kindClosure+".free", err)
	}
}

//export call_fun_ptr
func call_fun_ptr(p C.binary_fn_t) C.int32_t {
	defer guard("call_fun_ptr")()
	if p == nil {
		violation("call_fun_ptr", ffierrors.ErrNilHandle)
	}

	return C.int32_t(boundary.CallFunPtr(func(a, b int32) int32 {
		return int32(C.ffibridge_call_binary(p, C.int32_t(a), C.int32_t(b)))
	}))
}

// === Opaque object ===

func borrowObject(entry string, it *C.ComplicatedStruct_t) *boundary.Complicated {
	c, err := objects.Borrow(unsafe.Pointer(it))
	if err != nil {
		violation(entry, err)
	}
	return c
}

// exportObject hands b to C. Failure to allocate the handle is fatal.
func exportObject(entry string, b boundary.Box[boundary.Complicated]) *C.ComplicatedStruct_t {
	p, err := objects.Export(b).Unwrap()
	if err != nil {
		panic(err)
	}
	acquire(entry, kindComplicated, p)
	return (*C.ComplicatedStruct_t)(p)
}

//export create
func create() *C.ComplicatedStruct_t {
	defer guard("create")()
	return exportObject("create", boundary.DefaultComplicated(console))
}

//export create_at
func create_at(path *C.char, x C.int32_t) *C.ComplicatedStruct_t {
	defer guard("create_at")()
	if path == nil {
		violation("create_at", ffierrors.ErrNilHandle)
	}

	raw := boundary.BorrowCString(unsafe.Pointer(path))
	if err := boundary.ValidateText(raw); err != nil {
		logger.Warn("rejected path", "entry", "create_at", "error", err)
		return nil
	}

	cb := boundary.NewShared(boundary.PrintPath(console), nil)
	b := boundary.NewComplicated(string(raw), cb, int32(x))

	o := objects.Export(b)
	if o.IsNone() {
		logger.Warn("allocation failed", "entry", "create_at", "error", o.Reason())
		_ = boundary.Destroy(b)
		return nil
	}
	p := o.MustUnwrap()
	acquire("create_at", kindComplicated, p)
	return (*C.ComplicatedStruct_t)(p)
}

//export complicated_clone
func complicated_clone(it *C.ComplicatedStruct_t) *C.ComplicatedStruct_t {
	defer guard("complicated_clone")()
	c := borrowObject("complicated_clone", it)
	return exportObject("complicated_clone", c.Share())
}

//export call_and_get_x
func call_and_get_x(it *C.ComplicatedStruct_t) C.int32_t {
	defer guard("call_and_get_x")()
	return C.int32_t(borrowObject("call_and_get_x", it).CallAndGetX())
}

//export complicated_path
func complicated_path(it *C.ComplicatedStruct_t) *C.char {
	defer guard("complicated_path")()
	return newText("complicated_path", borrowObject("complicated_path", it).Path())
}

//export destroy
func destroy(it *C.ComplicatedStruct_t) {
	defer guard("destroy")()
	if it == nil {
		violation("destroy", ffierrors.ErrNilHandle)
	}

	p := unsafe.Pointer(it)
	release("destroy", kindComplicated, p)
	b, err := objects.Take(p)
	if err != nil {
		violation("destroy", err)
	}
	if err := boundary.Destroy(b); err != nil {
		violation("destroy", err)
	}
}

// === Views ===

//export max_u8
func max_u8(xs C.slice_ref_uint8_t) C.uint8_t {
	defer guard("max_u8")()
	view := boundary.SliceRefAt[uint8](unsafe.Pointer(xs.ptr), int(xs.len))
	return C.uint8_t(boundary.Max(view))
}

// === Allocator bridge ===

//export new_int
func new_int(x C.int32_t) *C.int32_t {
	defer guard("new_int")()

	m, err := boundary.NewInt(heap, int32(x)).Unwrap()
	if err != nil {
		logger.Warn("allocation failed", "entry", "new_int", "error", err)
		return nil
	}
	acquire("new_int", kindInt, unsafe.Pointer(m.Ptr()))
	return (*C.int32_t)(unsafe.Pointer(m.Ptr()))
}

//export free_int
func free_int(x *C.int32_t) {
	defer guard("free_int")()
	if x == nil {
		violation("free_int", ffierrors.ErrNilHandle)
	}

	p := unsafe.Pointer(x)
	release("free_int", kindInt, p)
	if err := boundary.FreeInt(boundary.AdoptMalloc(heap, (*int32)(p))); err != nil {
		violation("free_int", err)
	}
}
