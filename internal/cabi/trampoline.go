//go:build cgo

// internal/cabi/trampoline.go
// Building the C view of a boxed Go closure

package cabi

/*
#include "ffibridge_types.h"

// Implemented in trampoline.c
extern BoxDynFnMut1_int32_int32_t ffibridge_make_box(void *env);
*/
import "C"

import "unsafe"

func makeBox(env unsafe.Pointer) C.BoxDynFnMut1_int32_int32_t {
	return C.ffibridge_make_box(env)
}
