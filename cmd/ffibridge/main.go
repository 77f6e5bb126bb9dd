// cmd/ffibridge/main.go
// C shared library entry point
//
// Build with:
//
//	go build -buildmode=c-shared -o libffibridge.so ./cmd/ffibridge
//	go run ./cmd/ffigen -out ffibridge.h
//
// LEARN: -buildmode=c-shared needs a main package, but main itself never
// runs. Every //export in the linked packages becomes a library symbol.

package main

import (
	_ "github.com/khaaliswooden-max/ffibridge/internal/cabi"
)

func main() {}
