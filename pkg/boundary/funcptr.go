// pkg/boundary/funcptr.go
// Bare function pointers

package boundary

// BinaryFn mirrors the C signature int32_t (*)(int32_t, int32_t).
// It has no state and no lifetime tracking; the code behind it must
// outlive every call.
type BinaryFn func(a, b int32) int32

// CallFunPtr calls p with (1, 2).
func CallFunPtr(p BinaryFn) int32 {
	return p(1, 2)
}
