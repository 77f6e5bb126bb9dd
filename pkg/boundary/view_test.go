// pkg/boundary/view_test.go
// Tests for buffer views

package boundary

import (
	"math/rand"
	"testing"
)

func TestMax(t *testing.T) {
	tests := []struct {
		name string
		xs   []uint8
		want uint8
	}{
		{"nil", nil, 0},
		{"empty", []uint8{}, 0},
		{"single", []uint8{9}, 9},
		{"ascending", []uint8{1, 2, 3}, 3},
		{"max first", []uint8{255, 0, 7}, 255},
		{"all zero", []uint8{0, 0, 0}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Max(tc.xs); got != tc.want {
				t.Errorf("Max(%v) = %d, want %d", tc.xs, got, tc.want)
			}
		})
	}
}

func TestMax_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		xs := make([]uint8, rng.Intn(64))
		rng.Read(xs)

		var want uint8
		for _, x := range xs {
			if x > want {
				want = x
			}
		}
		if got := Max(xs); got != want {
			t.Fatalf("Max(%v) = %d, want %d", xs, got, want)
		}
	}
}

func TestMax_ReadOnly(t *testing.T) {
	xs := []uint8{3, 1, 2}
	Max(xs)
	if xs[0] != 3 || xs[1] != 1 || xs[2] != 2 {
		t.Errorf("Max modified its input: %v", xs)
	}
}

func TestSliceRef(t *testing.T) {
	buf := []uint8{4, 8, 15, 16, 23, 42}

	view := SliceRef(&buf[0], len(buf))
	if len(view) != len(buf) || &view[0] != &buf[0] {
		t.Fatal("view does not alias the caller's memory")
	}
	if Max(view) != 42 {
		t.Errorf("Max(view) = %d", Max(view))
	}

	if SliceRef[uint8](nil, 10) != nil {
		t.Error("nil pointer should give an empty view")
	}
	if SliceRef(&buf[0], 0) != nil {
		t.Error("zero length should give an empty view")
	}
}

func BenchmarkMax(b *testing.B) {
	xs := make([]uint8, 4096)
	rand.New(rand.NewSource(1)).Read(xs)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Max(xs)
	}
}
