// pkg/boundary/point.go
// Plain values copied across the boundary

package boundary

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Point is a plain two-coordinate value. Its layout matches
//
//	typedef struct Point { double x; double y; } Point_t;
//
// and it is copied, never shared, when it crosses.
type Point struct {
	X float64 `c:"x"`
	Y float64 `c:"y"`
}

// MidPoint returns the middle point of [a, b].
//
// LEARN: a and b are borrowed for the duration of the call. The result is
// returned by value, so the caller owns its copy and releases nothing.
func MidPoint(a, b Ref[Point]) Point {
	pa, pb := a.Get(), b.Get()
	return Point{
		X: (pa.X + pb.X) / 2,
		Y: (pa.Y + pb.Y) / 2,
	}
}

// String renders the point as "Point { x: 1.0, y: 2.0 }".
func (p Point) String() string {
	return fmt.Sprintf("Point { x: %s, y: %s }", formatCoord(p.X), formatCoord(p.Y))
}

// PrintPoint writes p's rendering and a newline to w.
func PrintPoint(w io.Writer, p Ref[Point]) error {
	_, err := fmt.Fprintln(w, p.Get().String())
	return err
}

// formatCoord always keeps a fractional part, so 1 prints as 1.0.
// Special values print as inf, -inf and NaN.
func formatCoord(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
