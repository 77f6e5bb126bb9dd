// pkg/boundary/opaque.go
// An object whose layout the C side never sees

package boundary

import (
	"fmt"
	"io"
)

// PathFunc is the callback a Complicated runs on its path.
type PathFunc func(path string)

// Complicated is exposed to C only as an incomplete type:
//
//	typedef struct ComplicatedStruct ComplicatedStruct_t;
//
// Every field is unexported; C reaches them through CallAndGetX and Path.
// The object owns its path and one reference to a shared callback, and
// both go away with it.
type Complicated struct {
	path string
	cb   *Shared[PathFunc]
	x    int32
}

// DefaultPath and DefaultX are what create() builds with.
const (
	DefaultPath       = "/tmp"
	DefaultX    int32 = 42
)

// NewComplicated builds a boxed object. It takes over the caller's
// reference to cb.
func NewComplicated(path string, cb *Shared[PathFunc], x int32) Box[Complicated] {
	return NewBox(&Complicated{path: path, cb: cb, x: x}, dropComplicated)
}

// DefaultComplicated builds the object create() returns: path "/tmp",
// x = 42, and a callback printing the path to w.
func DefaultComplicated(w io.Writer) Box[Complicated] {
	return NewComplicated(DefaultPath, NewShared(PrintPath(w), nil), DefaultX)
}

// PrintPath returns a callback writing "path = `<path>`" lines to w.
func PrintPath(w io.Writer) PathFunc {
	return func(path string) {
		fmt.Fprintf(w, "path = `%s`\n", path)
	}
}

// CallAndGetX runs the stored callback once with the stored path and
// returns x. It does not consume c.
func (c *Complicated) CallAndGetX() int32 {
	c.cb.Value()(c.path)
	return c.x
}

// Path returns the stored path.
func (c *Complicated) Path() string {
	return c.path
}

// Share builds a second object with the same path and x that co-owns the
// callback. Each object must be destroyed on its own.
func (c *Complicated) Share() Box[Complicated] {
	return NewComplicated(c.path, c.cb.Clone(), c.x)
}

// Callbacks returns how many objects currently own c's callback.
func (c *Complicated) Callbacks() int32 {
	return c.cb.Count()
}

// Destroy consumes b and releases what it owns.
func Destroy(b Box[Complicated]) error {
	return Drop(b)
}

func dropComplicated(c *Complicated) {
	if c.cb != nil {
		c.cb.Release()
	}
	*c = Complicated{}
}
