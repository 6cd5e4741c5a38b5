package quant

import "fmt"

// Quantized holds an integer-coded tensor together with the two range
// scalars needed to reconstruct it. For the linear codec Min/Max are the
// literal bounds of the encoded value range; for the logarithmic codec they
// are natural logarithms (of the smallest positive value and the maximum).
//
// A Quantized is produced only by an encode operation (or Unmarshal) and is
// logically read-only afterward: Payload exposes the cells as a view, but
// nothing in this package mutates them after construction. Decoding with the
// wrong codec family produces meaningless, not unsafe, output; matching
// encode and decode is the caller's contract.
type Quantized struct {
	kind  Kind
	shape []int
	cells []int64
	min   float64
	max   float64
}

// Payload cells are int64 regardless of kind so that every registered width,
// including uint32 and the 24-bit kinds, fits one cell without bit tricks.
// The wire layout (marshal.go) is what packs elements to their exact width.
func newQuantized(kind Kind, shape []int, min, max float64) *Quantized {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Quantized{
		kind:  kind,
		shape: shape,
		cells: make([]int64, n),
		min:   min,
		max:   max,
	}
}

// Kind returns the integer kind of the payload.
func (q *Quantized) Kind() Kind {
	return q.kind
}

// Shape returns a copy of the payload's shape.
func (q *Quantized) Shape() []int {
	return append([]int(nil), q.shape...)
}

// Rank returns the number of axes.
func (q *Quantized) Rank() int {
	return len(q.shape)
}

// Dim returns the size of axis i.
func (q *Quantized) Dim(i int) int {
	return q.shape[i]
}

// Len returns the total number of elements.
func (q *Quantized) Len() int {
	return len(q.cells)
}

// At returns the quantum at the given multi-dimensional index.
func (q *Quantized) At(idx ...int) int64 {
	if len(idx) != len(q.shape) {
		panic(fmt.Sprintf("quant: index rank %d does not match payload rank %d", len(idx), len(q.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= q.shape[i] {
			panic(fmt.Sprintf("quant: index %d out of range for axis %d (size %d)", x, i, q.shape[i]))
		}
		off = off*q.shape[i] + x
	}
	return q.cells[off]
}

// Payload returns the integer cells in row-major order. The slice is a view;
// callers must not modify it.
func (q *Quantized) Payload() []int64 {
	return q.cells
}

// Min returns the lower range scalar.
func (q *Quantized) Min() float64 {
	return q.min
}

// Max returns the upper range scalar.
func (q *Quantized) Max() float64 {
	return q.max
}

// DefaultFloatBits reports the conventional decode precision for the
// payload's kind: 32 for the 8/16/24-bit kinds, 64 for the 32-bit kinds.
func (q *Quantized) DefaultFloatBits() int {
	if q.kind.Bits() >= 32 {
		return 64
	}
	return 32
}

func shapeLen(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
