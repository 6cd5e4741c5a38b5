package tensor

import (
	"fmt"
)

// Float is the set of element types a Tensor can hold.
type Float interface {
	~float32 | ~float64
}

// Tensor is a dense N-dimensional array stored in row-major order.
// The shape is fixed at construction; elements are mutable through SetAt
// and the backing slice returned by Data.
type Tensor[T Float] struct {
	shape []int
	data  []T
}

// New creates a zero-filled tensor with the given shape.
// A tensor with no dimensions is a scalar holding one element.
func New[T Float](shape ...int) Tensor[T] {
	n, err := checkShape(shape)
	if err != nil {
		panic("tensor: " + err.Error())
	}
	return Tensor[T]{
		shape: append([]int(nil), shape...),
		data:  make([]T, n),
	}
}

// FromSlice wraps an existing row-major slice in a tensor of the given shape.
// The slice is used directly, not copied.
func FromSlice[T Float](data []T, shape ...int) (Tensor[T], error) {
	n, err := checkShape(shape)
	if err != nil {
		return Tensor[T]{}, err
	}
	if len(data) != n {
		return Tensor[T]{}, fmt.Errorf("tensor: data length %d does not match shape %v (want %d)", len(data), shape, n)
	}
	return Tensor[T]{
		shape: append([]int(nil), shape...),
		data:  data,
	}, nil
}

// checkShape validates dimensions and returns the element count.
func checkShape(shape []int) (int, error) {
	n := 1
	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d at axis %d", d, i)
		}
		n *= d
	}
	return n, nil
}

// Rank returns the number of axes.
func (t Tensor[T]) Rank() int {
	return len(t.shape)
}

// Dim returns the size of axis i.
func (t Tensor[T]) Dim(i int) int {
	return t.shape[i]
}

// Len returns the total number of elements.
func (t Tensor[T]) Len() int {
	return len(t.data)
}

// Shape returns a copy of the tensor's shape.
func (t Tensor[T]) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Data returns the row-major backing slice.
func (t Tensor[T]) Data() []T {
	return t.data
}

// At returns the element at the given multi-dimensional index.
func (t Tensor[T]) At(idx ...int) T {
	return t.data[t.offset(idx)]
}

// SetAt stores v at the given multi-dimensional index.
func (t Tensor[T]) SetAt(v T, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t Tensor[T]) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match tensor rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (size %d)", x, i, t.shape[i]))
		}
		off = off*t.shape[i] + x
	}
	return off
}

// SubAlong copies out the sub-tensor obtained by fixing axis to pos.
// The result has rank one less than t.
func (t Tensor[T]) SubAlong(axis, pos int) (Tensor[T], error) {
	if axis < 0 || axis >= len(t.shape) {
		return Tensor[T]{}, fmt.Errorf("tensor: axis %d out of range for rank %d", axis, len(t.shape))
	}
	if pos < 0 || pos >= t.shape[axis] {
		return Tensor[T]{}, fmt.Errorf("tensor: position %d out of range for axis %d (size %d)", pos, axis, t.shape[axis])
	}

	// View the data as [outer, shape[axis], inner] and take one middle index.
	outer, inner := 1, 1
	for _, d := range t.shape[:axis] {
		outer *= d
	}
	for _, d := range t.shape[axis+1:] {
		inner *= d
	}

	subShape := make([]int, 0, len(t.shape)-1)
	subShape = append(subShape, t.shape[:axis]...)
	subShape = append(subShape, t.shape[axis+1:]...)

	out := make([]T, outer*inner)
	axisN := t.shape[axis]
	for o := 0; o < outer; o++ {
		src := (o*axisN + pos) * inner
		copy(out[o*inner:(o+1)*inner], t.data[src:src+inner])
	}

	return Tensor[T]{shape: subShape, data: out}, nil
}

// StackLast combines equal-shaped tensors along a new trailing axis.
// The result has shape slices[0].Shape() + [len(slices)].
func StackLast[T Float](slices []Tensor[T]) (Tensor[T], error) {
	if len(slices) == 0 {
		return Tensor[T]{}, fmt.Errorf("tensor: no slices to stack")
	}
	base := slices[0].shape
	for i, s := range slices[1:] {
		if !sameShape(base, s.shape) {
			return Tensor[T]{}, fmt.Errorf("tensor: slice %d shape %v does not match %v", i+1, s.shape, base)
		}
	}

	k := len(slices)
	shape := append(append([]int(nil), base...), k)
	out := make([]T, len(slices[0].data)*k)
	for s, sl := range slices {
		for j, v := range sl.data {
			out[j*k+s] = v
		}
	}
	return Tensor[T]{shape: shape, data: out}, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
