package quant

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

// SliceCollection is an ordered sequence of independently-ranged quantized
// slices, one per index along a chosen axis of the source tensor. Each slice
// carries its own min/max, so per-axis dynamic range differences do not cost
// precision elsewhere.
type SliceCollection struct {
	Slices []*Quantized
}

// Len returns the number of slices.
func (c *SliceCollection) Len() int {
	return len(c.Slices)
}

func checkDim[T tensor.Float](t tensor.Tensor[T], dim int) error {
	if dim < 0 || dim >= t.Rank() {
		return fmt.Errorf("%w: axis %d out of range for rank %d", ErrPrecondition, dim, t.Rank())
	}
	return nil
}

// EncodeLinearAlongDim linearly quantizes each sub-tensor obtained by fixing
// axis dim, each with its own range. A non-nil ext applies the same custom
// extrema to every slice.
func EncodeLinearAlongDim[T tensor.Float](kind Kind, t tensor.Tensor[T], dim int, ext *Extrema) (*SliceCollection, error) {
	if err := checkDim(t, dim); err != nil {
		return nil, err
	}
	n := t.Dim(dim)
	col := &SliceCollection{Slices: make([]*Quantized, 0, n)}
	for i := 0; i < n; i++ {
		sub, err := t.SubAlong(dim, i)
		if err != nil {
			return nil, err
		}
		q, err := EncodeLinear(kind, sub, ext)
		if err != nil {
			return nil, err
		}
		col.Slices = append(col.Slices, q)
	}
	return col, nil
}

// EncodeLogAlongDim logarithmically quantizes each sub-tensor obtained by
// fixing axis dim, each with its own log range.
func EncodeLogAlongDim[T tensor.Float](kind Kind, t tensor.Tensor[T], dim int, mode RoundMode) (*SliceCollection, error) {
	if err := checkDim(t, dim); err != nil {
		return nil, err
	}
	n := t.Dim(dim)
	col := &SliceCollection{Slices: make([]*Quantized, 0, n)}
	for i := 0; i < n; i++ {
		sub, err := t.SubAlong(dim, i)
		if err != nil {
			return nil, err
		}
		q, err := EncodeLog(kind, sub, mode)
		if err != nil {
			return nil, err
		}
		col.Slices = append(col.Slices, q)
	}
	return col, nil
}

// DecodeLinearCollection reassembles a linearly quantized collection into a
// tensor whose TRAILING axis is the slice index. The original axis position
// is not preserved; callers that need it back must permute.
func DecodeLinearCollection[T tensor.Float](c *SliceCollection) (tensor.Tensor[T], error) {
	return decodeCollection(c, DecodeLinear[T])
}

// DecodeLogCollection is DecodeLinearCollection for logarithmically
// quantized collections.
func DecodeLogCollection[T tensor.Float](c *SliceCollection) (tensor.Tensor[T], error) {
	return decodeCollection(c, DecodeLog[T])
}

func decodeCollection[T tensor.Float](c *SliceCollection, decode func(*Quantized) tensor.Tensor[T]) (tensor.Tensor[T], error) {
	if c == nil || len(c.Slices) == 0 {
		return tensor.Tensor[T]{}, fmt.Errorf("%w: empty slice collection", ErrPrecondition)
	}
	parts := make([]tensor.Tensor[T], len(c.Slices))
	for i, q := range c.Slices {
		parts[i] = decode(q)
	}
	out, err := tensor.StackLast(parts)
	if err != nil {
		return tensor.Tensor[T]{}, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	return out, nil
}
