package quant

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

// Extrema is an explicit (min, max) pair defining the value range mapped
// onto the integer code space. Linear encoders take *Extrema: nil means
// "compute from the data", never a magic sentinel value.
type Extrema struct {
	Min float64
	Max float64
}

// resolveExtrema returns the range to encode with: the caller-supplied pair
// when ext is non-nil, otherwise the literal min/max of the data. Either way
// every element must be finite; quantization needs a bounded value domain.
func resolveExtrema[T tensor.Float](t tensor.Tensor[T], ext *Extrema) (float64, float64, error) {
	for _, v := range t.Data() {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, 0, fmt.Errorf("%w: non-finite value %v in linear quantization input", ErrDomain, f)
		}
	}
	if ext != nil {
		if math.IsNaN(ext.Min) || math.IsInf(ext.Min, 0) || math.IsNaN(ext.Max) || math.IsInf(ext.Max, 0) {
			return 0, 0, fmt.Errorf("%w: non-finite extrema (%v, %v)", ErrInvalidArgument, ext.Min, ext.Max)
		}
		if ext.Min > ext.Max {
			return 0, 0, fmt.Errorf("%w: extrema min %v exceeds max %v", ErrInvalidArgument, ext.Min, ext.Max)
		}
		return ext.Min, ext.Max, nil
	}
	lo, hi := tensor.MinMax(t)
	return float64(lo), float64(hi), nil
}
