package quant

import (
	"math"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

// EncodeLinear quantizes t onto kind's code space with uniform spacing in
// value space. With ext == nil the range is the literal min/max of the data
// and no clamping is needed; with caller-supplied extrema, values outside
// the range saturate to the nearest representable bound (deliberate lossy
// clipping). Rounding is round-to-nearest, ties to even.
func EncodeLinear[T tensor.Float](kind Kind, t tensor.Tensor[T], ext *Extrema) (*Quantized, error) {
	ki, err := kind.info()
	if err != nil {
		return nil, err
	}
	amin, amax, err := resolveExtrema(t, ext)
	if err != nil {
		return nil, err
	}

	invDelta := 0.0
	if amin != amax {
		invDelta = (ki.max - ki.min) / (amax - amin)
		// A subnormal spread overflows the division; the range is below
		// one quantum at any width, so treat it as degenerate.
		if math.IsInf(invDelta, 0) {
			invDelta = 0
			amax = amin
		}
	}

	q := newQuantized(kind, t.Shape(), amin, amax)
	clamp := ext != nil
	for i, v := range t.Data() {
		x := math.RoundToEven(ki.min + (float64(v)-amin)*invDelta)
		if clamp {
			if x < ki.min {
				x = ki.min
			}
			if x > ki.max {
				x = ki.max
			}
		}
		q.cells[i] = int64(x)
	}
	return q, nil
}

// DecodeLinear reconstructs the approximate float tensor from a linearly
// quantized payload. A degenerate range (Min == Max) decodes every element
// to exactly Min; the zero-slope guard avoids the 0/0 spacing there.
func DecodeLinear[T tensor.Float](q *Quantized) tensor.Tensor[T] {
	ki := kinds[q.kind]
	delta := 0.0
	if q.min != q.max {
		delta = (q.max - q.min) / (ki.max - ki.min)
	}
	out := tensor.New[T](q.shape...)
	d := out.Data()
	for i, c := range q.cells {
		d[i] = T(q.min + (float64(c)-ki.min)*delta)
	}
	return out
}

// DecodeLinear32 decodes to single precision, the conventional width for
// the 8/16/24-bit kinds.
func DecodeLinear32(q *Quantized) tensor.Tensor[float32] {
	return DecodeLinear[float32](q)
}

// DecodeLinear64 decodes to double precision, the conventional width for
// the 32-bit kinds.
func DecodeLinear64(q *Quantized) tensor.Tensor[float64] {
	return DecodeLinear[float64](q)
}
