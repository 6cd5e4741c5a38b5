package quant

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

// RoundMode selects how round-to-nearest ties are interpreted when encoding
// in log space: nearest in linear value space (the default) or nearest in
// log space.
type RoundMode int

const (
	// Linspace shifts the rounding thresholds so that codes round to the
	// nearest value in linear space, correcting the away-from-zero bias of
	// naive log-space rounding.
	Linspace RoundMode = iota

	// Logspace rounds to the nearest code in log space.
	Logspace
)

// String returns the mode's name.
func (m RoundMode) String() string {
	switch m {
	case Linspace:
		return "linspace"
	case Logspace:
		return "logspace"
	}
	return fmt.Sprintf("roundmode(%d)", int(m))
}

// ParseRoundMode resolves a round mode by name.
func ParseRoundMode(name string) (RoundMode, error) {
	switch name {
	case "linspace", "":
		return Linspace, nil
	case "logspace":
		return Logspace, nil
	}
	return 0, fmt.Errorf("%w: unknown round mode %q", ErrInvalidArgument, name)
}

// EncodeLog quantizes t onto an unsigned kind's code space with uniform
// spacing in log space. Code 0 is reserved for literal zero, so the
// remaining 2^bits - 2 steps span [ln(minpos), ln(max)]. All elements must
// be finite and non-negative.
func EncodeLog[T tensor.Float](kind Kind, t tensor.Tensor[T], mode RoundMode) (*Quantized, error) {
	ki, err := kind.info()
	if err != nil {
		return nil, err
	}
	if ki.signed {
		return nil, fmt.Errorf("%w: logarithmic quantization requires an unsigned kind, got %s", ErrInvalidArgument, kind)
	}
	if mode != Linspace && mode != Logspace {
		return nil, fmt.Errorf("%w: unknown round mode %d", ErrInvalidArgument, int(mode))
	}

	maxv := 0.0
	for _, v := range t.Data() {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return nil, fmt.Errorf("%w: logarithmic quantization only for non-negative, finite values, got %v", ErrDomain, f)
		}
		if f > maxv {
			maxv = f
		}
	}

	mi := float64(tensor.MinPos(t))
	logMin := math.Log(mi)
	logMax := math.Log(maxv)

	// At most one distinct positive magnitude: zero slope, no bias.
	invDelta := 0.0
	c := 0.0
	if logMin != logMax {
		invDelta = (math.Exp2(float64(ki.bits)) - 2) / (logMax - logMin)
		switch mode {
		case Logspace:
			c = -logMin * invDelta
		case Linspace:
			// Shift the log-space rounding threshold q*sqrt(b) onto the
			// linear-space midpoint q + (q*b-q)/2.
			c = 0.5 - invDelta*math.Log(mi*(math.Exp(1/invDelta)+1)/2)
		}
	}

	q := newQuantized(kind, t.Shape(), logMin, logMax)
	for i, v := range t.Data() {
		f := float64(v)
		if f == 0 {
			q.cells[i] = 0
			continue
		}
		q.cells[i] = int64(math.RoundToEven(c+invDelta*math.Log(f))) + 1
	}
	return q, nil
}

// DecodeLog reconstructs the approximate float tensor from a
// logarithmically quantized payload. Code 0 decodes to exactly zero; the
// degenerate zero-slope guard mirrors DecodeLinear.
func DecodeLog[T tensor.Float](q *Quantized) tensor.Tensor[T] {
	ki := kinds[q.kind]
	delta := 0.0
	if q.min != q.max {
		delta = (q.max - q.min) / (math.Exp2(float64(ki.bits)) - 2)
	}
	out := tensor.New[T](q.shape...)
	d := out.Data()
	for i, c := range q.cells {
		if c == 0 {
			continue
		}
		d[i] = T(math.Exp(q.min + float64(c-1)*delta))
	}
	return out
}

// DecodeLog32 decodes to single precision, the conventional width for the
// 8/16/24-bit kinds.
func DecodeLog32(q *Quantized) tensor.Tensor[float32] {
	return DecodeLog[float32](q)
}

// DecodeLog64 decodes to double precision, the conventional width for the
// 32-bit kinds.
func DecodeLog64(q *Quantized) tensor.Tensor[float64] {
	return DecodeLog[float64](q)
}

// MinPos returns the smallest strictly-positive element of t, or zero if
// none exists. It is the anchor point of the logarithmic code space.
func MinPos[T tensor.Float](t tensor.Tensor[T]) T {
	return tensor.MinPos(t)
}
