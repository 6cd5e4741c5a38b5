package quant

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

func TestEncodeLog_ZeroReserved(t *testing.T) {
	tn, _ := tensor.FromSlice([]float32{0, 0.5, 0, 2, 8}, 5)

	q, err := EncodeLog(Uint8, tn, Linspace)
	if err != nil {
		t.Fatalf("EncodeLog failed: %v", err)
	}

	codes := q.Payload()
	if codes[0] != 0 || codes[2] != 0 {
		t.Errorf("Zero must map to the reserved code 0, got %v", codes)
	}
	for _, i := range []int{1, 3, 4} {
		if codes[i] < 1 {
			t.Errorf("Positive value at %d must map to a code >= 1, got %d", i, codes[i])
		}
	}

	a2 := DecodeLog32(q)
	if a2.Data()[0] != 0 || a2.Data()[2] != 0 {
		t.Errorf("Code 0 must decode to exactly zero, got %v", a2.Data())
	}
}

func TestEncodeLog_RangeIsLog(t *testing.T) {
	tn, _ := tensor.FromSlice([]float64{0, 0.5, 2, 8}, 4)
	q, err := EncodeLog(Uint16, tn, Logspace)
	if err != nil {
		t.Fatalf("EncodeLog failed: %v", err)
	}
	if got, want := q.Min(), math.Log(0.5); got != want {
		t.Errorf("Min must be ln(minpos): expected %v, got %v", want, got)
	}
	if got, want := q.Max(), math.Log(8.0); got != want {
		t.Errorf("Max must be ln(max): expected %v, got %v", want, got)
	}
}

func TestLog_IdempotentAfterFirstPass(t *testing.T) {
	data := make([]float32, 300)
	for i := range data {
		if i%7 == 0 {
			data[i] = 0 // exercise the reserved code alongside positive values
		} else {
			data[i] = float32(math.Exp(rand.NormFloat64() * 2))
		}
	}
	tn, _ := tensor.FromSlice(data, 300)

	for _, kind := range []Kind{Uint8, Uint16, Uint24, Uint32} {
		for _, mode := range []RoundMode{Linspace, Logspace} {
			q1, err := EncodeLog(kind, tn, mode)
			if err != nil {
				t.Fatalf("%s/%s: first encode failed: %v", kind, mode, err)
			}
			a2 := DecodeLog32(q1)

			q2, err := EncodeLog(kind, a2, mode)
			if err != nil {
				t.Fatalf("%s/%s: second encode failed: %v", kind, mode, err)
			}
			a3 := DecodeLog32(q2)

			for i := range a2.Data() {
				if a2.Data()[i] != a3.Data()[i] {
					t.Fatalf("%s/%s: not idempotent at %d: %v != %v", kind, mode, i, a2.Data()[i], a3.Data()[i])
				}
			}
		}
	}
}

func TestLog_IdempotentFloat64(t *testing.T) {
	data := make([]float64, 200)
	for i := range data {
		data[i] = math.Exp(rand.NormFloat64())
	}
	tn, _ := tensor.FromSlice(data, 200)

	for _, mode := range []RoundMode{Linspace, Logspace} {
		q1, _ := EncodeLog(Uint32, tn, mode)
		a2 := DecodeLog64(q1)
		q2, _ := EncodeLog(Uint32, a2, mode)

		for i := range q1.Payload() {
			if q1.Payload()[i] != q2.Payload()[i] {
				t.Fatalf("%s: payload changed on re-encode at %d", mode, i)
			}
		}

		a3 := DecodeLog64(q2)
		for i := range a2.Data() {
			rel := math.Abs(a2.Data()[i]-a3.Data()[i]) / a2.Data()[i]
			if rel > 1e-12 {
				t.Fatalf("%s: not idempotent at %d: %v != %v", mode, i, a2.Data()[i], a3.Data()[i])
			}
		}
	}
}

func TestLog_DegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		data []float32
	}{
		{"all zero", []float32{0, 0, 0, 0}},
		{"single magnitude", []float32{5, 5, 5}},
		{"zeros and one magnitude", []float32{0, 5, 0, 5}},
		{"empty", nil},
	}
	for _, c := range cases {
		tn, _ := tensor.FromSlice(c.data, len(c.data))
		q, err := EncodeLog(Uint8, tn, Linspace)
		if err != nil {
			t.Fatalf("%s: encode must not fail on a degenerate range: %v", c.name, err)
		}
		a2 := DecodeLog32(q)
		for i, v := range a2.Data() {
			if v != c.data[i] {
				t.Errorf("%s: element %d: expected %v, got %v", c.name, i, c.data[i], v)
			}
		}

		q2, err := EncodeLog(Uint8, a2, Linspace)
		if err != nil {
			t.Fatalf("%s: re-encode failed: %v", c.name, err)
		}
		a3 := DecodeLog32(q2)
		for i := range a2.Data() {
			if a2.Data()[i] != a3.Data()[i] {
				t.Errorf("%s: degenerate result not idempotent at %d", c.name, i)
			}
		}
	}
}

func TestLog_ReconstructionError(t *testing.T) {
	data := make([]float32, 500)
	for i := range data {
		data[i] = rand.Float32()*100 + 0.01
	}
	tn, _ := tensor.FromSlice(data, 500)

	q, err := EncodeLog(Uint16, tn, Linspace)
	if err != nil {
		t.Fatalf("EncodeLog failed: %v", err)
	}
	a2 := DecodeLog32(q)

	// One log-space quantum of relative error at 16 bits.
	maxRel := math.Exp((q.Max()-q.Min())/(1<<16-2)) - 1
	for i := range data {
		rel := math.Abs(float64(a2.Data()[i]-data[i])) / float64(data[i])
		if rel > maxRel {
			t.Errorf("Relative error %v at %d exceeds one quantum (%v)", rel, i, maxRel)
		}
	}
}

func TestLog_LinspaceVsLogspaceBias(t *testing.T) {
	// Both modes land on the same code grid; they may only disagree on
	// which neighbor a value rounds to.
	data := make([]float64, 100)
	for i := range data {
		data[i] = math.Exp(rand.Float64()*6 - 3)
	}
	tn, _ := tensor.FromSlice(data, 100)

	qLin, _ := EncodeLog(Uint8, tn, Linspace)
	qLog, _ := EncodeLog(Uint8, tn, Logspace)
	for i := range qLin.Payload() {
		d := qLin.Payload()[i] - qLog.Payload()[i]
		if d < -1 || d > 1 {
			t.Errorf("Codes differ by more than one step at %d: %d vs %d", i, qLin.Payload()[i], qLog.Payload()[i])
		}
		// Linspace thresholds sit below logspace ones, so its codes can
		// only be equal or one step lower.
		if d > 0 {
			t.Errorf("Linspace code above logspace code at %d", i)
		}
	}
}

func TestEncodeLog_RejectsNegativeAndNonFinite(t *testing.T) {
	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		tn, _ := tensor.FromSlice([]float64{1, bad, 2}, 3)
		_, err := EncodeLog(Uint8, tn, Linspace)
		if !errors.Is(err, ErrDomain) {
			t.Errorf("Expected ErrDomain for %v, got %v", bad, err)
		}
	}
}

func TestEncodeLog_RejectsSignedKind(t *testing.T) {
	tn, _ := tensor.FromSlice([]float64{1, 2}, 2)
	_, err := EncodeLog(Int8, tn, Linspace)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a signed kind, got %v", err)
	}
}

func TestEncodeLog_RejectsUnknownRoundMode(t *testing.T) {
	tn, _ := tensor.FromSlice([]float64{1, 2}, 2)
	_, err := EncodeLog(Uint8, tn, RoundMode(42))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown round mode, got %v", err)
	}
}

func TestParseRoundMode(t *testing.T) {
	if m, err := ParseRoundMode("logspace"); err != nil || m != Logspace {
		t.Errorf("ParseRoundMode(logspace): got %v, %v", m, err)
	}
	if m, err := ParseRoundMode(""); err != nil || m != Linspace {
		t.Errorf("Empty round mode must default to linspace, got %v, %v", m, err)
	}
	if _, err := ParseRoundMode("banana"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func BenchmarkEncodeLogUint8(b *testing.B) {
	data := make([]float32, 768)
	for i := range data {
		data[i] = rand.Float32() * 100
	}
	tn, _ := tensor.FromSlice(data, 768)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		EncodeLog(Uint8, tn, Linspace)
	}
}
