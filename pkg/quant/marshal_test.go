package quant

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

func TestMarshal_Layout(t *testing.T) {
	tn, _ := tensor.FromSlice([]float64{0.0, 0.25, 0.5, 0.75, 1.0}, 5)
	q, _ := EncodeLinear(Uint8, tn, nil)

	buf, err := Marshal(q)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(buf) != 16+5 {
		t.Fatalf("Expected 21 bytes (two doubles + five uint8), got %d", len(buf))
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[0:])); got != 0 {
		t.Errorf("Header min: expected 0, got %v", got)
	}
	if got := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])); got != 1 {
		t.Errorf("Header max: expected 1, got %v", got)
	}
	if buf[16] != 0 || buf[20] != 255 {
		t.Errorf("Payload bytes wrong: % x", buf[16:])
	}
}

func TestMarshal_24BitPacking(t *testing.T) {
	tn, _ := tensor.FromSlice([]float64{-1, 0, 1}, 3)
	q, _ := EncodeLinear(Int24, tn, nil)

	buf, err := Marshal(q)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if len(buf) != 16+3*3 {
		t.Fatalf("24-bit elements must pack to 3 bytes each, got %d bytes total", len(buf))
	}

	back, err := Unmarshal(Int24, []int{3}, buf)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for i := range q.Payload() {
		if q.Payload()[i] != back.Payload()[i] {
			t.Errorf("Element %d: %d != %d", i, q.Payload()[i], back.Payload()[i])
		}
	}
}

func TestMarshalRoundTrip_AllKinds(t *testing.T) {
	data := make([]float64, 60)
	for i := range data {
		data[i] = rand.NormFloat64()
	}
	tn, _ := tensor.FromSlice(data, 3, 4, 5)

	for _, kind := range []Kind{Int8, Int16, Int24, Int32, Uint8, Uint16, Uint24, Uint32} {
		q, err := EncodeLinear(kind, tn, nil)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", kind, err)
		}
		buf, err := Marshal(q)
		if err != nil {
			t.Fatalf("%s: marshal failed: %v", kind, err)
		}
		back, err := Unmarshal(kind, q.Shape(), buf)
		if err != nil {
			t.Fatalf("%s: unmarshal failed: %v", kind, err)
		}

		if back.Min() != q.Min() || back.Max() != q.Max() {
			t.Errorf("%s: range scalars not preserved", kind)
		}
		for i := range q.Payload() {
			if q.Payload()[i] != back.Payload()[i] {
				t.Fatalf("%s: payload mismatch at %d: %d != %d", kind, i, q.Payload()[i], back.Payload()[i])
			}
		}

		// Decoded output must be identical through the wire trip.
		a, b := DecodeLinear64(q), DecodeLinear64(back)
		for i := range a.Data() {
			if a.Data()[i] != b.Data()[i] {
				t.Fatalf("%s: decode differs after wire trip at %d", kind, i)
			}
		}
	}
}

func TestMarshalRoundTrip_LogRange(t *testing.T) {
	// Log payloads carry logarithms in the header, including -Inf for an
	// all-zero source. Both must survive the wire.
	tn, _ := tensor.FromSlice([]float64{0, 0, 0}, 3)
	q, _ := EncodeLog(Uint8, tn, Linspace)

	buf, _ := Marshal(q)
	back, err := Unmarshal(Uint8, []int{3}, buf)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !math.IsInf(back.Min(), -1) || !math.IsInf(back.Max(), -1) {
		t.Errorf("Expected -Inf log range, got (%v, %v)", back.Min(), back.Max())
	}
	out := DecodeLog64(back)
	for i, v := range out.Data() {
		if v != 0 {
			t.Errorf("Element %d: expected 0, got %v", i, v)
		}
	}
}

func TestUnmarshal_LengthValidation(t *testing.T) {
	if _, err := Unmarshal(Uint8, []int{4}, make([]byte, 16+3)); err == nil {
		t.Error("Expected error for truncated payload")
	}
	if _, err := Unmarshal(Uint16, []int{1}, make([]byte, 16+4)); err == nil {
		t.Error("Expected error for oversized payload")
	}
	if _, err := Unmarshal(Uint8, []int{-1}, nil); err == nil {
		t.Error("Expected error for negative dimension")
	}
	if _, err := Unmarshal(Kind(99), []int{1}, make([]byte, 17)); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
