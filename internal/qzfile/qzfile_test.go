package qzfile

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/quant"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/tensor"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	data := make([]float64, 24)
	for i := range data {
		data[i] = rand.NormFloat64()
	}
	tn, _ := tensor.FromSlice(data, 2, 3, 4)

	for _, kind := range []quant.Kind{quant.Int8, quant.Uint16, quant.Int24, quant.Uint32} {
		q, err := quant.EncodeLinear(kind, tn, nil)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", kind, err)
		}

		var buf bytes.Buffer
		if err := Write(&buf, SchemeLinear, q); err != nil {
			t.Fatalf("%s: Write failed: %v", kind, err)
		}

		scheme, back, err := Read(&buf)
		if err != nil {
			t.Fatalf("%s: Read failed: %v", kind, err)
		}
		if scheme != SchemeLinear {
			t.Errorf("%s: expected linear scheme, got %s", kind, scheme)
		}
		if back.Kind() != kind {
			t.Errorf("%s: kind not preserved, got %s", kind, back.Kind())
		}
		if back.Rank() != 3 || back.Dim(0) != 2 || back.Dim(1) != 3 || back.Dim(2) != 4 {
			t.Errorf("%s: shape not preserved: %v", kind, back.Shape())
		}
		if back.Min() != q.Min() || back.Max() != q.Max() {
			t.Errorf("%s: range not preserved", kind)
		}
		for i := range q.Payload() {
			if q.Payload()[i] != back.Payload()[i] {
				t.Fatalf("%s: payload mismatch at %d", kind, i)
			}
		}
	}
}

func TestWriteRead_LogScheme(t *testing.T) {
	tn, _ := tensor.FromSlice([]float32{0, 0.5, 2, 8}, 4)
	q, _ := quant.EncodeLog(quant.Uint8, tn, quant.Logspace)

	var buf bytes.Buffer
	if err := Write(&buf, SchemeLog, q); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	scheme, back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if scheme != SchemeLog {
		t.Errorf("Expected log scheme, got %s", scheme)
	}

	a, b := quant.DecodeLog32(q), quant.DecodeLog32(back)
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Errorf("Decode differs after file trip at %d", i)
		}
	}
}

func TestRead_BadMagic(t *testing.T) {
	_, _, err := Read(bytes.NewReader([]byte("XXXX\x00\x01\x01\x00\x00\x00\x00")))
	if err == nil {
		t.Error("Expected error for bad magic")
	}
}

func TestRead_Truncated(t *testing.T) {
	tn, _ := tensor.FromSlice([]float64{1, 2, 3}, 3)
	q, _ := quant.EncodeLinear(quant.Uint8, tn, nil)

	var buf bytes.Buffer
	if err := Write(&buf, SchemeLinear, q); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	full := buf.Bytes()
	for _, cut := range []int{3, 7, len(full) - 1} {
		if _, _, err := Read(bytes.NewReader(full[:cut])); err == nil {
			t.Errorf("Expected error for truncation at %d bytes", cut)
		}
	}
}

func TestParseScheme(t *testing.T) {
	if s, err := ParseScheme("log"); err != nil || s != SchemeLog {
		t.Errorf("ParseScheme(log): got %v, %v", s, err)
	}
	if s, err := ParseScheme(""); err != nil || s != SchemeLinear {
		t.Errorf("Empty scheme must default to linear, got %v, %v", s, err)
	}
	if _, err := ParseScheme("huffman"); err == nil {
		t.Error("Expected error for unknown scheme")
	}
}
