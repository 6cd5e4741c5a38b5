package quant

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Marshal lays a quantized tensor out for storage: two little-endian
// IEEE-754 doubles (min, max) followed by the payload in row-major order,
// each element occupying exactly the kind's bit width. The 24-bit kinds pack
// to 3 bytes per element. Kind and shape travel out of band.
func Marshal(q *Quantized) ([]byte, error) {
	ki, err := q.kind.info()
	if err != nil {
		return nil, err
	}
	width := ki.bits / 8
	out := make([]byte, 16+len(q.cells)*width)
	binary.LittleEndian.PutUint64(out[0:], math.Float64bits(q.min))
	binary.LittleEndian.PutUint64(out[8:], math.Float64bits(q.max))

	mask := uint64(1)<<ki.bits - 1
	off := 16
	for _, c := range q.cells {
		u := uint64(c) & mask // two's complement within the width
		for b := 0; b < width; b++ {
			out[off+b] = byte(u >> (8 * b))
		}
		off += width
	}
	return out, nil
}

// Unmarshal reverses Marshal. The caller supplies the kind and shape the
// payload was written with; buf must be exactly the layout Marshal produces
// for them.
func Unmarshal(kind Kind, shape []int, buf []byte) (*Quantized, error) {
	ki, err := kind.info()
	if err != nil {
		return nil, err
	}
	for i, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d at axis %d", ErrInvalidArgument, d, i)
		}
	}
	n := shapeLen(shape)
	width := ki.bits / 8
	if want := 16 + n*width; len(buf) != want {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d for %s%v", ErrInvalidArgument, len(buf), want, kind, shape)
	}

	q := newQuantized(kind, append([]int(nil), shape...), 0, 0)
	q.min = math.Float64frombits(binary.LittleEndian.Uint64(buf[0:]))
	q.max = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))

	signBit := uint64(1) << (ki.bits - 1)
	off := 16
	for i := 0; i < n; i++ {
		var u uint64
		for b := 0; b < width; b++ {
			u |= uint64(buf[off+b]) << (8 * b)
		}
		off += width
		if ki.signed && u&signBit != 0 {
			q.cells[i] = int64(u) - int64(1)<<ki.bits // sign-extend
		} else {
			q.cells[i] = int64(u)
		}
	}
	return q, nil
}
