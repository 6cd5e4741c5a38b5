// Package qzfile reads and writes quantized tensors as self-describing
// container files. The container wraps the codec wire layout (two doubles
// plus a width-packed payload) with the header the wire layout deliberately
// leaves out of band: scheme, integer kind and shape.
package qzfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/quant"
)

// Scheme names the codec family a payload was produced by. The container
// records it so a reader knows which decode interpretation applies.
type Scheme byte

const (
	SchemeLinear Scheme = 0
	SchemeLog    Scheme = 1
)

// String returns the scheme's name.
func (s Scheme) String() string {
	switch s {
	case SchemeLinear:
		return "linear"
	case SchemeLog:
		return "log"
	}
	return fmt.Sprintf("scheme(%d)", byte(s))
}

// ParseScheme resolves a scheme by name.
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "linear", "":
		return SchemeLinear, nil
	case "log":
		return SchemeLog, nil
	}
	return 0, fmt.Errorf("qzfile: unknown scheme %q", name)
}

// Header layout: magic "NQZ1", scheme byte, kind byte, rank byte, then one
// little-endian uint32 per axis. The wire payload follows immediately.
var magic = [4]byte{'N', 'Q', 'Z', '1'}

const maxRank = 32

// Kind codes are part of the file format; the in-memory enum values are not.
var kindCodes = map[quant.Kind]byte{
	quant.Int8:   1,
	quant.Int16:  2,
	quant.Int24:  3,
	quant.Int32:  4,
	quant.Uint8:  5,
	quant.Uint16: 6,
	quant.Uint24: 7,
	quant.Uint32: 8,
}

func kindFromCode(code byte) (quant.Kind, error) {
	for k, c := range kindCodes {
		if c == code {
			return k, nil
		}
	}
	return quant.KindInvalid, fmt.Errorf("qzfile: unknown kind code %d", code)
}

// Write serializes q with its scheme tag to w.
func Write(w io.Writer, scheme Scheme, q *quant.Quantized) error {
	if scheme != SchemeLinear && scheme != SchemeLog {
		return fmt.Errorf("qzfile: unknown scheme %d", byte(scheme))
	}
	code, ok := kindCodes[q.Kind()]
	if !ok {
		return fmt.Errorf("qzfile: kind %s has no wire code", q.Kind())
	}
	shape := q.Shape()
	if len(shape) > maxRank {
		return fmt.Errorf("qzfile: rank %d exceeds limit %d", len(shape), maxRank)
	}

	header := make([]byte, 0, 7+4*len(shape))
	header = append(header, magic[:]...)
	header = append(header, byte(scheme), code, byte(len(shape)))
	for _, d := range shape {
		header = binary.LittleEndian.AppendUint32(header, uint32(d))
	}
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("qzfile: write header: %w", err)
	}

	body, err := quant.Marshal(q)
	if err != nil {
		return fmt.Errorf("qzfile: marshal payload: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("qzfile: write payload: %w", err)
	}
	return nil
}

// Read parses a container produced by Write.
func Read(r io.Reader) (Scheme, *quant.Quantized, error) {
	var head [7]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, nil, fmt.Errorf("qzfile: read header: %w", err)
	}
	if [4]byte(head[:4]) != magic {
		return 0, nil, fmt.Errorf("qzfile: bad magic % x", head[:4])
	}
	scheme := Scheme(head[4])
	if scheme != SchemeLinear && scheme != SchemeLog {
		return 0, nil, fmt.Errorf("qzfile: unknown scheme %d", head[4])
	}
	kind, err := kindFromCode(head[5])
	if err != nil {
		return 0, nil, err
	}
	rank := int(head[6])
	if rank > maxRank {
		return 0, nil, fmt.Errorf("qzfile: rank %d exceeds limit %d", rank, maxRank)
	}

	shape := make([]int, rank)
	dims := make([]byte, 4*rank)
	if _, err := io.ReadFull(r, dims); err != nil {
		return 0, nil, fmt.Errorf("qzfile: read shape: %w", err)
	}
	n := 1
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint32(dims[4*i:]))
		n *= shape[i]
	}

	body := make([]byte, 16+n*kind.Bits()/8)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("qzfile: read payload: %w", err)
	}
	q, err := quant.Unmarshal(kind, shape, body)
	if err != nil {
		return 0, nil, fmt.Errorf("qzfile: %w", err)
	}
	return scheme, q, nil
}
