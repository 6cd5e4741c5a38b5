// Package quant implements lossy range-normalizing quantization of float
// tensors into fixed-width integer codes (8/16/24/32-bit, signed or
// unsigned), using either linear spacing in value space or uniform spacing
// in log space. Every quantized tensor carries the min/max of its source
// range, so it can be reconstructed without external metadata.
package quant

import "fmt"

// Kind identifies a target integer representation by width and signedness.
type Kind int

const (
	KindInvalid Kind = iota
	Int8
	Int16
	Int24
	Int32
	Uint8
	Uint16
	Uint24
	Uint32
)

// kindInfo describes one integer kind: bit width, signedness and the
// representable bounds as exact float64 values.
type kindInfo struct {
	name   string
	bits   int
	signed bool
	min    float64
	max    float64
}

// kinds is the dispatch table for all registered integer kinds. It is
// filled during package initialization and read-only afterward.
var kinds = map[Kind]kindInfo{}

func registerKind(k Kind, name string, bits int, signed bool) {
	var lo, hi float64
	if signed {
		lo = -float64(int64(1) << (bits - 1))
		hi = float64(int64(1)<<(bits-1) - 1)
	} else {
		lo = 0
		hi = float64(int64(1)<<bits - 1)
	}
	kinds[k] = kindInfo{name: name, bits: bits, signed: signed, min: lo, max: hi}
}

func init() {
	registerKind(Int8, "int8", 8, true)
	registerKind(Int16, "int16", 16, true)
	registerKind(Int32, "int32", 32, true)
	registerKind(Uint8, "uint8", 8, false)
	registerKind(Uint16, "uint16", 16, false)
	registerKind(Uint32, "uint32", 32, false)
}

// info returns the descriptor for k, or an invalid-argument error for an
// unregistered kind.
func (k Kind) info() (kindInfo, error) {
	ki, ok := kinds[k]
	if !ok {
		return kindInfo{}, fmt.Errorf("%w: unknown integer kind %d", ErrInvalidArgument, int(k))
	}
	return ki, nil
}

// Valid reports whether k names a registered integer kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// String returns the kind's name, e.g. "uint8".
func (k Kind) String() string {
	if ki, ok := kinds[k]; ok {
		return ki.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Bits returns the kind's bit width.
func (k Kind) Bits() int {
	return kinds[k].bits
}

// Signed reports whether the kind is signed.
func (k Kind) Signed() bool {
	return kinds[k].signed
}

// TypeMin returns the smallest representable value of the kind.
func (k Kind) TypeMin() float64 {
	return kinds[k].min
}

// TypeMax returns the largest representable value of the kind.
func (k Kind) TypeMax() float64 {
	return kinds[k].max
}

// ParseKind resolves a kind by name.
func ParseKind(name string) (Kind, error) {
	for k, ki := range kinds {
		if ki.name == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: unknown integer kind %q", ErrInvalidArgument, name)
}

// Kinds lists the names of all registered kinds in width order,
// signed before unsigned.
func Kinds() []string {
	order := []Kind{Int8, Int16, Int24, Int32, Uint8, Uint16, Uint24, Uint32}
	names := make([]string, 0, len(order))
	for _, k := range order {
		if ki, ok := kinds[k]; ok {
			names = append(names, ki.name)
		}
	}
	return names
}
