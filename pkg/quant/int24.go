package quant

// The 24-bit kinds have no native Go integer type. They are registered here
// as first-class entries in the kind table, stored in the same 64-bit payload
// cells as every other kind but bounded to 24-bit range. The wire layer packs
// them to exactly 3 bytes per element (see marshal.go); in memory, arithmetic
// convenience wins over compactness.
func init() {
	registerKind(Int24, "int24", 24, true)
	registerKind(Uint24, "uint24", 24, false)
}
