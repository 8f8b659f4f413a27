// Package numkey implements an order-preserving encoding of float64 values
// into fixed-width 8-byte keys.
//
// Engines like Bolt only know how to compare keys byte by byte. Encoded keys
// compare (bytes.Compare) exactly like the numbers they represent compare
// numerically, so floats can be used as keys without a custom comparator:
//
//   - negative values sort before positive ones;
//   - -0 and +0 encode to the same key;
//   - NaN sorts after every other value, including +Inf.
//
// The encoding flips all bits of negative numbers and only the sign bit of
// non-negative ones, then writes the result big-endian.
package numkey

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Size is the length of every encoded key.
const Size = 8

const signBit = uint64(1) << 63

// canonicalNaN is the quiet NaN with the sign bit clear. All NaNs are folded
// into it so that they land after +Inf.
const canonicalNaN = uint64(0x7FF8000000000000)

// Encode returns the sortable representation of v.
func Encode(v float64) [Size]byte {
	var out [Size]byte
	binary.BigEndian.PutUint64(out[:], EncodeBits(v))
	return out
}

// EncodeBits is like Encode, but returns the big-endian value as an integer.
func EncodeBits(v float64) uint64 {
	var bits uint64
	switch {
	case v == 0:
		bits = 0 // folds -0 into +0
	case math.IsNaN(v):
		bits = canonicalNaN
	default:
		bits = math.Float64bits(v)
	}
	if bits&signBit != 0 {
		return ^bits
	}
	return bits ^ signBit
}

// Decode reverses Encode.
func Decode(b [Size]byte) float64 {
	return DecodeBits(binary.BigEndian.Uint64(b[:]))
}

// DecodeBits reverses EncodeBits.
func DecodeBits(bits uint64) float64 {
	// a leading 0 means the value was negative
	if bits&signBit == 0 {
		return math.Float64frombits(^bits)
	}
	return math.Float64frombits(bits ^ signBit)
}

// DecodeSlice decodes the first Size bytes of b. It reports false if b is too
// short.
func DecodeSlice(b []byte) (float64, bool) {
	if len(b) < Size {
		return 0, false
	}
	return DecodeBits(binary.BigEndian.Uint64(b)), true
}

// Compare compares two encoded keys. It is bytes.Compare; it exists to make
// the intended comparator explicit at call sites.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
