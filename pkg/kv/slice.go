package kv

import "bytes"

// Slice is a non-owning, borrowed view over a byte range. It exists as a
// distinct type (rather than a bare []byte) so the façade's ordering and
// prefix-matching rules read as one vocabulary across the package, the way
// the original C++ interface keeps Slice separate from std::string.
//
// A Slice returned from Get/iterator Key/Value is only valid until the next
// state-changing call on the transaction, strand, or iterator that produced
// it — callers that need the bytes to outlive that call must copy them.
type Slice struct {
	b []byte
}

// BytesSlice wraps b without copying. The caller must not mutate b while any
// Slice derived from it is in use.
func BytesSlice(b []byte) Slice {
	return Slice{b: b}
}

// StringSlice wraps a copy of the bytes of s.
func StringSlice(s string) Slice {
	return Slice{b: []byte(s)}
}

// Size returns the number of bytes in the slice.
func (s Slice) Size() int {
	return len(s.b)
}

// Empty reports whether the slice has zero length.
func (s Slice) Empty() bool {
	return len(s.b) == 0
}

// Data returns the underlying bytes. The caller must not retain or mutate
// the returned slice beyond the validity window documented on Slice.
func (s Slice) Data() []byte {
	return s.b
}

// ToString makes an owned copy of the slice contents.
func (s Slice) ToString() string {
	return string(s.b)
}

// Compare returns <0, 0, or >0 as s is lexicographically less than, equal
// to, or greater than other, comparing bytes as unsigned octets.
func (s Slice) Compare(other Slice) int {
	return bytes.Compare(s.b, other.b)
}

// StartsWith reports whether s begins with the bytes of other.
func (s Slice) StartsWith(other Slice) bool {
	return bytes.HasPrefix(s.b, other.b)
}

// At returns the byte at the given offset, which must be < Size().
func (s Slice) At(i int) byte {
	return s.b[i]
}

// Equal reports bytewise equality.
func (s Slice) Equal(other Slice) bool {
	return bytes.Equal(s.b, other.b)
}

// Less reports whether s sorts strictly before other.
func (s Slice) Less(other Slice) bool {
	return s.Compare(other) < 0
}

// NextKeySibling returns the smallest key strictly greater than every key
// that has b as a prefix, and ok=false if no such key exists (b consists
// entirely of 0xFF bytes, including the empty case where the sibling would
// be the unbounded end).
//
// Computed by incrementing the last byte that is not 0xFF and truncating
// everything after it; an all-0xFF (or empty) input has no sibling.
func NextKeySibling(b []byte) (sibling []byte, ok bool) {
	out := make([]byte, len(b))
	copy(out, b)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1], true
		}
	}
	return nil, false
}
