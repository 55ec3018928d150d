package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{name: "equal", a: "abc", b: "abc", expected: 0},
		{name: "less", a: "abc", b: "abd", expected: -1},
		{name: "greater", a: "abd", b: "abc", expected: 1},
		{name: "shorter prefix sorts first", a: "ab", b: "abc", expected: -1},
		{name: "empty vs non-empty", a: "", b: "a", expected: -1},
		{name: "both empty", a: "", b: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StringSlice(tt.a).Compare(StringSlice(tt.b))
			switch {
			case tt.expected < 0:
				assert.Negative(t, got)
			case tt.expected > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestSliceStartsWith(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		prefix   string
		expected bool
	}{
		{name: "exact prefix", s: "a/b/c", prefix: "a/b", expected: true},
		{name: "full match", s: "abc", prefix: "abc", expected: true},
		{name: "empty prefix always matches", s: "abc", prefix: "", expected: true},
		{name: "prefix longer than string", s: "ab", prefix: "abc", expected: false},
		{name: "no match", s: "abc", prefix: "xyz", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StringSlice(tt.s).StartsWith(StringSlice(tt.prefix))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSliceEqualAndLess(t *testing.T) {
	a := StringSlice("abc")
	b := StringSlice("abd")
	c := StringSlice("abc")

	assert.True(t, a.Equal(c))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestSliceAt(t *testing.T) {
	s := StringSlice("abc")
	assert.Equal(t, byte('a'), s.At(0))
	assert.Equal(t, byte('c'), s.At(2))
}

func TestSliceSizeAndEmpty(t *testing.T) {
	assert.Equal(t, 0, StringSlice("").Size())
	assert.True(t, StringSlice("").Empty())
	assert.Equal(t, 3, StringSlice("abc").Size())
	assert.False(t, StringSlice("abc").Empty())
}

// TestNextKeySibling checks the computed sibling is the exact least upper
// bound on every key sharing the input as a prefix.
func TestNextKeySibling(t *testing.T) {
	tests := []struct {
		name        string
		input       []byte
		wantSibling []byte
		wantOK      bool
	}{
		{
			name:        "normal increment of last byte",
			input:       []byte("ab"),
			wantSibling: []byte("ac"),
			wantOK:      true,
		},
		{
			name:        "truncates trailing 0xFF bytes",
			input:       []byte{'a', 0xFF, 0xFF},
			wantSibling: []byte{'b'},
			wantOK:      true,
		},
		{
			name:   "all 0xFF bytes has no sibling",
			input:  []byte{0xFF, 0xFF, 0xFF},
			wantOK: false,
		},
		{
			name:   "empty input has no sibling",
			input:  []byte{},
			wantOK: false,
		},
		{
			name:        "single non-0xFF byte",
			input:       []byte{0x00},
			wantSibling: []byte{0x01},
			wantOK:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sibling, ok := NextKeySibling(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSibling, sibling)
			}
		})
	}
}
