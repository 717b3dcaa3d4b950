// Package value implements the CBOR host: an immutable value tree together
// with the axes used to descend from a parent node to its children.
//
// This corresponds to the "CBOR data model" collaborator in the pattern
// language's design: a sum over {Null, Bool, Number, Text, ByteString,
// Tagged, Array, Map}, borrowed by reference throughout matching and
// compared structurally. The package does not know about patterns; it only
// knows how to decode, compare, and walk CBOR values.
package value

import (
	"math"
	"sort"
)

// Kind identifies which variant of the CBOR sum type a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindByteString
	KindTagged
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindByteString:
		return "bstr"
	case KindTagged:
		return "tagged"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Pair is one key/value entry of a Map, held in canonical order.
type Pair struct {
	Key   Value
	Value Value
}

// Value is an immutable CBOR value. The zero Value is Null.
//
// Values are plain structs, cheap to copy (slices are shared, never
// mutated in place), and safe to hold in a Path alongside the root they
// were read from.
type Value struct {
	kind Kind

	b bool

	num float64

	text string

	bytes []byte

	tag     uint64
	content *Value

	array []Value
	pairs []Pair
}

// Null returns the Null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64. NaN and the two infinities are valid.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Text wraps a UTF-8 string.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// ByteString wraps a byte slice. The slice is retained, not copied.
func ByteString(b []byte) Value { return Value{kind: KindByteString, bytes: b} }

// Tagged wraps a tag number and its content.
func Tagged(tag uint64, content Value) Value {
	c := content
	return Value{kind: KindTagged, tag: tag, content: &c}
}

// Array wraps an ordered element list. The slice is retained, not copied.
func Array(elements []Value) Value { return Value{kind: KindArray, array: elements} }

// Map wraps entries that are already in canonical key order. Use SortedMap
// to build one from unordered pairs.
func Map(pairs []Pair) Value { return Value{kind: KindMap, pairs: pairs} }

// SortedMap builds a Map value, sorting pairs into canonical order (by the
// deterministic encoding of each key, per RFC 8949 §4.2.1 bytewise ordering
// of the original CBOR encoding of the key).
func SortedMap(pairs []Pair) Value {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	sort.SliceStable(cp, func(i, j int) bool {
		return compareKeys(cp[i].Key, cp[j].Key) < 0
	})
	return Value{kind: KindMap, pairs: cp}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

func (v Value) AsByteString() ([]byte, bool) {
	if v.kind != KindByteString {
		return nil, false
	}
	return v.bytes, true
}

// AsTagged returns the tag number and content for a Tagged value.
func (v Value) AsTagged() (uint64, Value, bool) {
	if v.kind != KindTagged {
		return 0, Value{}, false
	}
	return v.tag, *v.content, true
}

// Elements returns the element list of an Array, or nil otherwise.
func (v Value) Elements() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.array
}

// Pairs returns the entries of a Map in canonical order, or nil otherwise.
func (v Value) Pairs() []Pair {
	if v.kind != KindMap {
		return nil
	}
	return v.pairs
}

// Len reports the element count of an Array or entry count of a Map. It
// returns 0 for any other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.array)
	case KindMap:
		return len(v.pairs)
	default:
		return 0
	}
}

// Equal reports structural-canonical equality. Numbers compare by IEEE-754
// equality (NaN is never equal to NaN, including itself); everything else
// compares by recursive structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindByteString:
		return bytesEqual(v.bytes, o.bytes)
	case KindTagged:
		return v.tag == o.tag && v.content.Equal(*o.content)
	case KindArray:
		if len(v.array) != len(o.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(o.array[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.pairs) != len(o.pairs) {
			return false
		}
		for i := range v.pairs {
			if !v.pairs[i].Key.Equal(o.pairs[i].Key) || !v.pairs[i].Value.Equal(o.pairs[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsNaN reports whether the value is the Number NaN atom.
func (v Value) IsNaN() bool {
	return v.kind == KindNumber && math.IsNaN(v.num)
}
