// Package ast defines the pattern tree the parser produces and the
// compiler consumes: value patterns over CBOR atoms, structure patterns
// over arrays/maps/tagged values, and the meta combinators that glue them
// together (And, Or, Not, Repeat, Sequence, Capture, Search).
//
// Patterns are plain immutable values once constructed; the only rewrite
// that ever happens to them is the compiler's single read-only descent.
package ast

import (
	"fmt"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/datetime"
)

// Reluctance controls the order in which a Repeat's alternatives for the
// consumed count are tried, and whether backtracking may reconsider them.
type Reluctance uint8

const (
	// Greedy tries the largest count first, shrinking on backtrack.
	Greedy Reluctance = iota
	// Lazy tries the smallest count first, growing on backtrack.
	Lazy
	// Possessive tries the greedy count and never backtracks into it.
	Possessive
)

func (r Reluctance) String() string {
	switch r {
	case Greedy:
		return ""
	case Lazy:
		return "?"
	case Possessive:
		return "+"
	default:
		return "?"
	}
}

// Quantifier bounds how many times a Repeat's child may match, and in
// what order those counts are explored.
type Quantifier struct {
	Min        uint64
	Max        uint64 // Unbounded sentinel: use MaxUnbounded.
	Reluctance Reluctance
}

// MaxUnbounded marks a Quantifier with no upper bound (`*`, `+`, `{n,}`).
const MaxUnbounded = ^uint64(0)

// Unbounded reports whether the quantifier has no upper bound.
func (q Quantifier) Unbounded() bool { return q.Max == MaxUnbounded }

// NumberCmpOp is the comparison operator of a Number Cmp pattern.
type NumberCmpOp uint8

const (
	CmpGe NumberCmpOp = iota
	CmpLe
	CmpGt
	CmpLt
)

func (op NumberCmpOp) String() string {
	switch op {
	case CmpGe:
		return ">="
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpLt:
		return "<"
	default:
		return "?"
	}
}

// LengthConstraint bounds the element/entry count of an Array or Map.
type LengthConstraint struct {
	Min uint64
	Max uint64 // MaxUnbounded for AtLeast.
}

func (lc LengthConstraint) String() string {
	switch {
	case lc.Min == lc.Max:
		return fmt.Sprintf("%d", lc.Min)
	case lc.Max == MaxUnbounded:
		return fmt.Sprintf("%d,", lc.Min)
	default:
		return fmt.Sprintf("%d,%d", lc.Min, lc.Max)
	}
}

// TagSelKind distinguishes how a Tagged pattern selects its tag number.
type TagSelKind uint8

const (
	TagAny TagSelKind = iota
	TagNumber
	TagName
	TagNameRegex
)

// TagSel selects which tag numbers a Tagged pattern accepts.
type TagSel struct {
	Kind  TagSelKind
	Num   uint64
	Name  string
	Regex string
}

// Pattern is the single sum type every node of the tree belongs to. Kind
// discriminates which of the payload fields is meaningful. A single
// struct with an enum tag, rather than an interface-per-node hierarchy:
// the compiler and matcher both switch exhaustively over node shape, and
// keeping that switch in one flat type keeps the variants enumerable.
type Pattern struct {
	Kind Kind

	// Value pattern payloads.
	Bool        *BoolPattern
	Text        *TextPattern
	ByteString  *ByteStringPattern
	Digest      *DigestPattern
	Date        *DatePattern
	Number      *NumberPattern
	KnownValue  *KnownValuePattern

	// Structure pattern payloads.
	Array  *ArrayPattern
	Map    *MapPattern
	Tagged *TaggedPattern

	// Meta pattern payloads.
	And      []Pattern
	Or       []Pattern
	Not      *Pattern
	Repeat   *RepeatPattern
	Sequence []Pattern
	Capture  *CapturePattern
	Search   *Pattern
}

// Kind discriminates the variant of Pattern in use.
type Kind uint8

const (
	KindAny Kind = iota
	KindNone
	KindNull
	KindBool
	KindText
	KindByteString
	KindDigest
	KindDate
	KindNumber
	KindKnownValue
	KindArray
	KindMap
	KindTagged
	KindAnd
	KindOr
	KindNot
	KindRepeat
	KindSequence
	KindCapture
	KindSearch
)

// Any is the bare wildcard: matches every node, no descent.
func Any() Pattern { return Pattern{Kind: KindAny} }

// None rejects every node; surface syntax `!*` rewrites to this.
func None() Pattern { return Pattern{Kind: KindNone} }

// NullPattern matches the Null atom.
func NullPattern() Pattern { return Pattern{Kind: KindNull} }

// --- Bool ---

type BoolSubKind uint8

const (
	BoolAny BoolSubKind = iota
	BoolExact
)

type BoolPattern struct {
	Sub   BoolSubKind
	Value bool
}

func NewBool(b BoolPattern) Pattern { return Pattern{Kind: KindBool, Bool: &b} }

// --- Text ---

type TextSubKind uint8

const (
	TextAny TextSubKind = iota
	TextExact
	TextRegex
)

type TextPattern struct {
	Sub   TextSubKind
	Value string // Exact
	Regex string // Regex (source, unanchored by the user)
}

func NewText(t TextPattern) Pattern { return Pattern{Kind: KindText, Text: &t} }

// --- ByteString ---

type ByteStringSubKind uint8

const (
	ByteStringAny ByteStringSubKind = iota
	ByteStringExact
	ByteStringRegex
)

type ByteStringPattern struct {
	Sub   ByteStringSubKind
	Value []byte
	Regex string
}

func NewByteString(b ByteStringPattern) Pattern { return Pattern{Kind: KindByteString, ByteString: &b} }

// --- Digest ---

type DigestSubKind uint8

const (
	DigestAny DigestSubKind = iota
	DigestPrefix
	DigestFull
	DigestRegex
)

type DigestPattern struct {
	Sub   DigestSubKind
	Value []byte // Prefix (<=32 bytes) or Full (==32 bytes)
	Regex string
}

func NewDigest(d DigestPattern) Pattern { return Pattern{Kind: KindDigest, Digest: &d} }

// --- Date ---

type DateSubKind uint8

const (
	DateAny DateSubKind = iota
	DateExact
	DateRange
	DateTextRegex
)

type DatePattern struct {
	Sub   DateSubKind
	Exact datetime.Instant
	Lo    *datetime.Instant // Range: nil means unbounded below
	Hi    *datetime.Instant // Range: nil means unbounded above
	Regex string
}

func NewDate(d DatePattern) Pattern { return Pattern{Kind: KindDate, Date: &d} }

// --- Number ---

type NumberSubKind uint8

const (
	NumberAny NumberSubKind = iota
	NumberExact
	NumberRange
	NumberCmp
	NumberNaN
	NumberPosInf
	NumberNegInf
)

type NumberPattern struct {
	Sub   NumberSubKind
	Exact float64
	Lo    float64 // Range
	Hi    float64 // Range
	Op    NumberCmpOp
	CmpX  float64
}

func NewNumber(n NumberPattern) Pattern { return Pattern{Kind: KindNumber, Number: &n} }

// --- KnownValue ---

type KnownValueSubKind uint8

const (
	KnownValueAny KnownValueSubKind = iota
	KnownValueByValue
	KnownValueByName
	KnownValueNameRegex
)

type KnownValuePattern struct {
	Sub   KnownValueSubKind
	Value uint64
	Name  string
	Regex string
}

func NewKnownValue(k KnownValuePattern) Pattern { return Pattern{Kind: KindKnownValue, KnownValue: &k} }

// --- Array / Map structure ---

type ArrayKindTag uint8

const (
	ArrayAnyLength ArrayKindTag = iota
	ArrayLength
	ArrayElements
)

type ArrayPattern struct {
	Kind     ArrayKindTag
	Length   LengthConstraint
	Elements *Pattern // Sequence node, or any pattern wrapped as one element.
}

func NewArray(a ArrayPattern) Pattern { return Pattern{Kind: KindArray, Array: &a} }

type MapKindTag uint8

const (
	MapAnyLength MapKindTag = iota
	MapLength
	MapEntries
)

// MapEntry is one key:value requirement of a Map(Entries(...)) pattern.
type MapEntry struct {
	Key   Pattern
	Value Pattern
}

type MapPattern struct {
	Kind    MapKindTag
	Length  LengthConstraint
	Entries []MapEntry
}

func NewMap(m MapPattern) Pattern { return Pattern{Kind: KindMap, Map: &m} }

type TaggedPattern struct {
	Sel   TagSel
	Inner *Pattern
}

func NewTagged(t TaggedPattern) Pattern { return Pattern{Kind: KindTagged, Tagged: &t} }

// --- Meta combinators ---

func NewAnd(children []Pattern) Pattern { return Pattern{Kind: KindAnd, And: children} }
func NewOr(children []Pattern) Pattern  { return Pattern{Kind: KindOr, Or: children} }

func NewNot(child Pattern) Pattern { return Pattern{Kind: KindNot, Not: &child} }

type RepeatPattern struct {
	Child      Pattern
	Quantifier Quantifier
}

func NewRepeat(child Pattern, q Quantifier) Pattern {
	return Pattern{Kind: KindRepeat, Repeat: &RepeatPattern{Child: child, Quantifier: q}}
}

// NewGroup lowers a parenthesized group `(p)` to the mandatory
// Repeat(p, {1,1,Greedy}) wrapper every group receives, quantified or not.
func NewGroup(child Pattern) Pattern {
	return NewRepeat(child, Quantifier{Min: 1, Max: 1, Reluctance: Greedy})
}

func NewSequence(items []Pattern) Pattern { return Pattern{Kind: KindSequence, Sequence: items} }

type CapturePattern struct {
	Name  string
	Child Pattern
}

func NewCapture(name string, child Pattern) Pattern {
	return Pattern{Kind: KindCapture, Capture: &CapturePattern{Name: name, Child: child}}
}

func NewSearch(child Pattern) Pattern {
	return Pattern{Kind: KindSearch, Search: &child}
}
