package vm

import (
	"math"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/datetime"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/digest"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

func matchBool(p *ast.BoolPattern, v value.Value) bool {
	b, ok := v.AsBool()
	if !ok {
		return false
	}
	if p.Sub == ast.BoolAny {
		return true
	}
	return b == p.Value
}

func (m *Matcher) matchText(p *ast.TextPattern, v value.Value) bool {
	s, ok := v.AsText()
	if !ok {
		return false
	}
	switch p.Sub {
	case ast.TextAny:
		return true
	case ast.TextExact:
		return s == p.Value
	case ast.TextRegex:
		re := m.Program.Regex(p)
		return re != nil && re.MatchString(s)
	default:
		return false
	}
}

func (m *Matcher) matchByteString(p *ast.ByteStringPattern, v value.Value) bool {
	b, ok := v.AsByteString()
	if !ok {
		return false
	}
	switch p.Sub {
	case ast.ByteStringAny:
		return true
	case ast.ByteStringExact:
		return bytesEq(b, p.Value)
	case ast.ByteStringRegex:
		re := m.Program.Regex(p)
		return re != nil && re.Match(b)
	default:
		return false
	}
}

func (m *Matcher) matchDigest(p *ast.DigestPattern, v value.Value) bool {
	b, ok := v.AsByteString()
	if !ok {
		return false
	}
	switch p.Sub {
	case ast.DigestAny:
		return len(b) == digest.Size
	case ast.DigestFull:
		return bytesEq(b, p.Value)
	case ast.DigestPrefix:
		return len(b) >= len(p.Value) && bytesEq(b[:len(p.Value)], p.Value)
	case ast.DigestRegex:
		if len(b) != digest.Size {
			return false
		}
		re := m.Program.Regex(p)
		return re != nil && re.MatchString(digest.FormatHex(b))
	default:
		return false
	}
}

// matchDate matches a bare Number CBOR atom as an epoch-seconds instant.
// Date patterns are never inherently tag-wrapped: a dCBOR date value is
// Tagged(1, Number), so matching the full tagged form is written
// explicitly as tagged(date, date'...') (or tagged(1, ...)); the Date
// leaf itself only ever looks at a Number atom.
func (m *Matcher) matchDate(p *ast.DatePattern, v value.Value) bool {
	n, ok := v.AsNumber()
	if !ok {
		return false
	}
	inst := datetime.FromCBORTagContent(n)
	switch p.Sub {
	case ast.DateAny:
		return true
	case ast.DateExact:
		return inst.Equal(p.Exact)
	case ast.DateRange:
		if p.Lo != nil && inst.Before(*p.Lo) {
			return false
		}
		if p.Hi != nil && inst.After(*p.Hi) {
			return false
		}
		return true
	case ast.DateTextRegex:
		re := m.Program.Regex(p)
		return re != nil && re.MatchString(datetime.Format(inst))
	default:
		return false
	}
}

func matchNumber(p *ast.NumberPattern, v value.Value) bool {
	n, ok := v.AsNumber()
	if !ok {
		return false
	}
	switch p.Sub {
	case ast.NumberAny:
		return true
	case ast.NumberExact:
		return n == p.Exact
	case ast.NumberRange:
		return n >= p.Lo && n <= p.Hi
	case ast.NumberCmp:
		switch p.Op {
		case ast.CmpGe:
			return n >= p.CmpX
		case ast.CmpLe:
			return n <= p.CmpX
		case ast.CmpGt:
			return n > p.CmpX
		case ast.CmpLt:
			return n < p.CmpX
		default:
			return false
		}
	case ast.NumberNaN:
		return math.IsNaN(n)
	case ast.NumberPosInf:
		return math.IsInf(n, 1)
	case ast.NumberNegInf:
		return math.IsInf(n, -1)
	default:
		return false
	}
}

// matchKnownValue matches a bare Number CBOR atom as an integral known-value
// code, mirroring Date's bare-Number convention: the full tag-wrapped dCBOR
// representation is written explicitly as tagged(known_value, '...').
func (m *Matcher) matchKnownValue(p *ast.KnownValuePattern, v value.Value) bool {
	n, ok := v.AsNumber()
	if !ok {
		return false
	}
	if n != math.Trunc(n) || n < 0 {
		return false
	}
	code := uint64(n)
	switch p.Sub {
	case ast.KnownValueAny:
		return true
	case ast.KnownValueByValue:
		return code == p.Value
	case ast.KnownValueByName:
		v, ok := m.Known.ValueByName(p.Name)
		return ok && v == code
	case ast.KnownValueNameRegex:
		name, ok := m.Known.NameByValue(code)
		if !ok {
			return false
		}
		re := m.Program.Regex(p)
		return re != nil && re.MatchString(name)
	default:
		return false
	}
}

func bytesEq(a, b []byte) bool {
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
