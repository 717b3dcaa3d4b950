package value

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDiagnostic parses CBOR diagnostic notation (the subset Diagnostic
// emits) back into a Value. It exists for tests: expected values read far
// better as `[1, {"k": 2}, 7(3)]` than as nested constructor calls. Inside
// text it decodes only the \", \\, \n and \t escapes; other escapes are
// kept literally, so text that Diagnostic renders with them does not
// round-trip.
func ParseDiagnostic(s string) (Value, error) {
	p := &diagParser{src: s}
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Value{}, fmt.Errorf("value: trailing data at byte %d of %q", p.pos, s)
	}
	return v, nil
}

// MustParseDiagnostic is ParseDiagnostic, panicking on error.
func MustParseDiagnostic(s string) Value {
	v, err := ParseDiagnostic(s)
	if err != nil {
		panic(err)
	}
	return v
}

type diagParser struct {
	src string
	pos int
}

func (p *diagParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *diagParser) errf(format string, args ...interface{}) error {
	return fmt.Errorf("value: diagnostic at byte %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *diagParser) parseValue() (Value, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Value{}, p.errf("unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '[':
		return p.parseArray()
	case c == '{':
		return p.parseMap()
	case c == '"':
		return p.parseText()
	case c == 'h' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'':
		return p.parseBytes()
	case p.hasWord("null"):
		return Null(), nil
	case p.hasWord("true"):
		return Bool(true), nil
	case p.hasWord("false"):
		return Bool(false), nil
	case p.hasWord("NaN"):
		return Number(math.NaN()), nil
	case p.hasWord("Infinity"):
		return Number(math.Inf(1)), nil
	case p.hasWord("-Infinity"):
		return Number(math.Inf(-1)), nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumberOrTagged()
	default:
		return Value{}, p.errf("unexpected character %q", c)
	}
}

// hasWord consumes word if it appears at the cursor and is not followed by
// an identifier character (so "nullx" is not "null").
func (p *diagParser) hasWord(word string) bool {
	if !strings.HasPrefix(p.src[p.pos:], word) {
		return false
	}
	rest := p.src[p.pos+len(word):]
	if rest != "" {
		c := rest[0]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return false
		}
	}
	p.pos += len(word)
	return true
}

// parseNumberOrTagged handles both bare numbers and the N(content) tagged
// form, which share a numeric prefix.
func (p *diagParser) parseNumberOrTagged() (Value, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	isInt := true
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		isInt = false
		p.pos++
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		isInt = false
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
	}
	text := p.src[start:p.pos]
	if isInt && p.pos < len(p.src) && p.src[p.pos] == '(' {
		tag, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return Value{}, p.errf("invalid tag number %q", text)
		}
		p.pos++ // '('
		content, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ')' {
			return Value{}, p.errf("expected ')' closing tag %d", tag)
		}
		p.pos++
		return Tagged(tag, content), nil
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, p.errf("invalid number %q", text)
	}
	return Number(n), nil
}

func (p *diagParser) parseText() (Value, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return Value{}, p.errf("unterminated text literal")
		}
		c := p.src[p.pos]
		if c == '\\' && p.pos+1 < len(p.src) {
			next := p.src[p.pos+1]
			switch next {
			case '"', '\\':
				sb.WriteByte(next)
				p.pos += 2
				continue
			case 'n':
				sb.WriteByte('\n')
				p.pos += 2
				continue
			case 't':
				sb.WriteByte('\t')
				p.pos += 2
				continue
			}
		}
		if c == '"' {
			p.pos++
			return Text(sb.String()), nil
		}
		sb.WriteByte(c)
		p.pos++
	}
}

func (p *diagParser) parseBytes() (Value, error) {
	p.pos += 2 // h'
	end := strings.IndexByte(p.src[p.pos:], '\'')
	if end < 0 {
		return Value{}, p.errf("unterminated byte string literal")
	}
	b, err := hex.DecodeString(p.src[p.pos : p.pos+end])
	if err != nil {
		return Value{}, p.errf("invalid hex: %v", err)
	}
	p.pos += end + 1
	return ByteString(b), nil
}

func (p *diagParser) parseArray() (Value, error) {
	p.pos++ // '['
	var elems []Value
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return Array(elems), nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return Array(elems), nil
		default:
			return Value{}, p.errf("expected ',' or ']' in array, got %q", p.src[p.pos])
		}
	}
}

func (p *diagParser) parseMap() (Value, error) {
	p.pos++ // '{'
	var pairs []Pair
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return Map(pairs), nil
	}
	for {
		k, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return Value{}, p.errf("expected ':' after map key")
		}
		p.pos++
		v, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Value{}, p.errf("unterminated map")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return SortedMap(pairs), nil
		default:
			return Value{}, p.errf("expected ',' or '}' in map, got %q", p.src[p.pos])
		}
	}
}
