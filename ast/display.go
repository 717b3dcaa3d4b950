package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/datetime"
)

// Display renders p in canonical surface syntax such that parsing the
// result reproduces an equivalent pattern.
func (p Pattern) Display() string {
	var sb strings.Builder
	p.write(&sb)
	return sb.String()
}

func (p Pattern) String() string { return p.Display() }

func (p Pattern) write(sb *strings.Builder) {
	switch p.Kind {
	case KindAny:
		sb.WriteString("*")
	case KindNone:
		sb.WriteString("!*")
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		p.Bool.write(sb)
	case KindText:
		p.Text.write(sb)
	case KindByteString:
		p.ByteString.write(sb)
	case KindDigest:
		p.Digest.write(sb)
	case KindDate:
		p.Date.write(sb)
	case KindNumber:
		p.Number.write(sb)
	case KindKnownValue:
		p.KnownValue.write(sb)
	case KindArray:
		p.Array.write(sb)
	case KindMap:
		p.Map.write(sb)
	case KindTagged:
		p.Tagged.write(sb)
	case KindAnd:
		writeJoined(sb, p.And, " & ")
	case KindOr:
		writeJoined(sb, p.Or, " | ")
	case KindNot:
		sb.WriteString("!")
		p.Not.write(sb)
	case KindRepeat:
		p.Repeat.write(sb)
	case KindSequence:
		writeJoined(sb, p.Sequence, ", ")
	case KindCapture:
		// The parser always wraps a capture's body in a group, so a Repeat
		// child renders its own parentheses; anything else (programmatic
		// construction) gets an explicit pair.
		fmt.Fprintf(sb, "@%s", p.Capture.Name)
		if p.Capture.Child.Kind == KindRepeat {
			p.Capture.Child.write(sb)
		} else {
			sb.WriteString("(")
			p.Capture.Child.write(sb)
			sb.WriteString(")")
		}
	case KindSearch:
		sb.WriteString("search(")
		p.Search.write(sb)
		sb.WriteString(")")
	}
}

func writeJoined(sb *strings.Builder, items []Pattern, sep string) {
	for i, it := range items {
		if i > 0 {
			sb.WriteString(sep)
		}
		it.write(sb)
	}
}

func (b *BoolPattern) write(sb *strings.Builder) {
	switch b.Sub {
	case BoolAny:
		sb.WriteString("bool")
	case BoolExact:
		if b.Value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	}
}

func (t *TextPattern) write(sb *strings.Builder) {
	switch t.Sub {
	case TextAny:
		sb.WriteString("text")
	case TextExact:
		sb.WriteString(strconv.Quote(t.Value))
	case TextRegex:
		fmt.Fprintf(sb, "/%s/", t.Regex)
	}
}

func (b *ByteStringPattern) write(sb *strings.Builder) {
	switch b.Sub {
	case ByteStringAny:
		sb.WriteString("bstr")
	case ByteStringExact:
		fmt.Fprintf(sb, "h'%x'", b.Value)
	case ByteStringRegex:
		fmt.Fprintf(sb, "h'/%s/'", b.Regex)
	}
}

func (d *DigestPattern) write(sb *strings.Builder) {
	switch d.Sub {
	case DigestAny:
		sb.WriteString("digest")
	case DigestPrefix, DigestFull:
		fmt.Fprintf(sb, "digest'%x'", d.Value)
	case DigestRegex:
		fmt.Fprintf(sb, "digest'/%s/'", d.Regex)
	}
}

func (d *DatePattern) write(sb *strings.Builder) {
	switch d.Sub {
	case DateAny:
		sb.WriteString("date")
	case DateExact:
		fmt.Fprintf(sb, "date'%s'", datetime.Format(d.Exact))
	case DateRange:
		sb.WriteString("date'")
		if d.Lo != nil {
			sb.WriteString(datetime.Format(*d.Lo))
		}
		sb.WriteString("...")
		if d.Hi != nil {
			sb.WriteString(datetime.Format(*d.Hi))
		}
		sb.WriteString("'")
	case DateTextRegex:
		fmt.Fprintf(sb, "date'/%s/'", d.Regex)
	}
}

func (n *NumberPattern) write(sb *strings.Builder) {
	switch n.Sub {
	case NumberAny:
		sb.WriteString("number")
	case NumberExact:
		sb.WriteString(formatFloat(n.Exact))
	case NumberRange:
		fmt.Fprintf(sb, "%s...%s", formatFloat(n.Lo), formatFloat(n.Hi))
	case NumberCmp:
		fmt.Fprintf(sb, "%s%s", n.Op, formatFloat(n.CmpX))
	case NumberNaN:
		sb.WriteString("NaN")
	case NumberPosInf:
		sb.WriteString("Infinity")
	case NumberNegInf:
		sb.WriteString("-Infinity")
	}
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (k *KnownValuePattern) write(sb *strings.Builder) {
	switch k.Sub {
	case KnownValueAny:
		sb.WriteString("known")
	case KnownValueByValue:
		fmt.Fprintf(sb, "'%d'", k.Value)
	case KnownValueByName:
		fmt.Fprintf(sb, "'%s'", k.Name)
	case KnownValueNameRegex:
		fmt.Fprintf(sb, "'/%s/'", k.Regex)
	}
}

func (a *ArrayPattern) write(sb *strings.Builder) {
	switch a.Kind {
	case ArrayAnyLength:
		sb.WriteString("[*]")
	case ArrayLength:
		fmt.Fprintf(sb, "[{%s}]", a.Length)
	case ArrayElements:
		sb.WriteString("[")
		a.Elements.write(sb)
		sb.WriteString("]")
	}
}

func (m *MapPattern) write(sb *strings.Builder) {
	switch m.Kind {
	case MapAnyLength:
		sb.WriteString("{*}")
	case MapLength:
		fmt.Fprintf(sb, "{{%s}}", m.Length)
	case MapEntries:
		sb.WriteString("{")
		for i, e := range m.Entries {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.write(sb)
			sb.WriteString(": ")
			e.Value.write(sb)
		}
		sb.WriteString("}")
	}
}

func (t *TaggedPattern) write(sb *strings.Builder) {
	switch t.Sel.Kind {
	case TagAny:
		sb.WriteString("tagged")
	case TagNumber:
		fmt.Fprintf(sb, "tagged(%d, ", t.Sel.Num)
		t.Inner.write(sb)
		sb.WriteString(")")
	case TagName:
		fmt.Fprintf(sb, "tagged(%s, ", t.Sel.Name)
		t.Inner.write(sb)
		sb.WriteString(")")
	case TagNameRegex:
		fmt.Fprintf(sb, "tagged(/%s/, ", t.Sel.Regex)
		t.Inner.write(sb)
		sb.WriteString(")")
	}
}

func (r *RepeatPattern) write(sb *strings.Builder) {
	sb.WriteString("(")
	r.Child.write(sb)
	sb.WriteString(")")
	q := r.Quantifier
	if q.Min == 1 && q.Max == 1 {
		return // the mandatory bare-group wrapper; nothing to render
	}
	switch {
	case q.Min == 0 && q.Unbounded():
		sb.WriteString("*")
	case q.Min == 1 && q.Unbounded():
		sb.WriteString("+")
	case q.Min == 0 && q.Max == 1:
		sb.WriteString("?")
	case q.Unbounded():
		fmt.Fprintf(sb, "{%d,}", q.Min)
	case q.Min == q.Max:
		fmt.Fprintf(sb, "{%d}", q.Min)
	default:
		fmt.Fprintf(sb, "{%d,%d}", q.Min, q.Max)
	}
	sb.WriteString(q.Reluctance.String())
}
