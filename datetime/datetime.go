// Package datetime is the date codec auxiliary registry: it parses the
// ISO-8601 text appearing in date'...' literals into a comparable Instant
// and renders an Instant back to the canonical ISO-8601 text patterns
// compare against and Display reproduces.
//
// The core only ever calls Parse/Format; it holds no opinion about date
// libraries. This package wires github.com/relvacode/iso8601 in as the
// concrete parser, since the stdlib's time.Parse requires a caller to
// already know which of ISO-8601's many layouts a given string uses.
package datetime

import (
	"fmt"
	"time"

	"github.com/relvacode/iso8601"
)

// Instant is a UTC point in time, represented as seconds since the Unix
// epoch with sub-second precision. It is the value ast.DatePattern and
// the VM's date predicates compare on.
type Instant float64

// Before, After and Equal give Instant a total order; date patterns
// compare instants, never their textual renderings.
func (i Instant) Before(o Instant) bool { return i < o }
func (i Instant) After(o Instant) bool  { return i > o }
func (i Instant) Equal(o Instant) bool  { return i == o }

// Parse decodes ISO-8601 text into an Instant.
func Parse(s string) (Instant, error) {
	t, err := iso8601.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("datetime: parse %q: %w", s, err)
	}
	return Instant(float64(t.UnixNano()) / 1e9), nil
}

// Format renders an Instant as canonical ISO-8601 (RFC 3339, UTC,
// second precision unless the instant carries a fractional part).
func Format(i Instant) string {
	sec := int64(i)
	nsec := int64((float64(i) - float64(sec)) * 1e9)
	t := time.Unix(sec, nsec).UTC()
	if nsec != 0 {
		return t.Format("2006-01-02T15:04:05.999999999Z")
	}
	return t.Format("2006-01-02T15:04:05Z")
}

// FromCBORTagContent builds an Instant from the numeric content of a tag-1
// (epoch date/time) CBOR value, matching dCBOR's representation of dates
// as Tagged(1, Number).
func FromCBORTagContent(epochSeconds float64) Instant {
	return Instant(epochSeconds)
}

// ToCBORTagContent returns the numeric content to embed under tag 1.
func ToCBORTagContent(i Instant) float64 {
	return float64(i)
}
