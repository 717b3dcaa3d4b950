package format

import (
	"testing"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

// TestFormat tests the canonical rendering contract: capture blocks in
// lexicographic name order before plain paths, four spaces per depth.
func TestFormat(t *testing.T) {
	root := value.MustParseDiagnostic(`[1, 2]`)
	one := value.Number(1)
	two := value.Number(2)

	r := Result{
		Paths: []value.Path{
			{root},
			{root, one},
		},
		Captures: map[string][]value.Path{
			"b": {{root, two}},
			"a": {{root, one}},
		},
	}

	want := "" +
		"@a\n" +
		"    [1, 2]\n" +
		"        1\n" +
		"@b\n" +
		"    [1, 2]\n" +
		"        2\n" +
		"[1, 2]\n" +
		"[1, 2]\n" +
		"    1\n"
	if got := Format(r); got != want {
		t.Errorf("Format() =\n%q\nwant\n%q", got, want)
	}
}

// TestFormatEmpty tests that an empty result renders as nothing
func TestFormatEmpty(t *testing.T) {
	if got := Format(Result{}); got != "" {
		t.Errorf("Format(empty) = %q, want \"\"", got)
	}
}

// TestFormatNoCaptures tests paths alone
func TestFormatNoCaptures(t *testing.T) {
	r := Result{Paths: []value.Path{{value.Bool(true)}}}
	if got := Format(r); got != "true\n" {
		t.Errorf("Format() = %q, want \"true\\n\"", got)
	}
}
