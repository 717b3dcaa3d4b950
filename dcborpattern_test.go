package dcborpattern

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/known"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/parser"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/vm"
)

// TestParse tests compilation through the façade
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"simple literal", "true", false},
		{"array sequence", `[42, (*)*]`, false},
		{"map entries", `{"name": text, "age": number}`, false},
		{"search capture", "search(@leaf(number))", false},
		{"invalid syntax", "&", true},
		{"invalid regex", "/[/", true},
		{"trailing data", "true false", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.pattern, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && p == nil {
				t.Error("Parse() returned nil")
			}
		})
	}
}

// TestParseErrorSpan tests that parse errors surface with their span
func TestParseErrorSpan(t *testing.T) {
	_, err := Parse("true false", nil)
	require.Error(t, err)
	var perr *parser.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, parser.ExtraData, perr.Kind)
	require.Equal(t, 4, perr.Span.Start)
}

// TestMustParse tests panic on invalid pattern
func TestMustParse(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParse() did not panic on invalid pattern")
		}
	}()
	MustParse("(", nil)
}

// TestParsePartial tests the trailing-content entry point
func TestParsePartial(t *testing.T) {
	p, consumed, err := ParsePartial("true and more", nil)
	require.NoError(t, err)
	require.Equal(t, 4, consumed)
	ok, err := p.Matches(value.Bool(true))
	require.NoError(t, err)
	require.True(t, ok)
}

// TestMatches tests end-to-end matching through the façade
func TestMatches(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"true", "true", true},
		{"true", "false", false},
		{`[42, (*)*]`, `[42, "a", "b"]`, true},
		{`[42, (*)*]`, `[1, 42, "a"]`, false},
		{`[(*)*, 42, (*)*]`, `[1, 2, 3]`, false},
		{`{"name": text, "age": number}`, `{"age": 30, "name": "Ada"}`, true},
		{"!number & *", `"a"`, true},
		{"tagged(1, date'2020-01-01...2021-01-01')", "1(1592179200)", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			p := MustParse(tt.pattern, nil)
			got, err := p.Matches(value.MustParseDiagnostic(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestMatchWithCaptures tests capture plumbing through the façade
func TestMatchWithCaptures(t *testing.T) {
	p := MustParse("@x(number)", nil)
	paths, captures, err := p.MatchWithCaptures(value.Number(42))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Len(t, captures["x"], 1)
	require.True(t, captures["x"][0].Equal(value.Path{value.Number(42)}))
}

// TestDecodeThenMatch tests the wire-bytes-to-match pipeline
func TestDecodeThenMatch(t *testing.T) {
	data, err := value.Encode(value.MustParseDiagnostic(`{"age": 30, "name": "Ada"}`))
	require.NoError(t, err)
	v, err := value.Decode(data)
	require.NoError(t, err)

	p := MustParse(`{"name": text, "age": number}`, nil)
	ok, err := p.Matches(v)
	require.NoError(t, err)
	require.True(t, ok)
}

// TestKnownRegistry tests dependency-injected known-value resolution
func TestKnownRegistry(t *testing.T) {
	names := known.NewMapRegistry(map[string]uint64{"isA": 1})
	p, err := Parse("'isA'", names)
	require.NoError(t, err)
	ok, err := p.Matches(value.Number(1))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = Parse("'isA'", nil)
	require.Error(t, err, "name must not resolve without a registry")
}

// TestWithTagNames tests overriding the tag-name table
func TestWithTagNames(t *testing.T) {
	p := MustParse("tagged(epoch, number)", nil)
	v := value.Tagged(1, value.Number(0))

	ok, err := p.Matches(v)
	require.NoError(t, err)
	require.False(t, ok, "epoch is not in the built-in table")

	p2 := p.WithTagNames(known.NewMapRegistry(map[string]uint64{"epoch": 1}))
	ok, err = p2.Matches(v)
	require.NoError(t, err)
	require.True(t, ok)
}

// TestWithConfig tests the MaxSteps budget surfaces vm.ErrResourceExhausted
func TestWithConfig(t *testing.T) {
	p := MustParse("search(!*)", nil)
	big := value.MustParseDiagnostic(`[[1, 2], [3, 4], [5, 6]]`)

	_, err := p.WithConfig(Config{MaxSteps: 2}).Matches(big)
	var re *vm.ErrResourceExhausted
	require.ErrorAs(t, err, &re)

	// The original pattern is unaffected by the copy.
	ok, err := p.Matches(big)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestString tests display round-tripping through the façade
func TestString(t *testing.T) {
	srcs := []string{
		"[(*)*, @n(number), (*)*]",
		`{"name": text, "age": number}`,
		"search(@leaf(number))",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			p := MustParse(src, nil)
			p2, err := Parse(p.String(), nil)
			require.NoError(t, err)
			require.Equal(t, p.String(), p2.String())
		})
	}
}

// TestFormat tests the canonical result rendering
func TestFormat(t *testing.T) {
	p := MustParse("@x(number)", nil)
	out, err := p.Format(value.Number(42))
	require.NoError(t, err)
	require.Equal(t, "@x\n    42\n42\n", out)

	// An empty match renders as nothing.
	out, err = p.Format(value.Text("a"))
	require.NoError(t, err)
	require.Equal(t, "", out)
}
