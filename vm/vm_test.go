package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/compiler"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/known"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/parser"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

func testMatcher(t *testing.T, src string, names known.Registry) *Matcher {
	t.Helper()
	p, err := parser.Parse(src, names)
	require.NoError(t, err, "parse %q", src)
	prog, err := compiler.Compile(p)
	require.NoError(t, err, "compile %q", src)
	return New(prog, names, nil, Config{})
}

func dv(s string) value.Value { return value.MustParseDiagnostic(s) }

// pathDiag flattens a path to one diagnostic line for comparison.
func pathDiag(p value.Path) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = v.Diagnostic()
	}
	return strings.Join(parts, " ")
}

func pathDiags(ps []value.Path) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = pathDiag(p)
	}
	return out
}

// TestMatches tests bare match/no-match across the pattern taxonomy
func TestMatches(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		// Atoms.
		{"true", "true", true},
		{"true", "false", false},
		{"*", "null", true},
		{"!*", "null", false},
		{"!*", `[1, 2]`, false},
		{"null", "null", true},
		{"null", "0", false},
		{"bool", "false", true},
		{"bool", "1", false},
		{"number", "3.5", true},
		{"number", `"3.5"`, false},
		{"42", "42", true},
		{"42", "41", false},
		{"5...10", "7", true},
		{"5...10", "5", true},
		{"5...10", "10", true},
		{"5...10", "11", false},
		{">=5", "5", true},
		{">5", "5", false},
		{"<=5", "5", true},
		{"<5", "5", false},
		{"NaN", "NaN", true},
		{"NaN", "1", false},
		{"42", "NaN", false},
		{"Infinity", "Infinity", true},
		{"-Infinity", "-Infinity", true},
		{"-Infinity", "Infinity", false},
		{"text", `"hi"`, true},
		{`"hi"`, `"hi"`, true},
		{`"hi"`, `"ho"`, false},
		{"/h./", `"hi"`, true},
		{"/h./", `"chi"`, false}, // anchored full-string semantics
		{"bstr", "h'00'", true},
		{"h'00ff'", "h'00ff'", true},
		{"h'00ff'", "h'00fe'", false},
		{"h'/\\x00.*/'", "h'0042'", true},

		// Structures.
		{"[*]", "[1, 2]", true},
		{"[*]", "{}", false},
		{"[{2}]", "[1, 2]", true},
		{"[{2}]", "[1]", false},
		{"[{1,}]", "[]", false},
		{"[{1,}]", "[9]", true},
		{"[{1,2}]", "[1, 2, 3]", false},
		{"{*}", "{}", true},
		{"{*}", "[1]", false},
		{"{{1}}", `{"k": 1}`, true},
		{"{{2,}}", `{"k": 1}`, false},
		{"[]", "[]", true},
		{"[]", "[1]", false},
		{"tagged", "7(3)", true},
		{"tagged", "3", false},
		{"tagged(7, number)", "7(3)", true},
		{"tagged(7, text)", "7(3)", false},
		{"tagged(8, number)", "7(3)", false},

		// Combinators.
		{"number | text", `"a"`, true},
		{"number | text", "null", false},
		{"number & 5...10", "7", true},
		{"number & 5...10", "20", false},

		// Negation combined with the wildcard.
		{"!number & *", `"a"`, true},
		{"!number & *", "5", false},

		// A fixed head followed by an arbitrary tail.
		{`[42, (*)*]`, `[42, "a", "b"]`, true},
		{`[42, (*)*]`, `[1, 42, "a"]`, false},
		{`[42, (*)*]`, `[42]`, true},

		// A required element somewhere in the middle.
		{`[(*)*, 42, (*)*]`, `[]`, false},
		{`[(*)*, 42, (*)*]`, `[1, 42, 3]`, true},
		{`[(*)*, 42, (*)*]`, `[42]`, true},
		{`[(*)*, 42, (*)*]`, `[1, 2, 3]`, false},

		// Map entries are order-insensitive and all required.
		{`{"name": text, "age": number}`, `{"age": 30, "name": "Ada"}`, true},
		{`{"name": text, "age": number}`, `{"name": "Ada"}`, false},

		// Reluctance: lazy and greedy both find the partition;
		// possessive consumes everything and cannot give it back.
		{`[(*)*?, "x"]`, `["a", "x", "b", "x"]`, true},
		{`[(*)*, "x"]`, `["a", "x", "b", "x"]`, true},
		{`[(*)*+, "x"]`, `["a", "x", "b", "x"]`, false},

		// Known values are bare integral numbers.
		{"known", "12", true},
		{"known", "1.5", false},
		{"known", `"x"`, false},
		{"'12'", "12", true},
		{"'12'", "13", false},

		// Digests are 32-byte strings.
		{"digest", "h'" + strings.Repeat("00", 32) + "'", true},
		{"digest", "h'" + strings.Repeat("00", 31) + "'", false},
		{"digest'00ff'", "h'00ff" + strings.Repeat("aa", 30) + "'", true},
		{"digest'00ff'", "h'0100" + strings.Repeat("aa", 30) + "'", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			m := testMatcher(t, tt.pattern, nil)
			got, err := m.Matches(dv(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestPaths tests path enumeration shapes
func TestPaths(t *testing.T) {
	// The wildcard produces exactly the root path.
	m := testMatcher(t, "*", nil)
	ps, err := m.Paths(dv("[1, 2]"))
	require.NoError(t, err)
	require.Equal(t, []string{"[1, 2]"}, pathDiags(ps))

	// Array matches report the array's own path.
	m = testMatcher(t, `[42, (*)*]`, nil)
	ps, err = m.Paths(dv(`[42, "a", "b"]`))
	require.NoError(t, err)
	require.Equal(t, []string{`[42, "a", "b"]`}, pathDiags(ps))

	// !* yields nothing.
	m = testMatcher(t, "!*", nil)
	ps, err = m.Paths(dv("null"))
	require.NoError(t, err)
	require.Empty(t, ps)
}

// TestMatchesEquivalence tests matches(v) iff paths(v) nonempty
func TestMatchesEquivalence(t *testing.T) {
	patterns := []string{"true", "number", `[42, (*)*]`, "!number & *", "search(number)", "{*}"}
	inputs := []string{"true", "42", `[42, 1]`, `"a"`, `{"k": 7}`, "null"}
	for _, pat := range patterns {
		m := testMatcher(t, pat, nil)
		for _, in := range inputs {
			v := dv(in)
			ok, err := m.Matches(v)
			require.NoError(t, err)
			res, err := m.MatchWithCaptures(v)
			require.NoError(t, err)
			require.Equal(t, ok, len(res.Paths) > 0, "pattern %q input %q", pat, in)
		}
	}
}

// TestPathValidity tests that every path starts at the root and every
// step follows a single axis.
func TestPathValidity(t *testing.T) {
	patterns := []string{"search(*)", "search(number)", "tagged(7, number)", `{"k": number}`}
	input := dv(`[1, {"k": 2}, 7(3), [4, 5]]`)
	for _, pat := range patterns {
		m := testMatcher(t, pat, nil)
		ps, err := m.Paths(input)
		require.NoError(t, err)
		for _, p := range ps {
			require.NotEmpty(t, p)
			require.True(t, p[0].Equal(input), "pattern %q: path does not start at root", pat)
			for i := 0; i+1 < len(p); i++ {
				require.True(t, axisStep(p[i], p[i+1]),
					"pattern %q: %s -> %s is not an axis step", pat, p[i], p[i+1])
			}
		}
	}
}

func axisStep(parent, child value.Value) bool {
	for _, axis := range []value.Axis{value.AxisArrayElement, value.AxisMapKey, value.AxisMapValue, value.AxisTaggedContent} {
		for _, c := range value.Children(parent, axis) {
			if c.Equal(child) {
				return true
			}
		}
	}
	return false
}

// TestCaptures tests capture binding and aggregation by name
func TestCaptures(t *testing.T) {
	m := testMatcher(t, "@x(number)", nil)
	res, err := m.MatchWithCaptures(dv("42"))
	require.NoError(t, err)
	require.Equal(t, []string{"42"}, pathDiags(res.Paths))
	require.Len(t, res.Captures, 1)
	require.Equal(t, []string{"42"}, pathDiags(res.Captures["x"]))

	// No match, no captures.
	res, err = m.MatchWithCaptures(dv(`"a"`))
	require.NoError(t, err)
	require.Empty(t, res.Paths)
	require.Empty(t, res.Captures)

	// All Or branches are explored for capture completeness.
	m = testMatcher(t, "@a(number) | @b(*)", nil)
	res, err = m.MatchWithCaptures(dv("5"))
	require.NoError(t, err)
	require.Equal(t, []string{"5"}, pathDiags(res.Captures["a"]))
	require.Equal(t, []string{"5"}, pathDiags(res.Captures["b"]))

	// Duplicate names aggregate into one list.
	m = testMatcher(t, `[@n(number), @n(number)]`, nil)
	res, err = m.MatchWithCaptures(dv("[1, 2]"))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"[1, 2] 1", "[1, 2] 2"}, pathDiags(res.Captures["n"]))
}

// TestSearchCaptures tests captures discovered by tree search
func TestSearchCaptures(t *testing.T) {
	m := testMatcher(t, "search(@leaf(number))", nil)
	root := dv(`[1, {"k": 2}, 7(3)]`)
	res, err := m.MatchWithCaptures(root)
	require.NoError(t, err)

	want := []string{
		`[1, {"k": 2}, 7(3)] 1`,
		`[1, {"k": 2}, 7(3)] {"k": 2} 2`,
		`[1, {"k": 2}, 7(3)] 7(3) 3`,
	}
	require.ElementsMatch(t, want, pathDiags(res.Captures["leaf"]))
	require.ElementsMatch(t, want, pathDiags(res.Paths))
}

// TestMapEntries tests the injective entry-assignment semantics
func TestMapEntries(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		// Order-insensitive.
		{`{"a": 1, "b": 2}`, `{"b": 2, "a": 1}`, true},
		// Distinct entries per pattern entry (injection).
		{`{text: number, text: number}`, `{"a": 1, "b": 2}`, true},
		{`{text: number, text: number}`, `{"a": 1}`, false},
		// Extra entries in the subject are fine.
		{`{"a": 1}`, `{"a": 1, "b": 2}`, true},
		// Key matches but value does not.
		{`{"a": text}`, `{"a": 1}`, false},
		// Pattern keys.
		{`{/a+/: number}`, `{"aaa": 9}`, true},
		{`{/a+/: number}`, `{"aab": 9}`, false},
		// Empty entry list matches any map.
		{`{}`, `{"a": 1}`, true},
		{`{}`, `{}`, true},
		{`{}`, `[1]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			m := testMatcher(t, tt.pattern, nil)
			got, err := m.Matches(dv(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestMapEntryCaptures tests captures bound through keys and values
func TestMapEntryCaptures(t *testing.T) {
	m := testMatcher(t, `{@k("name"): @v(text)}`, nil)
	res, err := m.MatchWithCaptures(dv(`{"name": "Ada"}`))
	require.NoError(t, err)
	require.Equal(t, []string{`{"name": "Ada"} "name"`}, pathDiags(res.Captures["k"]))
	require.Equal(t, []string{`{"name": "Ada"} "Ada"`}, pathDiags(res.Captures["v"]))
}

// TestTagged tests tag selectors including name and name-regex resolution
func TestTagged(t *testing.T) {
	// dCBOR dates are Tagged(1, epoch seconds).
	m := testMatcher(t, "tagged(1, date'2020-01-01...2021-01-01')", nil)
	ok, err := m.Matches(dv("1(1592179200)")) // 2020-06-15
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.Matches(dv("1(1640995200)")) // 2022-01-01
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = m.Matches(dv("2(1592179200)"))
	require.NoError(t, err)
	require.False(t, ok)

	// Name form resolves through the tag-name registry.
	m = testMatcher(t, "tagged(date, number)", nil)
	ok, err = m.Matches(dv("1(0)"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.Matches(dv("2(0)"))
	require.NoError(t, err)
	require.False(t, ok)

	// Name-regex form.
	m = testMatcher(t, "tagged(/da.*/, number)", nil)
	ok, err = m.Matches(dv("1(5)"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.Matches(dv("40000(5)"))
	require.NoError(t, err)
	require.False(t, ok) // "known_value" does not match /da.*/
}

// TestKnownValueRegistry tests name and name-regex resolution at match time
func TestKnownValueRegistry(t *testing.T) {
	names := known.NewMapRegistry(map[string]uint64{"isA": 1, "note": 4})
	m := testMatcher(t, "'isA'", names)
	ok, err := m.Matches(dv("1"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.Matches(dv("4"))
	require.NoError(t, err)
	require.False(t, ok)

	m = testMatcher(t, "'/n.*/'", names)
	ok, err = m.Matches(dv("4"))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = m.Matches(dv("1"))
	require.NoError(t, err)
	require.False(t, ok)
	// Unregistered codes have no name for the regex to match.
	ok, err = m.Matches(dv("9"))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestDateLeaf tests the date predicate over bare epoch numbers
func TestDateLeaf(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"date", "1592179200", true},
		{"date", `"2020-06-15"`, false},
		{"date'2020-06-15'", "1592179200", true},
		{"date'2020-06-15'", "1592179201", false},
		{"date'2020-01-01...'", "1592179200", true},
		{"date'...2019-01-01'", "1592179200", false},
		{"date'/2020-06-.*/'", "1592179200", true},
		{"date'/2021-.*/'", "1592179200", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			m := testMatcher(t, tt.pattern, nil)
			got, err := m.Matches(dv(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestMaxSteps tests the optional resource budget extension
func TestMaxSteps(t *testing.T) {
	// search(!*) accepts nothing, so it visits every node: the budget is
	// guaranteed to trip on a large enough input.
	p, err := parser.Parse("search(!*)", nil)
	require.NoError(t, err)
	prog, err := compiler.Compile(p)
	require.NoError(t, err)
	m := New(prog, nil, nil, Config{MaxSteps: 3})

	_, err = m.Matches(dv(`[[1, 2], [3, [4, 5]], {"k": [6]}]`))
	require.Error(t, err)
	var re *ErrResourceExhausted
	require.ErrorAs(t, err, &re)
	require.Equal(t, 3, re.MaxSteps)

	// The same program with no budget completes (with no match).
	m = New(prog, nil, nil, Config{})
	ok, err := m.Matches(dv(`[[1, 2], [3, [4, 5]], {"k": [6]}]`))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestDegenerateRepeat tests Repeat outside an array sequence context
func TestDegenerateRepeat(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"(number)", "5", true},
		{"(number)", `"a"`, false},
		{"(number)*", "5", true},
		{"(number)*", `"a"`, true}, // zero occurrences admitted
		{"(number)+", `"a"`, false},
		{"(number)?", `"a"`, true},
		{"(number)*+", `"a"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.input, func(t *testing.T) {
			m := testMatcher(t, tt.pattern, nil)
			got, err := m.Matches(dv(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
