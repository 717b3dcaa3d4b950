package ast

import (
	"testing"
)

// TestDisplayProgrammatic tests rendering of patterns built directly,
// without the parser's group-lowering conventions.
func TestDisplayProgrammatic(t *testing.T) {
	tests := []struct {
		name string
		p    Pattern
		want string
	}{
		{"any", Any(), "*"},
		{"none", None(), "!*"},
		{"null", NullPattern(), "null"},
		{"bool any", NewBool(BoolPattern{Sub: BoolAny}), "bool"},
		{"capture without group", NewCapture("x", NewNumber(NumberPattern{Sub: NumberAny})), "@x(number)"},
		{
			"capture around repeat",
			NewCapture("x", NewRepeat(Any(), Quantifier{Min: 0, Max: MaxUnbounded, Reluctance: Greedy})),
			"@x(*)*",
		},
		{
			"repeat lazy bounded",
			NewRepeat(NewText(TextPattern{Sub: TextAny}), Quantifier{Min: 2, Max: 5, Reluctance: Lazy}),
			"(text){2,5}?",
		},
		{
			"repeat possessive unbounded",
			NewRepeat(Any(), Quantifier{Min: 1, Max: MaxUnbounded, Reluctance: Possessive}),
			"(*)++",
		},
		{
			"and of three",
			NewAnd([]Pattern{NewNumber(NumberPattern{Sub: NumberAny}), NewNot(NullPattern()), Any()}),
			"number & !null & *",
		},
		{
			"nested tagged",
			NewTagged(TaggedPattern{Sel: TagSel{Kind: TagNumber, Num: 1}, Inner: patPtr(NewDate(DatePattern{Sub: DateAny}))}),
			"tagged(1, date)",
		},
		{
			"array length",
			NewArray(ArrayPattern{Kind: ArrayLength, Length: LengthConstraint{Min: 2, Max: 2}}),
			"[{2}]",
		},
		{
			"map entries",
			NewMap(MapPattern{Kind: MapEntries, Entries: []MapEntry{
				{Key: NewText(TextPattern{Sub: TextExact, Value: "k"}), Value: NewBool(BoolPattern{Sub: BoolAny})},
			}}),
			`{"k": bool}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Display(); got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func patPtr(p Pattern) *Pattern { return &p }

// TestQuantifierUnbounded tests the MaxUnbounded sentinel
func TestQuantifierUnbounded(t *testing.T) {
	if !(Quantifier{Min: 0, Max: MaxUnbounded}).Unbounded() {
		t.Error("MaxUnbounded not reported unbounded")
	}
	if (Quantifier{Min: 0, Max: 3}).Unbounded() {
		t.Error("bounded quantifier reported unbounded")
	}
}

// TestLengthConstraintString tests the three textual forms
func TestLengthConstraintString(t *testing.T) {
	tests := []struct {
		lc   LengthConstraint
		want string
	}{
		{LengthConstraint{Min: 3, Max: 3}, "3"},
		{LengthConstraint{Min: 1, Max: MaxUnbounded}, "1,"},
		{LengthConstraint{Min: 1, Max: 4}, "1,4"},
	}
	for _, tt := range tests {
		if got := tt.lc.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.lc, got, tt.want)
		}
	}
}

// TestGroupIsTrivialRepeat tests NewGroup's lowering
func TestGroupIsTrivialRepeat(t *testing.T) {
	g := NewGroup(NullPattern())
	if g.Kind != KindRepeat {
		t.Fatalf("group kind = %v, want Repeat", g.Kind)
	}
	q := g.Repeat.Quantifier
	if q.Min != 1 || q.Max != 1 || q.Reluctance != Greedy {
		t.Errorf("group quantifier = %+v, want {1,1,Greedy}", q)
	}
}
