// Package dcborpattern provides a pattern-matching engine for Deterministic
// CBOR (dCBOR) value trees: a regex-like surface syntax compiled into a
// Pattern, matched against a value.Value to enumerate matching paths and
// named captures.
//
// The public API follows the familiar Compile/MustCompile/Match shape of
// regex engines, adapted from byte strings to CBOR value trees:
//
//	p, err := dcborpattern.Parse(`{"name": text, "age": number}`, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := value.Decode(cborBytes)
//	if ok, _ := p.Matches(v); ok {
//	    fmt.Println("matched!")
//	}
//
// The real machinery is factored into sub-packages, one per pipeline stage
// (token/parser for surface syntax, ast for the pattern tree, compiler for
// the literal pool and capture slots, vm for the backtracking matcher,
// known/datetime/digest for auxiliary codecs, format for result rendering);
// this file is the small, ergonomic entry point wiring them together.
package dcborpattern

import (
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/compiler"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/format"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/known"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/parser"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/vm"
)

// Config bounds match execution. The zero Config is unbounded.
type Config struct {
	// MaxSteps caps the number of VM steps a single match may perform,
	// surfacing vm.ErrResourceExhausted if exceeded. Zero means unbounded.
	MaxSteps int
}

// DefaultConfig returns the unbounded Config.
func DefaultConfig() Config { return Config{} }

// Pattern is a compiled pattern, ready for repeated matching.
//
// A Pattern is safe to use concurrently from multiple goroutines: matching
// never mutates the compiled Program.
type Pattern struct {
	ast    ast.Pattern
	prog   *compiler.Program
	known  known.Registry
	tags   known.Registry
	config Config
}

// Parse parses and compiles pattern source, requiring full consumption of
// the input. names resolves known-value literals; pass nil to use
// known.Empty. Tag names in tagged(name, p) resolve through known.TagNames.
func Parse(src string, names known.Registry) (*Pattern, error) {
	p, err := parser.Parse(src, names)
	if err != nil {
		return nil, err
	}
	return fromAST(p, names)
}

// ParsePartial parses as much of src as forms a valid pattern, returning
// the pattern and the number of bytes consumed. Trailing content is
// permitted and not reported as an error.
func ParsePartial(src string, names known.Registry) (*Pattern, int, error) {
	p, consumed, err := parser.ParsePartial(src, names)
	if err != nil {
		return nil, 0, err
	}
	pat, err := fromAST(p, names)
	if err != nil {
		return nil, 0, err
	}
	return pat, consumed, nil
}

// MustParse parses pattern source and panics if it fails. Useful for
// patterns known to be valid at compile time (e.g. package-level vars).
func MustParse(src string, names known.Registry) *Pattern {
	p, err := Parse(src, names)
	if err != nil {
		panic("dcborpattern: Parse(" + src + "): " + err.Error())
	}
	return p
}

func fromAST(p ast.Pattern, names known.Registry) (*Pattern, error) {
	prog, err := compiler.Compile(p)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = known.Empty
	}
	return &Pattern{ast: p, prog: prog, known: names, tags: known.TagNames, config: DefaultConfig()}, nil
}

// WithConfig returns a copy of p using cfg for subsequent matches.
func (p *Pattern) WithConfig(cfg Config) *Pattern {
	np := *p
	np.config = cfg
	return &np
}

// WithTagNames returns a copy of p resolving tagged(name, ...) selectors
// against names instead of the built-in known.TagNames table.
func (p *Pattern) WithTagNames(names known.Registry) *Pattern {
	np := *p
	np.tags = names
	return &np
}

func (p *Pattern) matcher() *vm.Matcher {
	return vm.New(p.prog, p.known, p.tags, vm.Config{MaxSteps: p.config.MaxSteps})
}

// Matches reports whether v has any matching path, short-circuiting after
// the first one is found.
func (p *Pattern) Matches(v value.Value) (bool, error) {
	return p.matcher().Matches(v)
}

// Paths enumerates every distinct path in v that p matches.
func (p *Pattern) Paths(v value.Value) ([]value.Path, error) {
	return p.matcher().Paths(v)
}

// MatchWithCaptures enumerates every matching path and every named capture.
func (p *Pattern) MatchWithCaptures(v value.Value) ([]value.Path, map[string][]value.Path, error) {
	res, err := p.matcher().MatchWithCaptures(v)
	if err != nil {
		return nil, nil, err
	}
	return res.Paths, res.Captures, nil
}

// Format renders the result of MatchWithCaptures(v) as canonical text
// (capture blocks, lexicographically ordered, then plain paths).
func (p *Pattern) Format(v value.Value) (string, error) {
	paths, captures, err := p.MatchWithCaptures(v)
	if err != nil {
		return "", err
	}
	return format.Format(format.Result{Paths: paths, Captures: captures}), nil
}

// String renders p back to canonical surface syntax; Parse(p.String(), _)
// reproduces an equivalent pattern.
func (p *Pattern) String() string {
	return p.ast.Display()
}
