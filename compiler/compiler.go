// Package compiler lowers a parsed ast.Pattern into a Program: the same
// tree, plus a literal pool of precompiled regexes (so the VM never pays
// regex-compile cost per match) and a capture-name table indexed by the
// slot id each Capture node is assigned.
//
// The destination is a decorated tree rather than a flat bytecode array:
// the VM is a recursive backtracker, so the "instructions" it executes
// are just Pattern nodes it already knows how to interpret. What the
// compiler contributes is the one-time, single-pass work: regex
// validation/anchoring and capture slot assignment, both of which must
// happen exactly once, not per match.
package compiler

import (
	"fmt"
	"regexp"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
)

// Program is the compiled form of a Pattern, ready for repeated matching.
type Program struct {
	Root         ast.Pattern
	CaptureNames []string // indexed by capture slot id

	regexes      map[interface{}]*regexp.Regexp
	captureSlots map[*ast.CapturePattern]int
}

// Regex returns the precompiled, fully anchored regexp for a leaf that
// carries a regex fragment. key is the node's own payload pointer (e.g.
// *ast.TextPattern), matching how Compile indexed it.
func (p *Program) Regex(key interface{}) *regexp.Regexp {
	return p.regexes[key]
}

// CaptureSlot returns the slot id assigned to a Capture node.
func (p *Program) CaptureSlot(c *ast.CapturePattern) int {
	return p.captureSlots[c]
}

// Compile performs the single recursive pass over p: every regex fragment
// is compiled and validated as an anchored full-string match, and every
// Capture node is assigned a slot id in first-encountered (pre-order)
// order, with its name appended to CaptureNames. Capture names need not
// be unique; each occurrence gets its own slot, and the VM aggregates by
// name afterward.
func Compile(p ast.Pattern) (*Program, error) {
	prog := &Program{
		Root:         p,
		regexes:      make(map[interface{}]*regexp.Regexp),
		captureSlots: make(map[*ast.CapturePattern]int),
	}
	if err := prog.compileNode(p); err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *Program) compileNode(n ast.Pattern) error {
	switch n.Kind {
	case ast.KindText:
		if n.Text.Sub == ast.TextRegex {
			return p.addRegex(n.Text, n.Text.Regex)
		}
	case ast.KindByteString:
		if n.ByteString.Sub == ast.ByteStringRegex {
			return p.addRegex(n.ByteString, n.ByteString.Regex)
		}
	case ast.KindDigest:
		if n.Digest.Sub == ast.DigestRegex {
			return p.addRegex(n.Digest, n.Digest.Regex)
		}
	case ast.KindDate:
		if n.Date.Sub == ast.DateTextRegex {
			return p.addRegex(n.Date, n.Date.Regex)
		}
	case ast.KindKnownValue:
		if n.KnownValue.Sub == ast.KnownValueNameRegex {
			return p.addRegex(n.KnownValue, n.KnownValue.Regex)
		}
	case ast.KindTagged:
		if n.Tagged.Sel.Kind == ast.TagNameRegex {
			if err := p.addRegex(&n.Tagged.Sel, n.Tagged.Sel.Regex); err != nil {
				return err
			}
		}
		return p.compileNode(*n.Tagged.Inner)
	case ast.KindAnd:
		return p.compileAll(n.And)
	case ast.KindOr:
		return p.compileAll(n.Or)
	case ast.KindNot:
		return p.compileNode(*n.Not)
	case ast.KindRepeat:
		return p.compileNode(n.Repeat.Child)
	case ast.KindSequence:
		return p.compileAll(n.Sequence)
	case ast.KindCapture:
		if _, ok := p.captureSlots[n.Capture]; !ok {
			p.captureSlots[n.Capture] = len(p.CaptureNames)
			p.CaptureNames = append(p.CaptureNames, n.Capture.Name)
		}
		return p.compileNode(n.Capture.Child)
	case ast.KindSearch:
		return p.compileNode(*n.Search)
	case ast.KindArray:
		if n.Array.Kind == ast.ArrayElements {
			return p.compileNode(*n.Array.Elements)
		}
	case ast.KindMap:
		if n.Map.Kind == ast.MapEntries {
			for _, e := range n.Map.Entries {
				if err := p.compileNode(e.Key); err != nil {
					return err
				}
				if err := p.compileNode(e.Value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Program) compileAll(items []ast.Pattern) error {
	for _, it := range items {
		if err := p.compileNode(it); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) addRegex(key interface{}, source string) error {
	re, err := regexp.Compile("^(?:" + source + ")$")
	if err != nil {
		return fmt.Errorf("compiler: invalid regex %q: %w", source, err)
	}
	p.regexes[key] = re
	return nil
}
