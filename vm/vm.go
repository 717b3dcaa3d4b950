// Package vm is the backtracking matcher: it walks a compiler.Program
// against a value.Value tree and enumerates every accepting path and
// named capture.
//
// The core is a continuation-passing recursive interpreter rather than
// an explicit thread queue: each eval call receives the continuation
// representing "what happens after this node," and calls it with
// whatever path should be considered the match position at that point.
// The recursion order is the contract — greedy alternatives before
// shorter ones, Or branches in written order, search in depth-first
// pre-order — so an explicit thread queue would buy nothing but
// indirection here. A continuation returning false means "stop
// enumerating entirely" (used by Matches' short-circuit mode); true
// means "keep searching for more accepting paths."
package vm

import (
	"fmt"
	"sort"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/compiler"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/known"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

// ErrResourceExhausted is returned when a match exceeds Config.MaxSteps.
// Matching is total without it; the budget exists for hosts that refuse
// to trust input-pattern combinations with their worst case.
type ErrResourceExhausted struct {
	MaxSteps int
}

func (e *ErrResourceExhausted) Error() string {
	return fmt.Sprintf("vm: exceeded resource budget of %d steps", e.MaxSteps)
}

// Config bounds match execution.
type Config struct {
	// MaxSteps caps the number of steps (eval invocations plus
	// array-sequence and map-entry steps) a single match may perform.
	// Zero means unbounded.
	MaxSteps int
}

// DefaultConfig returns the zero-value (unbounded) Config.
func DefaultConfig() Config { return Config{} }

// binding is one cons cell of the immutable capture-binding list threaded
// through matching. Persistent/immutable rather than a mutated map so
// that two branches exploring different alternatives never see each
// other's captures: many accepting paths may be live at once as the
// search fans out across Or/repeat alternatives, and structural sharing
// is cheaper than mutate-then-undo across that fan-out.
type binding struct {
	slot int
	path value.Path
	prev *binding
}

// Matcher executes a compiled Program against CBOR values.
type Matcher struct {
	Program  *compiler.Program
	Known    known.Registry // known-value name<->u64 registry
	TagNames known.Registry // tag-name<->u64 registry (e.g. "date"->1)
	Config   Config

	steps int
}

// New builds a Matcher. A nil knownValues registry resolves nothing; a nil
// tagNames registry falls back to known.TagNames.
func New(prog *compiler.Program, knownValues, tagNames known.Registry, cfg Config) *Matcher {
	if knownValues == nil {
		knownValues = known.Empty
	}
	if tagNames == nil {
		tagNames = known.TagNames
	}
	return &Matcher{Program: prog, Known: knownValues, TagNames: tagNames, Config: cfg}
}

// Result is the outcome of a full match: every accepting path, and every
// named capture's set of paths.
type Result struct {
	Paths    []value.Path
	Captures map[string][]value.Path
}

// cont is the continuation every eval call receives: the path to
// consider as the match position so far, and the capture bindings
// accumulated. Returns false to request the search stop entirely.
type cont func(path value.Path, b *binding) bool

// Matches reports whether root has any accepting path, short-circuiting
// after the first one is found.
func (m *Matcher) Matches(root value.Value) (bool, error) {
	found := false
	err := m.run(root, func(value.Path, *binding) bool {
		found = true
		return false
	})
	return found, err
}

// Paths enumerates every distinct accepting path.
func (m *Matcher) Paths(root value.Value) ([]value.Path, error) {
	res, err := m.MatchWithCaptures(root)
	if err != nil {
		return nil, err
	}
	return res.Paths, nil
}

// MatchWithCaptures enumerates every accepting path and every named
// capture, exploring all alternatives (required for capture completeness).
func (m *Matcher) MatchWithCaptures(root value.Value) (Result, error) {
	var paths []value.Path
	captures := make(map[string][]value.Path)
	err := m.run(root, func(p value.Path, b *binding) bool {
		if !containsPath(paths, p) {
			paths = append(paths, p)
		}
		for cur := b; cur != nil; cur = cur.prev {
			name := m.Program.CaptureNames[cur.slot]
			if !containsPath(captures[name], cur.path) {
				captures[name] = append(captures[name], cur.path)
			}
		}
		return true
	})
	if err != nil {
		return Result{}, err
	}
	for name := range captures {
		sort.SliceStable(captures[name], func(i, j int) bool {
			return pathLess(captures[name][i], captures[name][j])
		})
	}
	return Result{Paths: paths, Captures: captures}, nil
}

func containsPath(haystack []value.Path, p value.Path) bool {
	for _, q := range haystack {
		if q.Equal(p) {
			return true
		}
	}
	return false
}

// pathLess gives paths a stable (if arbitrary) total order so capture
// lists have deterministic iteration order independent of map ordering.
func pathLess(a, b value.Path) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		da, db := a[i].Diagnostic(), b[i].Diagnostic()
		if da != db {
			return da < db
		}
	}
	return false
}

func (m *Matcher) run(root value.Value, k cont) (err error) {
	m.steps = 0
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(*ErrResourceExhausted); ok {
				err = re
				return
			}
			panic(r)
		}
	}()
	m.eval(m.Program.Root, value.Path{root}, nil, k)
	return nil
}

func (m *Matcher) step() {
	if m.Config.MaxSteps <= 0 {
		return
	}
	m.steps++
	if m.steps > m.Config.MaxSteps {
		panic(&ErrResourceExhausted{MaxSteps: m.Config.MaxSteps})
	}
}

// eval is the core dispatcher: it interprets pattern n at path and, on
// every way n can match, invokes k with the resulting path and bindings.
func (m *Matcher) eval(n ast.Pattern, path value.Path, b *binding, k cont) bool {
	m.step()
	switch n.Kind {
	case ast.KindAny:
		return k(path, b)
	case ast.KindNone:
		return true
	case ast.KindNull:
		if path.Last().Kind() == value.KindNull {
			return k(path, b)
		}
		return true
	case ast.KindBool:
		if matchBool(n.Bool, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindText:
		if m.matchText(n.Text, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindByteString:
		if m.matchByteString(n.ByteString, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindDigest:
		if m.matchDigest(n.Digest, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindDate:
		if m.matchDate(n.Date, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindNumber:
		if matchNumber(n.Number, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindKnownValue:
		if m.matchKnownValue(n.KnownValue, path.Last()) {
			return k(path, b)
		}
		return true
	case ast.KindArray:
		return m.evalArray(n.Array, path, b, k)
	case ast.KindMap:
		return m.evalMap(n.Map, path, b, k)
	case ast.KindTagged:
		return m.evalTagged(n.Tagged, path, b, k)
	case ast.KindAnd:
		return m.evalAnd(n.And, 0, path, b, k)
	case ast.KindOr:
		return m.evalOr(n.Or, path, b, k)
	case ast.KindNot:
		return m.evalNot(*n.Not, path, b, k)
	case ast.KindRepeat:
		return m.evalRepeatDegenerate(n.Repeat, path, b, k)
	case ast.KindSequence:
		// A bare Sequence only ever appears as the Elements body of an
		// Array; reaching one directly means the array axis has already
		// been entered by evalArray, which calls matchArraySeq instead.
		return true
	case ast.KindCapture:
		return m.evalCapture(n.Capture, path, b, k)
	case ast.KindSearch:
		return m.evalSearch(*n.Search, path, b, k)
	default:
		return true
	}
}

func (m *Matcher) evalAnd(children []ast.Pattern, idx int, path value.Path, b *binding, k cont) bool {
	if idx == len(children) {
		return k(path, b)
	}
	return m.eval(children[idx], path, b, func(_ value.Path, b2 *binding) bool {
		return m.evalAnd(children, idx+1, path, b2, k)
	})
}

func (m *Matcher) evalOr(children []ast.Pattern, path value.Path, b *binding, k cont) bool {
	for _, child := range children {
		if !m.eval(child, path, b, k) {
			return false
		}
	}
	return true
}

func (m *Matcher) evalNot(child ast.Pattern, path value.Path, b *binding, k cont) bool {
	found := false
	m.eval(child, path, b, func(value.Path, *binding) bool {
		found = true
		return false
	})
	if found {
		return true
	}
	return k(path, b)
}

// evalRepeatDegenerate handles a Repeat node reached outside an array
// sequence context (e.g. a bare top-level "(p)*", or one nested under
// And/Or/Capture/Tagged/search). Repeating a single-node check has no
// "next element" to consume, so it degenerates to: the child must match
// at least once if Min>=1, and if Min==0 both the matched and skipped
// readings are offered (in quantifier order) since the repeat count
// itself carries no further observable effect beyond whether it matched.
func (m *Matcher) evalRepeatDegenerate(r *ast.RepeatPattern, path value.Path, b *binding, k cont) bool {
	q := r.Quantifier
	if q.Min >= 1 {
		return m.eval(r.Child, path, b, k)
	}
	switch q.Reluctance {
	case ast.Lazy:
		if !k(path, b) {
			return false
		}
		return m.eval(r.Child, path, b, k)
	case ast.Possessive:
		matched := false
		res := m.eval(r.Child, path, b, func(p2 value.Path, b2 *binding) bool {
			matched = true
			return k(p2, b2)
		})
		if matched {
			return res
		}
		return k(path, b)
	default: // Greedy
		if !m.eval(r.Child, path, b, k) {
			return false
		}
		return k(path, b)
	}
}

func (m *Matcher) evalCapture(c *ast.CapturePattern, path value.Path, b *binding, k cont) bool {
	slot := m.Program.CaptureSlot(c)
	return m.eval(c.Child, path, b, func(p2 value.Path, b2 *binding) bool {
		nb := &binding{slot: slot, path: p2, prev: b2}
		return k(p2, nb)
	})
}

func (m *Matcher) evalTagged(t *ast.TaggedPattern, path value.Path, b *binding, k cont) bool {
	node := path.Last()
	tag, content, ok := node.AsTagged()
	if !ok || !m.tagSelMatches(t, tag) {
		return true
	}
	contentPath := path.Append(content)
	return m.eval(*t.Inner, contentPath, b, func(_ value.Path, b2 *binding) bool {
		return k(path, b2)
	})
}

func (m *Matcher) tagSelMatches(t *ast.TaggedPattern, tag uint64) bool {
	switch t.Sel.Kind {
	case ast.TagAny:
		return true
	case ast.TagNumber:
		return tag == t.Sel.Num
	case ast.TagName:
		n, ok := m.TagNames.ValueByName(t.Sel.Name)
		return ok && n == tag
	case ast.TagNameRegex:
		name, ok := m.TagNames.NameByValue(tag)
		if !ok {
			return false
		}
		re := m.Program.Regex(&t.Sel)
		return re != nil && re.MatchString(name)
	default:
		return false
	}
}

func (m *Matcher) evalArray(a *ast.ArrayPattern, path value.Path, b *binding, k cont) bool {
	node := path.Last()
	if node.Kind() != value.KindArray {
		return true
	}
	switch a.Kind {
	case ast.ArrayAnyLength:
		return k(path, b)
	case ast.ArrayLength:
		if lengthOK(a.Length, node.Len()) {
			return k(path, b)
		}
		return true
	case ast.ArrayElements:
		items := a.Elements.Sequence
		elements := node.Elements()
		return m.matchArraySeq(items, path, elements, 0, 0, b, func(b2 *binding) bool {
			return k(path, b2)
		})
	default:
		return true
	}
}

func (m *Matcher) evalMap(mp *ast.MapPattern, path value.Path, b *binding, k cont) bool {
	node := path.Last()
	if node.Kind() != value.KindMap {
		return true
	}
	switch mp.Kind {
	case ast.MapAnyLength:
		return k(path, b)
	case ast.MapLength:
		if lengthOK(mp.Length, node.Len()) {
			return k(path, b)
		}
		return true
	case ast.MapEntries:
		return m.matchMapEntries(mp.Entries, path, node.Pairs(), b, func(b2 *binding) bool {
			return k(path, b2)
		})
	default:
		return true
	}
}

func lengthOK(lc ast.LengthConstraint, n int) bool {
	if uint64(n) < lc.Min {
		return false
	}
	if lc.Max != ast.MaxUnbounded && uint64(n) > lc.Max {
		return false
	}
	return true
}
