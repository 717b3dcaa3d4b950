package vm

import (
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

// unwrapTrivialRepeat strips the mandatory Repeat(p, {1,1,Greedy}) wrapper
// every parenthesized group receives, down to whatever pattern (possibly
// itself a Repeat with a real range, if the group's content was itself a
// quantified group) actually governs matching. This lets every array
// sequence item, quantified or not, be processed by one count-driven loop
// rather than splitting plain items from repeat items.
func unwrapTrivialRepeat(p ast.Pattern) ast.Pattern {
	for p.Kind == ast.KindRepeat &&
		p.Repeat.Quantifier.Min == 1 &&
		p.Repeat.Quantifier.Max == 1 &&
		p.Repeat.Quantifier.Reluctance == ast.Greedy {
		p = p.Repeat.Child
	}
	return p
}

// asCountedItem reduces a single array-sequence item to the pattern that
// must match each consumed element, the quantifier governing how many
// elements it consumes, and the Capture wrapper (if any) spanning it.
func asCountedItem(item ast.Pattern) (child ast.Pattern, q ast.Quantifier, capture *ast.CapturePattern) {
	if item.Kind == ast.KindCapture {
		capture = item.Capture
		item = item.Capture.Child
	}
	item = unwrapTrivialRepeat(item)
	if item.Kind == ast.KindRepeat {
		return item.Repeat.Child, item.Repeat.Quantifier, capture
	}
	return item, ast.Quantifier{Min: 1, Max: 1, Reluctance: ast.Greedy}, capture
}

// matchSpan matches child against count consecutive elements starting at
// start, threading capture bindings through in element order. Each element
// uses the first successful interpretation of child, rather than
// exhaustively exploring every alternative way child could match every
// element of the span: full combinatorial enumeration across a repeated
// array item would be exponential in the span length, and the span
// capture binds the same elements either way.
func (m *Matcher) matchSpan(child ast.Pattern, containerPath value.Path, elements []value.Value, start, count int, b *binding) (*binding, bool) {
	cur := b
	for i := 0; i < count; i++ {
		elemPath := containerPath.Append(elements[start+i])
		var next *binding
		found := false
		m.eval(child, elemPath, cur, func(_ value.Path, b2 *binding) bool {
			next = b2
			found = true
			return false
		})
		if !found {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// matchArraySeq matches items[idx:] against elements[cursor:], partitioning
// the remaining elements into one contiguous span per item. On
// success it invokes k with the bindings accumulated across every item;
// count choices for the current item are tried in the order its quantifier's
// reluctance dictates, and Possessive takes the longest run of elements the
// child matches (up to the maximum) with no further backtracking into this
// item on local failure.
func (m *Matcher) matchArraySeq(items []ast.Pattern, containerPath value.Path, elements []value.Value, idx, cursor int, b *binding, k func(*binding) bool) bool {
	m.step()
	if idx == len(items) {
		if cursor == len(elements) {
			return k(b)
		}
		return true
	}

	child, q, capture := asCountedItem(items[idx])
	remaining := len(elements) - cursor
	lo := int(q.Min)
	hi := remaining
	if !q.Unbounded() && int(q.Max) < hi {
		hi = int(q.Max)
	}
	if hi < lo {
		return true
	}

	attempt := func(cnt int) bool {
		spanB, ok := m.matchSpan(child, containerPath, elements, cursor, cnt, b)
		if !ok {
			return true
		}
		nb := spanB
		if capture != nil {
			slot := m.Program.CaptureSlot(capture)
			var capPath value.Path
			if cnt == 1 && q.Min == 1 && q.Max == 1 {
				capPath = containerPath.Append(elements[cursor])
			} else {
				span := make([]value.Value, cnt)
				copy(span, elements[cursor:cursor+cnt])
				capPath = containerPath.Append(value.Array(span))
			}
			nb = &binding{slot: slot, path: capPath, prev: nb}
		}
		return m.matchArraySeq(items, containerPath, elements, idx+1, cursor+cnt, nb, k)
	}

	switch q.Reluctance {
	case ast.Possessive:
		run := 0
		for run < hi {
			if _, ok := m.matchSpan(child, containerPath, elements, cursor+run, 1, b); !ok {
				break
			}
			run++
		}
		if run < lo {
			return true
		}
		return attempt(run)
	case ast.Lazy:
		for cnt := lo; cnt <= hi; cnt++ {
			if !attempt(cnt) {
				return false
			}
		}
		return true
	default: // Greedy
		for cnt := hi; cnt >= lo; cnt-- {
			if !attempt(cnt) {
				return false
			}
		}
		return true
	}
}
