package vm

import (
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

// matchMapEntries searches for an injective assignment of pattern entries
// to distinct map pairs: each entry's key pattern and value pattern
// must both match some not-yet-used pair, explored via DFS with forward
// checking (used[] is mutated then undone on backtrack rather than copied,
// since only one assignment is live at a time per branch). Every entry's
// key/value match uses its own first successful interpretation, the same
// simplification matchSpan makes for repeated array items.
func (m *Matcher) matchMapEntries(entries []ast.MapEntry, containerPath value.Path, pairs []value.Pair, b *binding, k func(*binding) bool) bool {
	used := make([]bool, len(pairs))

	var assign func(i int, b *binding) bool
	assign = func(i int, b *binding) bool {
		m.step()
		if i == len(entries) {
			return k(b)
		}
		entry := entries[i]
		for j, pair := range pairs {
			if used[j] {
				continue
			}
			var keyBinding *binding
			keyMatched := false
			m.eval(entry.Key, containerPath.Append(pair.Key), b, func(_ value.Path, b2 *binding) bool {
				keyBinding = b2
				keyMatched = true
				return false
			})
			if !keyMatched {
				continue
			}
			var valBinding *binding
			valMatched := false
			m.eval(entry.Value, containerPath.Append(pair.Value), keyBinding, func(_ value.Path, b2 *binding) bool {
				valBinding = b2
				valMatched = true
				return false
			})
			if !valMatched {
				continue
			}
			used[j] = true
			cont := assign(i+1, valBinding)
			used[j] = false
			if !cont {
				return false
			}
		}
		return true
	}

	return assign(0, b)
}
