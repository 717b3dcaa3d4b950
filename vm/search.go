package vm

import (
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/ast"
	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

// evalSearch enumerates every node reachable from path (including path
// itself) in depth-first pre-order, axis priority Array -> Map(keys then
// values) -> TaggedContent, trying child at each as a fresh match position.
// Unlike Array/Map/Tagged, which restore the container's own path before
// calling their continuation, Search hands its continuation straight
// through unchanged: the whole point of Search is to relocate the pattern's
// effective position downstream, so a match found at a descendant produces
// a path that actually reaches that descendant.
func (m *Matcher) evalSearch(child ast.Pattern, path value.Path, b *binding, k cont) bool {
	for _, p2 := range searchOrder(path) {
		if !m.eval(child, p2, b, k) {
			return false
		}
	}
	return true
}

func searchOrder(path value.Path) []value.Path {
	var out []value.Path
	var walk func(p value.Path)
	walk = func(p value.Path) {
		out = append(out, p)
		node := p.Last()
		switch node.Kind() {
		case value.KindArray:
			for _, e := range node.Elements() {
				walk(p.Append(e))
			}
		case value.KindMap:
			for _, pair := range node.Pairs() {
				walk(p.Append(pair.Key))
			}
			for _, pair := range node.Pairs() {
				walk(p.Append(pair.Value))
			}
		case value.KindTagged:
			if _, content, ok := node.AsTagged(); ok {
				walk(p.Append(content))
			}
		}
	}
	walk(path)
	return out
}
