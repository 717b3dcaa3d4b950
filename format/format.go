// Package format renders the paths and captures a match produces into the
// canonical human-readable text described by the core's path-formatting
// contract: 4-space indentation per path depth, capture blocks (each
// prefixed with "@name") before plain paths, captures emitted in
// lexicographic name order.
//
// There is no corresponding parser: the format is a reporting surface (the
// way a CLI or test harness would print a match), not a wire format
// anything round-trips through.
package format

import (
	"sort"
	"strings"

	"github.com/BlockchainCommons/bc-dcbor-pattern-go/value"
)

// Result is the minimal shape format.Format needs: a path list and a
// name->paths capture map, matching vm.Result without importing vm (format
// sits below vm in the dependency graph; the façade adapts vm.Result to
// this).
type Result struct {
	Paths    []value.Path
	Captures map[string][]value.Path
}

// Format renders r as canonical text: capture blocks first, each sorted by
// name, followed by the plain path list, in the order paths were produced.
func Format(r Result) string {
	var sb strings.Builder
	names := make([]string, 0, len(r.Captures))
	for name := range r.Captures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString("@")
		sb.WriteString(name)
		sb.WriteString("\n")
		for _, p := range r.Captures[name] {
			writePath(&sb, p, 1)
		}
	}
	for _, p := range r.Paths {
		writePath(&sb, p, 0)
	}
	return sb.String()
}

// writePath renders one path, one CBOR value per line, each line indented
// four spaces per depth beyond baseIndent.
func writePath(sb *strings.Builder, p value.Path, baseIndent int) {
	for i, v := range p {
		sb.WriteString(strings.Repeat("    ", baseIndent+i))
		sb.WriteString(v.Diagnostic())
		sb.WriteString("\n")
	}
}
