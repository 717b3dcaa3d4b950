package value

// Axis identifies one of the four descent relations a pattern can use to
// move from a parent CBOR node to a child. No axis descends into atoms.
type Axis uint8

const (
	AxisArrayElement Axis = iota
	AxisMapKey
	AxisMapValue
	AxisTaggedContent
)

func (a Axis) String() string {
	switch a {
	case AxisArrayElement:
		return "array-element"
	case AxisMapKey:
		return "map-key"
	case AxisMapValue:
		return "map-value"
	case AxisTaggedContent:
		return "tagged-content"
	default:
		return "unknown-axis"
	}
}

// Path is an ordered sequence of CBOR values from the root a pattern was
// applied to down to a matched descendant. Path[0] is always the root.
type Path []Value

// Append returns a new Path with v appended, without mutating the
// receiver's backing array. Every axis step in the VM goes through this so
// that two branches exploring different children never alias each other's
// path slice.
func (p Path) Append(v Value) Path {
	np := make(Path, len(p)+1)
	copy(np, p)
	np[len(p)] = v
	return np
}

// Last returns the final value of the path (the matched node).
func (p Path) Last() Value {
	return p[len(p)-1]
}

// Equal reports whether two paths hold the same value sequence.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if !p[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Children returns the values reachable from v by one step along axis, in
// axis-defined order. TaggedContent yields at most one value.
func Children(v Value, axis Axis) []Value {
	switch axis {
	case AxisArrayElement:
		return v.Elements()
	case AxisMapKey:
		pairs := v.Pairs()
		keys := make([]Value, len(pairs))
		for i, p := range pairs {
			keys[i] = p.Key
		}
		return keys
	case AxisMapValue:
		pairs := v.Pairs()
		vals := make([]Value, len(pairs))
		for i, p := range pairs {
			vals[i] = p.Value
		}
		return vals
	case AxisTaggedContent:
		if _, c, ok := v.AsTagged(); ok {
			return []Value{c}
		}
		return nil
	default:
		return nil
	}
}
