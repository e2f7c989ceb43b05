package sql

// SchemaRef is an ordered, immutable sequence of column references
// shared between plan nodes and tuples (spec §3). Rewrites that change
// a node's output must build a fresh SchemaRef rather than mutate one
// in place — every SchemaRef constructor here returns a new slice.
type SchemaRef []ColumnRef

// NewSchemaRef copies cols into a fresh, independently-owned SchemaRef.
func NewSchemaRef(cols []ColumnRef) SchemaRef {
	out := make(SchemaRef, len(cols))
	copy(out, cols)
	return out
}

// Concat returns a new SchemaRef with other's columns appended, used
// by Join construction.
func (s SchemaRef) Concat(other SchemaRef) SchemaRef {
	out := make(SchemaRef, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return out
}

// Names returns the column names in order, for Display formatting.
func (s SchemaRef) Names() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Name()
	}
	return out
}

// IndexOf returns the position of a column reference within the
// schema, or -1. Pointer identity is intentional: columns are shared
// immutable handles (spec §5), so two ColumnRef values referring to
// the "same" catalog column are the same pointer.
func (s SchemaRef) IndexOf(col ColumnRef) int {
	for i, c := range s {
		if c == col {
			return i
		}
	}
	return -1
}
