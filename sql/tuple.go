package sql

import "github.com/talondb/talon/sql/types"

// Tuple is one row flowing through the executor: an optional primary
// key value, the SchemaRef it conforms to, and a positional sequence
// of values of the same arity as the schema (spec §3).
type Tuple struct {
	ID        *types.Value
	SchemaRef SchemaRef
	Values    []types.Value
}

// Row is the bare positional value sequence, used where a schema is
// already implied by context (e.g. within an operator that does not
// need to re-carry it per row).
type Row = []types.Value

// TupleBuilder assembles Tuples against a fixed SchemaRef, checking
// arity and per-column nullability as it goes.
type TupleBuilder struct {
	schema SchemaRef
}

func NewTupleBuilder(schema SchemaRef) TupleBuilder {
	return TupleBuilder{schema: schema}
}

// Build validates len(values) == len(schema) and that non-nullable
// columns never carry a null value (spec §3 invariant), then returns
// the assembled Tuple.
func (b TupleBuilder) Build(id *types.Value, values []types.Value) (Tuple, error) {
	if len(values) != len(b.schema) {
		return Tuple{}, ErrOutOfBounds.New("tuple arity does not match schema")
	}
	for i, col := range b.schema {
		if values[i].IsNull() && !col.Nullable {
			return Tuple{}, ErrNotNull.New(col.Name())
		}
	}
	return Tuple{ID: id, SchemaRef: b.schema, Values: values}, nil
}
