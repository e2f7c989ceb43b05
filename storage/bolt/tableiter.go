package boltstore

import (
	"io"

	bolt "github.com/boltdb/bolt"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/types"
)

// tableIter is the concrete sql.TupleIterator Read hands back: a
// cursor over one table's rows bucket, optionally narrowed to the
// disjoint, ordered scopes an IndexScan decorated onto the plan (spec
// §4.6, §4.1 GLOSSARY "ConstantBinary"). Rows are decoded against the
// table's full schema so scope bounds can be checked against the
// primary key's actual value (not its encoded bytes), then projected
// down to the columns the caller asked for.
type tableIter struct {
	cursor     *bolt.Cursor
	fullSchema sql.SchemaRef
	outSchema  sql.SchemaRef
	pkPos      int
	scopes     expression.ScopeList
	scopeIdx   int
	started    bool
}

func newTableIter(cursor *bolt.Cursor, fullSchema, outSchema sql.SchemaRef, scopes expression.ScopeList) *tableIter {
	pkPos := -1
	for i, c := range fullSchema {
		if c.Desc.IsPrimary {
			pkPos = i
			break
		}
	}
	return &tableIter{cursor: cursor, fullSchema: fullSchema, outSchema: outSchema, pkPos: pkPos, scopes: scopes}
}

func (it *tableIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	for {
		k, v, ok := it.advance()
		if !ok {
			return sql.Tuple{}, io.EOF
		}
		if k == nil {
			continue // moved to next scope, retry
		}
		full, err := decodeRow(it.fullSchema, v)
		if err != nil {
			return sql.Tuple{}, sql.ErrSerialization.New(err.Error())
		}
		if len(it.scopes) > 0 && it.pkPos >= 0 {
			pk := full.Values[it.pkPos]
			state := scopeCompare(it.scopes[it.scopeIdx], pk)
			switch state {
			case scopeBelow:
				continue // Seek landed before Min (Excluded); skip forward
			case scopeAbove:
				it.scopeIdx++
				it.started = false
				continue
			}
		}
		if it.pkPos >= 0 {
			id := full.Values[it.pkPos]
			full.ID = &id
		}
		return projectTuple(full, it.outSchema), nil
	}
}

type scopeState int

const (
	scopeWithin scopeState = iota
	scopeBelow
	scopeAbove
)

func scopeCompare(s expression.Scope, v types.Value) scopeState {
	if s.Min.Kind != expression.Unbounded {
		c, err := v.Compare(s.Min.Value)
		if err == nil {
			if c < 0 || (c == 0 && s.Min.Kind == expression.Excluded) {
				return scopeBelow
			}
		}
	}
	if s.Max.Kind != expression.Unbounded {
		c, err := v.Compare(s.Max.Value)
		if err == nil {
			if c > 0 || (c == 0 && s.Max.Kind == expression.Excluded) {
				return scopeAbove
			}
		}
	}
	return scopeWithin
}

// advance returns the next (k, v) pair to inspect, or ok=false once
// every scope (or the whole bucket, when unconstrained) is exhausted.
// A nil k with ok=true signals "scope boundary crossed, caller should
// loop" without decoding a row.
func (it *tableIter) advance() (k, v []byte, ok bool) {
	if len(it.scopes) == 0 {
		if !it.started {
			it.started = true
			k, v = it.cursor.First()
		} else {
			k, v = it.cursor.Next()
		}
		return k, v, k != nil
	}
	for it.scopeIdx < len(it.scopes) {
		if !it.started {
			it.started = true
			scope := it.scopes[it.scopeIdx]
			if scope.Min.Kind == expression.Unbounded {
				k, v = it.cursor.First()
			} else {
				seekKey := orderedKey(scope.Min.Value)
				k, v = it.cursor.Seek(seekKey)
			}
		} else {
			k, v = it.cursor.Next()
		}
		if k == nil {
			it.scopeIdx++
			it.started = false
			return nil, nil, it.scopeIdx < len(it.scopes)
		}
		return k, v, true
	}
	return nil, nil, false
}

func projectTuple(full sql.Tuple, outSchema sql.SchemaRef) sql.Tuple {
	if len(outSchema) == len(full.SchemaRef) {
		same := true
		for i := range outSchema {
			if outSchema[i] != full.SchemaRef[i] {
				same = false
				break
			}
		}
		if same {
			return full
		}
	}
	values := make([]types.Value, len(outSchema))
	for i, col := range outSchema {
		idx := full.SchemaRef.IndexOf(col)
		if idx >= 0 {
			values[i] = full.Values[idx]
		} else {
			values[i] = types.Null(col.Datatype())
		}
	}
	return sql.Tuple{ID: full.ID, SchemaRef: outSchema, Values: values}
}

func (it *tableIter) Close(ctx *sql.Context) error { return nil }
