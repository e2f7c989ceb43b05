// Package rowexec implements talon's pull-based ("volcano") executor
// (spec §4.6): one RowIter per logical operator, composed bottom-up by
// Build, each yielding tuples on demand from its parent. Read-only
// operators consume sql.Transaction.Read; DML and DDL operators
// additionally mutate the transaction, surfacing no data rows (Analyze
// is the exception: it yields one row per stats file it wrote).
package rowexec

import (
	"io"

	"github.com/talondb/talon/sql"
)

// RowIter is the executor's pull contract (spec §4.6, §5): finite, not
// restartable once exhausted, error-terminating. Next returns io.EOF
// (not a sql error kind) once the sequence is spent, matching the
// dolthub-go-mysql-server RowIter convention this executor inherits.
type RowIter interface {
	Next(ctx *sql.Context) (sql.Tuple, error)
	Close(ctx *sql.Context) error
}

// sliceIter replays a fixed, pre-materialized tuple slice — the
// backing of Dummy, Values, and any operator that must fully buffer
// its input before yielding (Sort, HashJoin's build phase, HashAgg).
type sliceIter struct {
	tuples []sql.Tuple
	pos    int
}

func newSliceIter(tuples []sql.Tuple) *sliceIter { return &sliceIter{tuples: tuples} }

func (s *sliceIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	if s.pos >= len(s.tuples) {
		return sql.Tuple{}, io.EOF
	}
	t := s.tuples[s.pos]
	s.pos++
	return t, nil
}

func (s *sliceIter) Close(ctx *sql.Context) error { return nil }

// drainAll pulls every tuple from iter until io.EOF, closing it
// either way.
func drainAll(ctx *sql.Context, iter RowIter) ([]sql.Tuple, error) {
	defer iter.Close(ctx)
	var out []sql.Tuple
	for {
		t, err := iter.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
