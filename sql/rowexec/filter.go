package rowexec

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
)

// buildFilter implements Filter (spec §4.6): drops tuples for which
// predicate.eval(tuple) != true; a null predicate result drops the row
// too (SQL three-valued-logic semantics).
func buildFilter(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.FilterParams)
	return &filterIter{child: child, predicate: params.Predicate}, nil
}

type filterIter struct {
	child     RowIter
	predicate expression.ScalarExpression
}

func (f *filterIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	for {
		tuple, err := f.child.Next(ctx)
		if err != nil {
			return sql.Tuple{}, err
		}
		v, err := f.predicate.Eval(ctx, tuple)
		if err != nil {
			return sql.Tuple{}, err
		}
		if v.IsNull() {
			continue
		}
		b, ok := v.AsBool()
		if ok && b {
			return tuple, nil
		}
	}
}

func (f *filterIter) Close(ctx *sql.Context) error { return f.child.Close(ctx) }
