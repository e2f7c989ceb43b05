package rowexec

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// buildValues implements Values (spec §4.6): a fixed literal-row
// source, used for INSERT ... VALUES and the empty-relation rewrite of
// an always-false Filter.
func buildValues(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.ValuesParams)
	dummy := sql.Tuple{}
	tuples := make([]sql.Tuple, 0, len(params.Rows))
	for _, row := range params.Rows {
		vals := make(sql.Row, len(row))
		for i, e := range row {
			v, err := e.Eval(ctx, dummy)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		tuples = append(tuples, sql.Tuple{SchemaRef: p.Schema, Values: vals})
	}
	return newSliceIter(tuples), nil
}
