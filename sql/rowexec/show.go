package rowexec

import (
	"sort"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/types"
)

// buildShow implements SHOW TABLES / SHOW COLUMNS (spec §4.3): a
// read-only catalog listing, no transaction mutation.
func buildShow(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.ShowParams)
	var names []string
	switch params.Kind {
	case plan.ShowTables:
		names = txn.Tables()
	case plan.ShowColumns:
		table, ok := txn.Table(params.TableName)
		if !ok {
			return nil, sql.ErrInvalidTable.New(params.TableName)
		}
		names = table.Columns().Names()
	}
	sort.Strings(names)
	rows := make([]sql.Tuple, len(names))
	for i, name := range names {
		rows[i] = sql.Tuple{SchemaRef: p.Schema, Values: []types.Value{types.NewVarcharValue(name, -1)}}
	}
	return newSliceIter(rows), nil
}

// buildExplain implements EXPLAIN (spec §4.3): yields the target
// plan's display form as a single row holding the whole (multi-line)
// text.
func buildExplain(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.ExplainParams)
	row := sql.Tuple{SchemaRef: p.Schema, Values: []types.Value{types.NewVarcharValue(params.Target.String(), -1)}}
	return newSliceIter([]sql.Tuple{row}), nil
}
