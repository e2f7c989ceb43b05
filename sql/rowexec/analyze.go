package rowexec

import (
	"io"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/stats"
	"github.com/talondb/talon/sql/types"
)

const defaultNumBuckets = 100

// buildAnalyze implements Analyze (spec §4.7, C9): streams the target
// table through its child Scan, folds each indexed column's values
// into a HistogramBuilder, then on EOF writes one column-meta file per
// indexed column under <stats_root>/<table>/<unix_seconds>/<column_id>
// and records the resulting paths as a TableMeta persisted via the
// transaction. Grounded on original_source's execution::volcano::dml::
// analyze.rs Analyze::_execute, translated from its futures_async_stream
// generator into this executor's synchronous pull loop.
func buildAnalyze(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.AnalyzeParams)

	builders := make(map[sql.ColumnID]*stats.HistogramBuilder, len(params.Columns))
	for _, col := range params.Columns {
		if id, ok := col.ID(); ok {
			builders[id] = stats.NewHistogramBuilder(col.Datatype())
		}
	}

	positions := map[sql.ColumnID]int{}
	havePositions := false
	for {
		tuple, err := child.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !havePositions {
			for i, col := range tuple.SchemaRef {
				if id, ok := col.ID(); ok {
					if _, tracked := builders[id]; tracked {
						positions[id] = i
					}
				}
			}
			havePositions = true
		}
		for id, builder := range builders {
			pos, ok := positions[id]
			if !ok {
				continue
			}
			if err := builder.Append(tuple.Values[pos]); err != nil {
				return nil, err
			}
		}
	}
	if err := child.Close(ctx); err != nil {
		return nil, err
	}

	ts := stats.Now()
	meta := sql.EmptyTableMeta(params.Table.Name)
	var outPaths []string
	for _, col := range params.Columns {
		id, ok := col.ID()
		if !ok {
			continue
		}
		builder, ok := builders[id]
		if !ok {
			continue
		}
		hist, sketch, err := builder.Build(defaultNumBuckets)
		if err != nil {
			return nil, err
		}
		cm := stats.NewColumnMeta(hist, sketch)
		path := stats.PathFor(ctx.StatsRoot(), params.Table.Name, ts, id)
		if err := cm.WriteFile(path); err != nil {
			return nil, sql.ErrInternalStorage.New(err.Error())
		}
		meta.ColumnMetaPaths = append(meta.ColumnMetaPaths, path)
		outPaths = append(outPaths, path)
	}
	if err := txn.SaveTableMeta(meta); err != nil {
		return nil, err
	}

	rows := make([]sql.Tuple, len(outPaths))
	for i, path := range outPaths {
		rows[i] = sql.Tuple{SchemaRef: p.Schema, Values: []types.Value{types.NewVarcharValue(path, -1)}}
	}
	return newSliceIter(rows), nil
}
