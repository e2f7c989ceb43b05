package rowexec

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
)

func buildDummy(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	return newSliceIter([]sql.Tuple{{SchemaRef: sql.SchemaRef{}, Values: nil}}), nil
}

// txnRowIter adapts a sql.TupleIterator (the storage-side pull
// contract, spec §4.6) to rowexec.RowIter — they share the same
// Next/Close shape by design.
type txnRowIter struct {
	inner sql.TupleIterator
}

func (t *txnRowIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	tup, err := t.inner.Next(ctx)
	if err != nil {
		return sql.Tuple{}, err
	}
	return tup, nil
}

func (t *txnRowIter) Close(ctx *sql.Context) error { return t.inner.Close(ctx) }

// buildScan implements SeqScan / IndexScan (spec §4.6): consult the
// transaction for a tuple iterator over the named table, passing along
// the ConstantBinary ranges the optimizer decorated the primary-key
// IndexInfo with as seek bounds. The storage compares bounds against
// the primary-key value, so ranges found on any other index are not
// passed; the outer Filter still applies the predicate.
func buildScan(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	params := p.Params.(plan.ScanParams)
	var bounds sql.Bounds
	for _, idx := range params.Indexes {
		if len(idx.Ranges) > 0 && idx.Index.IsPrimary {
			bounds = expression.ScopeList(idx.Ranges)
			break
		}
	}
	projection := make([]sql.ColumnID, 0, len(p.Schema))
	for _, col := range p.Schema {
		if id, ok := col.ID(); ok {
			projection = append(projection, id)
		}
	}
	inner, err := txn.Read(params.TableName, bounds, projection)
	if err != nil {
		return nil, err
	}
	return &txnRowIter{inner: inner}, nil
}
