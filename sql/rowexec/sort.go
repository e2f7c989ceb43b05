package rowexec

import (
	"sort"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// buildSort implements Sort (spec §4.6): fully buffers input (a
// blocking operator, spec §5), then emits in the given key order.
// Multi-key compare is lexicographic; per-key ascending/descending and
// nulls-first/last are honored.
func buildSort(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	tuples, err := drainAll(ctx, child)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.SortParams)

	var sortErr error
	sort.SliceStable(tuples, func(i, j int) bool {
		less, err := compareTuples(ctx, tuples[i], tuples[j], params.Keys)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return newSliceIter(tuples), nil
}

// compareTuples returns whether a sorts strictly before b under keys,
// a total order per spec §4.6.
func compareTuples(ctx *sql.Context, a, b sql.Tuple, keys []plan.SortKey) (bool, error) {
	for _, k := range keys {
		av, err := k.Expr.Eval(ctx, a)
		if err != nil {
			return false, err
		}
		bv, err := k.Expr.Eval(ctx, b)
		if err != nil {
			return false, err
		}
		switch {
		case av.IsNull() && bv.IsNull():
			continue
		case av.IsNull():
			return k.NullsFirst, nil
		case bv.IsNull():
			return !k.NullsFirst, nil
		}
		cmp, err := av.Compare(bv)
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			continue
		}
		if k.Descending {
			return cmp > 0, nil
		}
		return cmp < 0, nil
	}
	return false, nil
}
