package rowexec

import (
	"io"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// buildLimit implements Limit(offset, count) (spec §4.6): skips
// offset rows then yields at most count. It is non-blocking and must
// short-circuit its child (spec §5): once count is satisfied, no
// further child tuples are pulled.
func buildLimit(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.LimitParams)
	return &limitIter{child: child, remainingOffset: params.Offset, count: params.Count}, nil
}

type limitIter struct {
	child           RowIter
	remainingOffset int64
	count           *int64 // nil: unbounded
	yielded         int64
}

func (l *limitIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	if l.count != nil && l.yielded >= *l.count {
		return sql.Tuple{}, io.EOF
	}
	for l.remainingOffset > 0 {
		if _, err := l.child.Next(ctx); err != nil {
			return sql.Tuple{}, err
		}
		l.remainingOffset--
	}
	tuple, err := l.child.Next(ctx)
	if err != nil {
		return sql.Tuple{}, err
	}
	l.yielded++
	return tuple, nil
}

func (l *limitIter) Close(ctx *sql.Context) error { return l.child.Close(ctx) }
