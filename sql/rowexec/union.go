package rowexec

import (
	"io"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// buildUnion implements Union (spec §4.6): concatenates the left
// child's rows followed by the right child's, preserving order.
func buildUnion(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	left, err := Build(ctx, p.Children[0], txn)
	if err != nil {
		return nil, err
	}
	right, err := Build(ctx, p.Children[1], txn)
	if err != nil {
		return nil, err
	}
	return &unionIter{left: left, right: right}, nil
}

type unionIter struct {
	left, right RowIter
	onRight     bool
}

func (u *unionIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	if !u.onRight {
		t, err := u.left.Next(ctx)
		if err == nil {
			return t, nil
		}
		if err != io.EOF {
			return sql.Tuple{}, err
		}
		u.onRight = true
	}
	return u.right.Next(ctx)
}

func (u *unionIter) Close(ctx *sql.Context) error {
	err1 := u.left.Close(ctx)
	err2 := u.right.Close(ctx)
	if err1 != nil {
		return err1
	}
	return err2
}
