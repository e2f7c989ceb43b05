package rowexec

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
)

// buildProject implements Project (spec §4.6): evaluates a list of
// expressions against each input tuple, producing a new SchemaRef and
// arity.
func buildProject(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	child, err := buildChild(ctx, p, txn)
	if err != nil {
		return nil, err
	}
	params := p.Params.(plan.ProjectParams)
	return &projectIter{child: child, exprs: params.Exprs, schema: p.Schema}, nil
}

type projectIter struct {
	child  RowIter
	exprs  []expression.ScalarExpression
	schema sql.SchemaRef
}

func (pr *projectIter) Next(ctx *sql.Context) (sql.Tuple, error) {
	tuple, err := pr.child.Next(ctx)
	if err != nil {
		return sql.Tuple{}, err
	}
	vals := make(sql.Row, len(pr.exprs))
	for i, e := range pr.exprs {
		v, err := e.Eval(ctx, tuple)
		if err != nil {
			return sql.Tuple{}, err
		}
		vals[i] = v
	}
	return sql.Tuple{SchemaRef: pr.schema, Values: vals}, nil
}

func (pr *projectIter) Close(ctx *sql.Context) error { return pr.child.Close(ctx) }
