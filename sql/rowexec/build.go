package rowexec

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/plan"
)

// Build dispatches on p's root operator to a concrete RowIter,
// recursing into children first so the result is a composition of
// lazy sequences (spec §4.6). BuildRead and BuildWrite below are
// thin aliases kept for the read/write-executor distinction the spec
// draws; both ultimately call this.
func Build(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	switch p.Op {
	case plan.OpDummy:
		return buildDummy(ctx, p, txn)
	case plan.OpScan:
		return buildScan(ctx, p, txn)
	case plan.OpFilter:
		return buildFilter(ctx, p, txn)
	case plan.OpProject:
		return buildProject(ctx, p, txn)
	case plan.OpSort:
		return buildSort(ctx, p, txn)
	case plan.OpLimit:
		return buildLimit(ctx, p, txn)
	case plan.OpJoin:
		return buildJoin(ctx, p, txn)
	case plan.OpAggregate:
		return buildAggregate(ctx, p, txn)
	case plan.OpUnion:
		return buildUnion(ctx, p, txn)
	case plan.OpValues:
		return buildValues(ctx, p, txn)
	case plan.OpInsert:
		return buildInsert(ctx, p, txn)
	case plan.OpUpdate:
		return buildUpdate(ctx, p, txn)
	case plan.OpDelete:
		return buildDelete(ctx, p, txn)
	case plan.OpAnalyze:
		return buildAnalyze(ctx, p, txn)
	case plan.OpCopyFromFile:
		return buildCopyFromFile(ctx, p, txn)
	case plan.OpCreateTable:
		return buildCreateTable(ctx, p, txn)
	case plan.OpDropTable:
		return buildDropTable(ctx, p, txn)
	case plan.OpTruncate:
		return buildTruncate(ctx, p, txn)
	case plan.OpAddColumn:
		return buildAddColumn(ctx, p, txn)
	case plan.OpDropColumn:
		return buildDropColumn(ctx, p, txn)
	case plan.OpShow:
		return buildShow(ctx, p, txn)
	case plan.OpExplain:
		return buildExplain(ctx, p, txn)
	default:
		return nil, sql.ErrUnsupportedStmt.New(p.Op.String())
	}
}

// BuildRead is Build, named for operators the spec classifies as
// read-only (ReadExecutor): they borrow txn but never mutate it.
func BuildRead(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	return Build(ctx, p, txn)
}

// BuildWrite is Build, named for operators the spec classifies as
// WriteExecutor: they mutate txn and leave it rollback-only on error.
func BuildWrite(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	return Build(ctx, p, txn)
}

func buildChild(ctx *sql.Context, p *plan.LogicalPlan, txn sql.Transaction) (RowIter, error) {
	return Build(ctx, p.Children[0], txn)
}
