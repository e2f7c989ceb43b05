package hep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/plan"
	"github.com/talondb/talon/sql/types"
)

func mustTable(t *testing.T, name string, colNames ...string) *sql.TableCatalog {
	t.Helper()
	cols := make([]sql.ColumnRef, len(colNames))
	for i, n := range colNames {
		primary := i == 0
		cols[i] = sql.NewColumn(n, !primary, sql.ColumnDesc{Datatype: types.TBigint, IsPrimary: primary, IsUnique: primary})
	}
	tbl, err := sql.NewTableCatalog(name, cols)
	require.NoError(t, err)
	id, _ := cols[0].ID()
	tbl.AddIndexMeta("PRIMARY", []sql.ColumnID{id}, true, true)
	return tbl
}

func colExpr(t *testing.T, tbl *sql.TableCatalog, name string) *expression.ColumnRef {
	t.Helper()
	col, ok := tbl.ColumnByName(name)
	require.True(t, ok)
	return expression.NewColumnRef(col)
}

func runBatchesOnce(t *testing.T, root *plan.LogicalPlan, rules ...NormalizationRule) *plan.LogicalPlan {
	t.Helper()
	g := NewHepGraph(root)
	err := RunBatches(sql.NewEmptyContext(), g, []Batch{{
		Rules:    rules,
		Strategy: HepBatchStrategy{Kind: FixPointTopDown, MaxIters: 8},
	}})
	require.NoError(t, err)
	return g.ToPlan()
}

func TestSimplifyFilterAndTrueReducesToOperand(t *testing.T) {
	tbl := mustTable(t, "t1", "a")
	scan := plan.NewScan(tbl)
	colA := colExpr(t, tbl, "a")
	predicate := expression.NewBinary(expression.And, colA, expression.NewConstant(types.NewBool(true)), types.TBoolean)
	filter := plan.NewFilter(predicate, scan)
	project := plan.NewProject([]expression.ScalarExpression{colA}, filter)

	// a AND TRUE folds to a: the Filter stays, with a as its predicate.
	out := runBatchesOnce(t, project, SimplifyFilter{})
	require.Equal(t, plan.OpProject, out.Op)
	filterOut := out.Children[0]
	require.Equal(t, plan.OpFilter, filterOut.Op)
	assert.Equal(t, colA, filterOut.Params.(plan.FilterParams).Predicate)
	assert.Equal(t, plan.OpScan, filterOut.Children[0].Op)
}

func TestSimplifyFilterAndFalseProducesEmptyValues(t *testing.T) {
	tbl := mustTable(t, "t1", "a")
	scan := plan.NewScan(tbl)
	colA := colExpr(t, tbl, "a")
	predicate := expression.NewBinary(expression.And, colA, expression.NewConstant(types.NewBool(false)), types.TBoolean)
	filter := plan.NewFilter(predicate, scan)

	out := runBatchesOnce(t, filter, SimplifyFilter{})
	assert.Equal(t, plan.OpValues, out.Op)
}

// buildJoinFilter wraps the filter-over-join shape in a top-level
// Project (as a real query would project a select list) so the Filter
// node being rewritten is never the graph root itself.
func buildJoinFilter(t *testing.T, joinType plan.JoinType) (*plan.LogicalPlan, sql.ColumnRef, sql.ColumnRef) {
	t.Helper()
	t1 := mustTable(t, "t1", "c1")
	t2 := mustTable(t, "t2", "c3")
	left := plan.NewScan(t1)
	right := plan.NewScan(t2)
	c1, _ := t1.ColumnByName("c1")
	c3, _ := t2.ColumnByName("c3")
	on := expression.NewBinary(expression.Eq, expression.NewColumnRef(c1), expression.NewColumnRef(c3), types.TBoolean)
	join := plan.NewJoin(joinType, on, left, right)

	predLeft := expression.NewBinary(expression.Gt, expression.NewColumnRef(c1), expression.NewConstant(types.NewInt64(1)), types.TBoolean)
	predRight := expression.NewBinary(expression.Lt, expression.NewColumnRef(c3), expression.NewConstant(types.NewInt64(2)), types.TBoolean)
	predicate := expression.NewBinary(expression.And, predLeft, predRight, types.TBoolean)
	filter := plan.NewFilter(predicate, join)
	project := plan.NewProject([]expression.ScalarExpression{expression.NewColumnRef(c1), expression.NewColumnRef(c3)}, filter)
	return project, c1, c3
}

func TestPushPredicateThroughJoinInner(t *testing.T) {
	project, _, _ := buildJoinFilter(t, plan.InnerJoin)
	out := runBatchesOnce(t, project, PushPredicateThroughJoin{})

	// Both predicates pushed below the join; the Filter between the
	// Project and the Join is gone.
	require.Equal(t, plan.OpProject, out.Op)
	join := out.Children[0]
	require.Equal(t, plan.OpJoin, join.Op)
	assert.Equal(t, plan.OpFilter, join.Children[0].Op)
	assert.Equal(t, plan.OpFilter, join.Children[1].Op)
}

func TestPushPredicateThroughJoinLeft(t *testing.T) {
	project, _, _ := buildJoinFilter(t, plan.LeftJoin)
	out := runBatchesOnce(t, project, PushPredicateThroughJoin{})

	// Left-side predicate pushes below the left child; the right-side
	// predicate stays in a Filter between the Project and the join
	// (spec §4.5, §8 scenario 2).
	require.Equal(t, plan.OpProject, out.Op)
	filter := out.Children[0]
	require.Equal(t, plan.OpFilter, filter.Op)
	join := filter.Children[0]
	require.Equal(t, plan.OpJoin, join.Op)
	assert.Equal(t, plan.OpFilter, join.Children[0].Op)
	assert.Equal(t, plan.OpScan, join.Children[1].Op)
}

func TestPushPredicateThroughJoinRight(t *testing.T) {
	project, _, _ := buildJoinFilter(t, plan.RightJoin)
	out := runBatchesOnce(t, project, PushPredicateThroughJoin{})

	require.Equal(t, plan.OpProject, out.Op)
	filter := out.Children[0]
	require.Equal(t, plan.OpFilter, filter.Op)
	join := filter.Children[0]
	require.Equal(t, plan.OpJoin, join.Op)
	assert.Equal(t, plan.OpScan, join.Children[0].Op)
	assert.Equal(t, plan.OpFilter, join.Children[1].Op)
}

func TestPushPredicateIntoScanPopulatesIndexRange(t *testing.T) {
	tbl := mustTable(t, "t1", "c2")
	scan := plan.NewScan(tbl)
	colC2 := colExpr(t, tbl, "c2")
	inner := expression.NewBinary(expression.Minus, expression.NewConstant(types.NewInt64(1)), colC2, types.TBigint)
	neg := expression.NewUnary(expression.UnaryMinus, inner, types.TBigint)
	predicate := expression.NewBinary(expression.Gt, neg, expression.NewConstant(types.NewInt64(0)), types.TBoolean)
	filter := plan.NewFilter(predicate, scan)

	out := runBatchesOnce(t, filter, SimplifyFilter{}, PushPredicateIntoScan{})

	// The outer Filter must survive (spec §8: "never changes the result
	// multiset"); the Scan beneath it carries the narrowed range.
	require.Equal(t, plan.OpFilter, out.Op)
	scanOut := out.Children[0]
	require.Equal(t, plan.OpScan, scanOut.Op)
	params := scanOut.Params.(plan.ScanParams)
	require.Len(t, params.Indexes, 1)
	require.Len(t, params.Indexes[0].Ranges, 1)
	rng := params.Indexes[0].Ranges[0]
	assert.Equal(t, expression.Excluded, rng.Min.Kind)
	v, _ := rng.Min.Value.AsInt64()
	assert.EqualValues(t, 1, v)
	assert.Equal(t, expression.Unbounded, rng.Max.Kind)
}

func TestCombineFiltersMerges(t *testing.T) {
	tbl := mustTable(t, "t1", "a")
	scan := plan.NewScan(tbl)
	colA := colExpr(t, tbl, "a")
	inner := plan.NewFilter(expression.NewBinary(expression.Gt, colA, expression.NewConstant(types.NewInt64(1)), types.TBoolean), scan)
	outer := plan.NewFilter(expression.NewBinary(expression.Lt, colA, expression.NewConstant(types.NewInt64(10)), types.TBoolean), inner)

	out := runBatchesOnce(t, outer, CombineFilters{})
	require.Equal(t, plan.OpFilter, out.Op)
	require.Equal(t, plan.OpScan, out.Children[0].Op)
	pred := out.Params.(plan.FilterParams).Predicate
	b, ok := pred.(*expression.Binary)
	require.True(t, ok)
	assert.Equal(t, expression.And, b.Op)
}

func TestEliminateRedundantProject(t *testing.T) {
	tbl := mustTable(t, "t1", "a", "b")
	scan := plan.NewScan(tbl)
	colA := colExpr(t, tbl, "a")
	colB := colExpr(t, tbl, "b")
	proj := plan.NewProject([]expression.ScalarExpression{colA, colB}, scan)
	filter := plan.NewFilter(expression.NewConstant(types.NewBool(true)), proj)

	out := runBatchesOnce(t, filter, EliminateRedundantProject{})
	require.Equal(t, plan.OpFilter, out.Op)
	assert.Equal(t, plan.OpScan, out.Children[0].Op)
}
