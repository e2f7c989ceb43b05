package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

func newTestTable(t *testing.T) (*sql.TableCatalog, sql.ColumnRef) {
	t.Helper()
	col := sql.NewColumn("c2", false, sql.ColumnDesc{Datatype: types.TBigint, IsPrimary: true, IsUnique: true})
	tbl, err := sql.NewTableCatalog("t1", []sql.ColumnRef{col})
	require.NoError(t, err)
	c, _ := tbl.ColumnByName("c2")
	return tbl, c
}

// scenario4Predicate builds -(1 - c2) > 0 the way scenario 4 of spec §8 does.
func scenario4Predicate(col sql.ColumnRef) ScalarExpression {
	colRef := NewColumnRef(col)
	inner := NewBinary(Minus, NewConstant(types.NewInt64(1)), colRef, types.TBigint)
	neg := NewUnary(UnaryMinus, inner, types.TBigint)
	return NewBinary(Gt, neg, NewConstant(types.NewInt64(0)), types.TBoolean)
}

func TestConvertBinaryEquality(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	expr := NewBinary(Eq, NewColumnRef(col), NewConstant(types.NewInt64(5)), types.TBoolean)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	require.NotNil(t, cb)
	require.NotNil(t, cb.Scope)
	assert.Equal(t, Included, cb.Scope.Min.Kind)
	assert.Equal(t, Included, cb.Scope.Max.Kind)
}

func TestConvertBinaryLiteralOnLeftFlips(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	// 5 < c2  =>  c2 > 5
	expr := NewBinary(Lt, NewConstant(types.NewInt64(5)), NewColumnRef(col), types.TBoolean)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	require.NotNil(t, cb)
	require.NotNil(t, cb.Scope)
	assert.Equal(t, Excluded, cb.Scope.Min.Kind)
	assert.Equal(t, Unbounded, cb.Scope.Max.Kind)
}

func TestConvertBinaryAndNarrowsRange(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	gt := NewBinary(Gt, NewColumnRef(col), NewConstant(types.NewInt64(1)), types.TBoolean)
	lt := NewBinary(Lt, NewColumnRef(col), NewConstant(types.NewInt64(10)), types.TBoolean)
	expr := NewBinary(And, gt, lt, types.TBoolean)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	require.NotNil(t, cb)
	require.NotNil(t, cb.Scope)
	assert.Equal(t, Excluded, cb.Scope.Min.Kind)
	v, _ := cb.Scope.Min.Value.AsInt64()
	assert.EqualValues(t, 1, v)
	assert.Equal(t, Excluded, cb.Scope.Max.Kind)
	hv, _ := cb.Scope.Max.Value.AsInt64()
	assert.EqualValues(t, 10, hv)
}

func TestConvertBinaryScenario4NegatedSubtraction(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	predicate := Simplify(scenario4Predicate(col))
	cb, err := ConvertBinary(predicate, tbl.Name, id)
	require.NoError(t, err)
	require.NotNil(t, cb)
	require.NotNil(t, cb.Scope)
	assert.Equal(t, Excluded, cb.Scope.Min.Kind)
	v, _ := cb.Scope.Min.Value.AsInt64()
	assert.EqualValues(t, 1, v)
	assert.Equal(t, Unbounded, cb.Scope.Max.Kind)
}

func TestConvertBinaryOrUnreducedSideFails(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	eq := NewBinary(Eq, NewColumnRef(col), NewConstant(types.NewInt64(1)), types.TBoolean)
	like := NewBinary(Like, NewColumnRef(col), NewConstant(types.NewVarcharValue("x", -1)), types.TBoolean)
	expr := NewBinary(Or, eq, like, types.TBoolean)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	assert.Nil(t, cb)
}

func TestConvertBinaryIn(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	expr := NewIn(NewColumnRef(col), []ScalarExpression{
		NewConstant(types.NewInt64(1)),
		NewConstant(types.NewInt64(2)),
		NewConstant(types.NewInt64(3)),
	}, false)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	require.NotNil(t, cb)
	scopes, err := cb.Rearrange()
	require.NoError(t, err)
	assert.Len(t, scopes, 3)
}

func TestConvertBinaryBetween(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	expr := NewBetween(NewColumnRef(col), NewConstant(types.NewInt64(1)), NewConstant(types.NewInt64(10)), false)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	require.NotNil(t, cb)
	require.NotNil(t, cb.Scope)
	assert.Equal(t, Included, cb.Scope.Min.Kind)
	assert.Equal(t, Included, cb.Scope.Max.Kind)
}

func TestConvertBinaryNotEqDoesNotReduce(t *testing.T) {
	tbl, col := newTestTable(t)
	id, _ := col.ID()
	expr := NewBinary(NotEq, NewColumnRef(col), NewConstant(types.NewInt64(1)), types.TBoolean)
	cb, err := ConvertBinary(expr, tbl.Name, id)
	require.NoError(t, err)
	assert.Nil(t, cb)
}

func TestRearrangeTautologyIsEmpty(t *testing.T) {
	b := NewScopeBinary(UnboundedBound(), UnboundedBound())
	scopes, err := b.Rearrange()
	require.NoError(t, err)
	assert.Empty(t, scopes)
}

func TestRearrangeMergesOverlapping(t *testing.T) {
	a := NewScopeBinary(IncludedBound(types.NewInt64(1)), IncludedBound(types.NewInt64(5)))
	b := NewScopeBinary(IncludedBound(types.NewInt64(4)), IncludedBound(types.NewInt64(10)))
	or := NewOrBinary([]ConstantBinary{a, b})
	scopes, err := or.Rearrange()
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	lo, _ := scopes[0].Min.Value.AsInt64()
	hi, _ := scopes[0].Max.Value.AsInt64()
	assert.EqualValues(t, 1, lo)
	assert.EqualValues(t, 10, hi)
}
