package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

func boolConst(b bool) *Constant { return NewConstant(types.NewBool(b)) }

func testColumnRef(t *testing.T, name string, dt types.LogicalType) *ColumnRef {
	t.Helper()
	col := sql.NewColumn(name, true, sql.ColumnDesc{Datatype: dt})
	col.SetTableName("t")
	return NewColumnRef(col)
}

func TestSimplifyAndWithTrue(t *testing.T) {
	col := testColumnRef(t, "a", types.TBoolean)
	expr := NewBinary(And, col, boolConst(true), types.TBoolean)
	got := Simplify(expr)
	assert.Same(t, col, got)
}

func TestSimplifyAndWithFalseIsFalse(t *testing.T) {
	col := testColumnRef(t, "a", types.TBoolean)
	expr := NewBinary(And, col, boolConst(false), types.TBoolean)
	got := Simplify(expr)
	c, ok := got.(*Constant)
	require.True(t, ok)
	b, _ := c.Value.AsBool()
	assert.False(t, b)
}

func TestSimplifyOrWithFalse(t *testing.T) {
	col := testColumnRef(t, "a", types.TBoolean)
	expr := NewBinary(Or, col, boolConst(false), types.TBoolean)
	got := Simplify(expr)
	assert.Same(t, col, got)
}

func TestSimplifyOrWithTrueIsTrue(t *testing.T) {
	col := testColumnRef(t, "a", types.TBoolean)
	expr := NewBinary(Or, col, boolConst(true), types.TBoolean)
	got := Simplify(expr)
	c, ok := got.(*Constant)
	require.True(t, ok)
	b, _ := c.Value.AsBool()
	assert.True(t, b)
}

func TestSimplifyConstantArithmeticFolds(t *testing.T) {
	expr := NewBinary(Plus, NewConstant(types.NewInt64(1)), NewConstant(types.NewInt64(2)), types.TBigint)
	got := Simplify(expr)
	c, ok := got.(*Constant)
	require.True(t, ok)
	i, err := c.Value.AsInt64()
	require.NoError(t, err)
	assert.EqualValues(t, 3, i)
}

func TestSimplifyDoubleNot(t *testing.T) {
	col := testColumnRef(t, "a", types.TBoolean)
	expr := NewUnary(UnaryNot, NewUnary(UnaryNot, col, types.TBoolean), types.TBoolean)
	got := Simplify(expr)
	assert.Same(t, col, got)
}

func TestSimplifyNullPropagatesThroughArithmetic(t *testing.T) {
	expr := NewBinary(Plus, NewConstant(types.Null(types.TBigint)), NewConstant(types.NewInt64(2)), types.TBigint)
	got := Simplify(expr)
	c, ok := got.(*Constant)
	require.True(t, ok)
	assert.True(t, c.Value.IsNull())
}
