package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueCompare(t *testing.T) {
	require := require.New(t)

	cases := []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", NewInt64(1), NewInt64(2), -1},
		{"int equal", NewInt64(5), NewInt64(5), 0},
		{"int greater", NewInt64(9), NewInt64(2), 1},
		{"mixed numeric", NewInt32(3), NewFloat64(3.0), 0},
		{"varchar order", NewVarcharValue("abc", -1), NewVarcharValue("abd", -1), -1},
		{"null sorts low", Null(TInteger), NewInt64(0), -1},
		{"null equal null", Null(TInteger), Null(TInteger), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.a.Compare(c.b)
			require.NoError(err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, NewInt64(4).Equal(NewInt64(4)))
	assert.False(t, NewInt64(4).Equal(NewInt64(5)))
	assert.True(t, Null(TInteger).Equal(Null(TBigint)))
}

func TestValueIsNull(t *testing.T) {
	assert.True(t, Null(NewVarchar(-1)).IsNull())
	assert.False(t, NewVarcharValue("", -1).IsNull())
}

func TestValueCoerceTo(t *testing.T) {
	require := require.New(t)

	v, err := NewVarcharValue("42", -1).CoerceTo(TInteger)
	require.NoError(err)
	i, err := v.AsInt64()
	require.NoError(err)
	assert.EqualValues(t, 42, i)

	v, err = NewInt64(7).CoerceTo(NewVarchar(-1))
	require.NoError(err)
	s, ok := v.AsString()
	require.True(ok)
	assert.Equal(t, "7", s)
}

func TestValueRawAndString(t *testing.T) {
	assert.Nil(t, Null(TInteger).Raw())
	assert.Equal(t, int64(3), NewInt64(3).Raw())
	assert.Equal(t, "NULL", Null(TInteger).String())
}

func TestCoerce(t *testing.T) {
	target, ok := Coerce(TInteger, TBigint)
	require.True(t, ok)
	assert.Equal(t, Bigint, target.ID)

	_, ok = Coerce(TInteger, TInteger)
	assert.True(t, ok)
}
