package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cast"
)

// Value is a tagged union over LogicalType with an explicit null
// variant per type (spec §3). It is immutable once constructed;
// multiple ScalarExpression/Tuple owners may share the same Value.
type Value struct {
	typ  LogicalType
	null bool
	data interface{}
}

// Type returns the value's declared LogicalType.
func (v Value) Type() LogicalType { return v.typ }

// IsNull is tag-free: it only inspects the null flag, never the
// underlying data (spec §3 invariant).
func (v Value) IsNull() bool { return v.null }

// Raw returns the underlying Go representation, or nil if the value is
// null. Callers that need a specific type should use the As* helpers.
func (v Value) Raw() interface{} {
	if v.null {
		return nil
	}
	return v.data
}

// Null constructs the null value of the given logical type.
func Null(t LogicalType) Value { return Value{typ: t, null: true} }

func NewBool(b bool) Value       { return Value{typ: TBoolean, data: b} }
func NewInt8(i int8) Value       { return Value{typ: TTinyint, data: i} }
func NewUint8(i uint8) Value     { return Value{typ: TUTinyint, data: i} }
func NewInt16(i int16) Value     { return Value{typ: TSmallint, data: i} }
func NewUint16(i uint16) Value   { return Value{typ: TUSmallint, data: i} }
func NewInt32(i int32) Value     { return Value{typ: TInteger, data: i} }
func NewUint32(i uint32) Value   { return Value{typ: TUInteger, data: i} }
func NewInt64(i int64) Value     { return Value{typ: TBigint, data: i} }
func NewUint64(i uint64) Value   { return Value{typ: TUBigint, data: i} }
func NewFloat32(f float32) Value { return Value{typ: TFloat, data: f} }
func NewFloat64(f float64) Value { return Value{typ: TDouble, data: f} }

// Decimal is represented as an unscaled big.Int with an explicit
// scale: value = Unscaled / 10^Scale. big.Int/Rat are standard library
// — no example repo in the corpus carries an arbitrary-precision
// decimal dependency (e.g. shopspring/decimal never appears in any
// go.mod in the retrieval pack), so this is a stdlib fallback.
type DecimalValue struct {
	Unscaled *big.Int
	Scale    uint8
}

func NewDecimalValue(unscaled *big.Int, precision, scale uint8) Value {
	return Value{typ: NewDecimal(precision, scale), data: DecimalValue{Unscaled: unscaled, Scale: scale}}
}

func NewVarcharValue(s string, maxlen int) Value {
	return Value{typ: NewVarchar(maxlen), data: s}
}

func NewDate(t time.Time) Value {
	y, m, d := t.Date()
	return Value{typ: TDate, data: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func NewDateTime(t time.Time) Value {
	return Value{typ: TDateTime, data: t}
}

func (v Value) AsBool() (bool, bool)         { b, ok := v.data.(bool); return b, ok }
func (v Value) AsString() (string, bool)     { s, ok := v.data.(string); return s, ok }
func (v Value) AsTime() (time.Time, bool)    { t, ok := v.data.(time.Time); return t, ok }
func (v Value) AsDecimal() (DecimalValue, bool) {
	d, ok := v.data.(DecimalValue)
	return d, ok
}

// AsInt64 widens any integer/float/decimal/bool value to an int64
// using cast, the teacher's direct dependency for ad-hoc numeric
// coercion.
func (v Value) AsInt64() (int64, error) {
	if v.null {
		return 0, fmt.Errorf("value is null")
	}
	if d, ok := v.data.(DecimalValue); ok {
		q := new(big.Int).Quo(d.Unscaled, pow10(d.Scale))
		return q.Int64(), nil
	}
	return cast.ToInt64E(v.data)
}

// AsFloat64 widens any numeric value to a float64 via cast.
func (v Value) AsFloat64() (float64, error) {
	if v.null {
		return 0, fmt.Errorf("value is null")
	}
	if d, ok := v.data.(DecimalValue); ok {
		f := new(big.Float).SetInt(d.Unscaled)
		f.Quo(f, new(big.Float).SetInt(pow10(d.Scale)))
		out, _ := f.Float64()
		return out, nil
	}
	return cast.ToFloat64E(v.data)
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// CoerceTo converts v to the target logical type using spf13/cast for
// the numeric/string conversions; this backs both TypeCast expression
// evaluation and the assignability check a Tuple's invariant requires
// (spec §3: "each value's type is assignable to the corresponding
// column's declared type").
func (v Value) CoerceTo(target LogicalType) (Value, error) {
	if v.null {
		return Null(target), nil
	}
	if v.typ.ID == target.ID && v.typ.ID != Decimal && v.typ.ID != Varchar {
		return v, nil
	}
	switch target.ID {
	case Boolean:
		b, err := cast.ToBoolE(v.data)
		if err != nil {
			return Value{}, err
		}
		return NewBool(b), nil
	case Tinyint:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewInt8(int8(i)), nil
	case UTinyint:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewUint8(uint8(i)), nil
	case Smallint:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewInt16(int16(i)), nil
	case USmallint:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewUint16(uint16(i)), nil
	case Integer:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewInt32(int32(i)), nil
	case UInteger:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewUint32(uint32(i)), nil
	case Bigint:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewInt64(i), nil
	case UBigint:
		i, err := v.AsInt64()
		if err != nil {
			return Value{}, err
		}
		return NewUint64(uint64(i)), nil
	case Float:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		return NewFloat32(float32(f)), nil
	case Double:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		return NewFloat64(f), nil
	case Decimal:
		f, err := v.AsFloat64()
		if err != nil {
			return Value{}, err
		}
		scaled := new(big.Float).Mul(big.NewFloat(f), new(big.Float).SetInt(pow10(target.Scale)))
		unscaled, _ := scaled.Int(nil)
		return NewDecimalValue(unscaled, target.Precision, target.Scale), nil
	case Varchar:
		s, err := cast.ToStringE(v.data)
		if err != nil {
			return Value{}, err
		}
		return NewVarcharValue(s, target.MaxLen), nil
	case Date:
		t, err := castToTime(v)
		if err != nil {
			return Value{}, err
		}
		return NewDate(t), nil
	case DateTime:
		t, err := castToTime(v)
		if err != nil {
			return Value{}, err
		}
		return NewDateTime(t), nil
	default:
		return Value{}, fmt.Errorf("cannot coerce %s to %s", v.typ, target)
	}
}

func castToTime(v Value) (time.Time, error) {
	if t, ok := v.AsTime(); ok {
		return t, nil
	}
	if s, ok := v.AsString(); ok {
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return cast.ToTimeE(v.data)
}

// Compare implements the total binary comparison spec §3 requires.
// A null sorts before every non-null value and compares equal to
// another null; comparisons that must treat a null operand as unknown
// check IsNull first instead of calling Compare.
func (v Value) Compare(other Value) (int, error) {
	if v.null || other.null {
		switch {
		case v.null && other.null:
			return 0, nil
		case v.null:
			return -1, nil
		default:
			return 1, nil
		}
	}
	target, ok := Coerce(v.typ, other.typ)
	if !ok {
		if v.typ.ID == other.typ.ID {
			target = v.typ
		} else {
			return 0, fmt.Errorf("type mismatch: cannot compare %s and %s", v.typ, other.typ)
		}
	}
	a, err := v.CoerceTo(target)
	if err != nil {
		return 0, err
	}
	b, err := other.CoerceTo(target)
	if err != nil {
		return 0, err
	}
	switch target.ID {
	case Varchar:
		as, _ := a.AsString()
		bs, _ := b.AsString()
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	case Date, DateTime:
		at, _ := a.AsTime()
		bt, _ := b.AsTime()
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		default:
			return 0, nil
		}
	case Decimal:
		ad, _ := a.AsDecimal()
		bd, _ := b.AsDecimal()
		return ad.Unscaled.Cmp(bd.Unscaled), nil
	case Boolean:
		ab, _ := a.AsBool()
		bb, _ := b.AsBool()
		switch {
		case ab == bb:
			return 0, nil
		case !ab:
			return -1, nil
		default:
			return 1, nil
		}
	default:
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
}

// Equal reports value equality, null-safe (two nulls compare equal
// here; SQL three-valued-logic equality is implemented one layer up
// in sql/expression, which special-cases IsNull before calling this).
func (v Value) Equal(other Value) bool {
	c, err := v.Compare(other)
	return err == nil && c == 0
}

func (v Value) String() string {
	if v.null {
		return "NULL"
	}
	switch d := v.data.(type) {
	case DecimalValue:
		return new(big.Rat).SetFrac(d.Unscaled, pow10(d.Scale)).FloatString(int(d.Scale))
	case time.Time:
		if v.typ.ID == Date {
			return d.Format("2006-01-02")
		}
		return d.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", d)
	}
}
