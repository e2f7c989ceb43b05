// Package types implements talon's logical type system (LogicalType)
// and value model (Value): a closed set of SQL scalar types with a
// total comparison order and pairwise coercion.
package types

import "fmt"

// ID is the closed set of logical type kinds a column or expression
// may carry.
type ID uint8

const (
	Invalid ID = iota
	Boolean
	Tinyint
	UTinyint
	Smallint
	USmallint
	Integer
	UInteger
	Bigint
	UBigint
	Float
	Double
	Decimal
	Varchar
	Date
	DateTime
)

func (id ID) String() string {
	switch id {
	case Boolean:
		return "BOOLEAN"
	case Tinyint:
		return "TINYINT"
	case UTinyint:
		return "TINYINT UNSIGNED"
	case Smallint:
		return "SMALLINT"
	case USmallint:
		return "SMALLINT UNSIGNED"
	case Integer:
		return "INTEGER"
	case UInteger:
		return "INTEGER UNSIGNED"
	case Bigint:
		return "BIGINT"
	case UBigint:
		return "BIGINT UNSIGNED"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Decimal:
		return "DECIMAL"
	case Varchar:
		return "VARCHAR"
	case Date:
		return "DATE"
	case DateTime:
		return "DATETIME"
	default:
		return "INVALID"
	}
}

// LogicalType is a closed, immutable description of a scalar SQL type.
// Precision/Scale are only meaningful for Decimal; MaxLen only for
// Varchar (-1 means unbounded).
type LogicalType struct {
	ID        ID
	Precision uint8
	Scale     uint8
	MaxLen    int
}

func (t LogicalType) String() string {
	switch t.ID {
	case Decimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case Varchar:
		if t.MaxLen < 0 {
			return "VARCHAR"
		}
		return fmt.Sprintf("VARCHAR(%d)", t.MaxLen)
	default:
		return t.ID.String()
	}
}

// Convenience singletons for the fixed-shape types.
var (
	TBoolean  = LogicalType{ID: Boolean}
	TTinyint  = LogicalType{ID: Tinyint}
	TUTinyint = LogicalType{ID: UTinyint}
	TSmallint = LogicalType{ID: Smallint}
	TUSmallint = LogicalType{ID: USmallint}
	TInteger  = LogicalType{ID: Integer}
	TUInteger = LogicalType{ID: UInteger}
	TBigint   = LogicalType{ID: Bigint}
	TUBigint  = LogicalType{ID: UBigint}
	TFloat    = LogicalType{ID: Float}
	TDouble   = LogicalType{ID: Double}
	TDate     = LogicalType{ID: Date}
	TDateTime = LogicalType{ID: DateTime}
	TInvalid  = LogicalType{ID: Invalid}
)

// NewDecimal builds a Decimal(precision,scale) logical type.
func NewDecimal(precision, scale uint8) LogicalType {
	return LogicalType{ID: Decimal, Precision: precision, Scale: scale}
}

// NewVarchar builds a Varchar(maxlen) logical type; maxlen < 0 means
// unbounded.
func NewVarchar(maxlen int) LogicalType {
	return LogicalType{ID: Varchar, MaxLen: maxlen}
}

// rank gives every type kind a position in the type's total comparison
// order: integers widen left-to-right by width and signedness, then
// float widens to double, then decimal, then the non-numeric kinds.
// Coercion between two types always targets whichever of the two has
// the larger rank, which keeps pairwise coercion associative for any
// chain of numeric types.
var rankOf = map[ID]int{
	Boolean:    0,
	Tinyint:    1,
	UTinyint:   2,
	Smallint:   3,
	USmallint:  4,
	Integer:    5,
	UInteger:   6,
	Bigint:     7,
	UBigint:    8,
	Float:      9,
	Double:     10,
	Decimal:    11,
	Varchar:    12,
	Date:       13,
	DateTime:   14,
	Invalid:    -1,
}

// Rank returns this type's position in the total comparison order.
func (t LogicalType) Rank() int { return rankOf[t.ID] }

// IsNumeric reports whether the type participates in arithmetic
// coercion (Boolean through Decimal).
func (t LogicalType) IsNumeric() bool {
	return t.ID >= Boolean && t.ID <= Decimal
}

// IsInteger reports whether the type is one of the fixed-width integer
// kinds (Boolean excluded).
func (t LogicalType) IsInteger() bool {
	return t.ID >= Tinyint && t.ID <= UBigint
}

// Coerce returns the common type two operands must be converted to
// before they may be compared or combined, or ok=false if the pair has
// no defined coercion (spec §3: "coercion is defined pairwise and must
// be associative where transitively defined").
func Coerce(a, b LogicalType) (LogicalType, bool) {
	if a.ID == Invalid || b.ID == Invalid {
		return TInvalid, false
	}
	if a.ID == b.ID {
		if a.ID == Decimal {
			p, s := a.Precision, a.Scale
			if b.Precision > p {
				p = b.Precision
			}
			if b.Scale > s {
				s = b.Scale
			}
			return NewDecimal(p, s), true
		}
		if a.ID == Varchar {
			if a.MaxLen < 0 || b.MaxLen < 0 {
				return NewVarchar(-1), true
			}
			if b.MaxLen > a.MaxLen {
				return b, true
			}
			return a, true
		}
		return a, true
	}
	// Varchar/Date/DateTime never silently coerce against a numeric
	// type or each other; callers must TypeCast explicitly.
	if !a.IsNumeric() || !b.IsNumeric() {
		return TInvalid, false
	}
	if a.Rank() >= b.Rank() {
		if a.ID == Decimal {
			return a, true
		}
		return a, true
	}
	if b.ID == Decimal {
		return b, true
	}
	return b, true
}
