package sql

import (
	"fmt"

	"github.com/talondb/talon/sql/types"
)

// ColumnID identifies a column within a TableCatalog (spec §3).
type ColumnID = uint32

// ColumnSummary is the identity half of a ColumnCatalog entry: an
// optional id (present only once installed in a table), a name, and
// an optional qualifying table name. Grounded on original_source's
// catalog::column::ColumnSummary.
type ColumnSummary struct {
	ID        *ColumnID
	Name      string
	TableName string // "" means unqualified
}

// ColumnDesc is the descriptor half: datatype, key flags, and an
// optional default value.
type ColumnDesc struct {
	Datatype  types.LogicalType
	IsPrimary bool
	IsUnique  bool
	Default   *types.Value
}

// IsIndex reports whether this column backs a catalog index (spec §3
// invariant iii: is_primary ⇒ is_unique ⇒ desc.is_index()).
func (d ColumnDesc) IsIndex() bool { return d.IsPrimary || d.IsUnique }

// ColumnCatalog is one column's full catalog entry. ColumnRef values
// are shared immutably once installed in a TableCatalog (spec §3:
// "Catalog objects ... are shared immutable after construction").
type ColumnCatalog struct {
	Summary  ColumnSummary
	Nullable bool
	Desc     ColumnDesc
}

// ColumnRef is the shared-ownership handle plan nodes and tuples carry.
type ColumnRef = *ColumnCatalog

// NewColumn constructs an unattached column (no id, no table) ready to
// be added to a TableCatalog.
func NewColumn(name string, nullable bool, desc ColumnDesc) ColumnRef {
	return &ColumnCatalog{
		Summary:  ColumnSummary{Name: name},
		Nullable: nullable,
		Desc:     desc,
	}
}

// NewDummyColumn builds a synthetic nullable Varchar column with no id
// or owning table, used to describe a result row whose content is not
// a real table column (e.g. ANALYZE's "COLUMN_META_PATH" output row).
// Grounded on original_source's ColumnCatalog::new_dummy.
func NewDummyColumn(name string) ColumnRef {
	return &ColumnCatalog{
		Summary:  ColumnSummary{Name: name},
		Nullable: true,
		Desc:     ColumnDesc{Datatype: types.NewVarchar(-1)},
	}
}

// ID returns the column's id and whether it has been assigned (spec
// §3 invariant i).
func (c *ColumnCatalog) ID() (ColumnID, bool) {
	if c.Summary.ID == nil {
		return 0, false
	}
	return *c.Summary.ID, true
}

func (c *ColumnCatalog) Name() string { return c.Summary.Name }

// FullName prints "table.column" when qualified, else just "column".
func (c *ColumnCatalog) FullName() string {
	if c.Summary.TableName != "" {
		return fmt.Sprintf("%s.%s", c.Summary.TableName, c.Summary.Name)
	}
	return c.Summary.Name
}

func (c *ColumnCatalog) TableName() (string, bool) {
	if c.Summary.TableName == "" {
		return "", false
	}
	return c.Summary.TableName, true
}

func (c *ColumnCatalog) SetTableName(name string) { c.Summary.TableName = name }

func (c *ColumnCatalog) Datatype() types.LogicalType { return c.Desc.Datatype }

func (c *ColumnCatalog) DefaultValue() *types.Value { return c.Desc.Default }

func (c *ColumnCatalog) IsIndex() bool { return c.Desc.IsIndex() }

// IsValidIdentifier reports whether s is a legal unquoted SQL
// identifier: non-empty, letters/digits/underscore, first character
// non-digit (spec §4.2).
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		if i == 0 && isDigit {
			return false
		}
		if !isDigit && !isAlpha {
			return false
		}
	}
	return true
}
