package sql

import (
	"sort"

	"github.com/talondb/talon/sql/types"
)

// IndexID identifies an index within a TableCatalog.
type IndexID = uint32

// IndexMeta describes one catalog index: a stable id, the columns it
// covers, a name, and whether it is unique/primary (spec §3).
type IndexMeta struct {
	ID        IndexID
	TableName string
	ColumnIDs []ColumnID
	Name      string
	IsUnique  bool
	IsPrimary bool
}

type IndexMetaRef = *IndexMeta

// TableCatalog owns the ordered column schema, a name index, and the
// list of declared indexes (spec §3). Grounded on original_source's
// catalog::table::TableCatalog, translated from BTreeMap-of-position
// to a Go map-of-position plus the SchemaRef slice as the source of
// truth for order.
type TableCatalog struct {
	Name       string
	columnIdx  map[string]int // name -> position in schema
	positionOf map[ColumnID]int
	schema     SchemaRef
	Indexes    []IndexMetaRef
}

// TableMeta is the durable record ANALYZE produces: the set of
// column-meta file paths it wrote, plus the table name (spec §6).
type TableMeta struct {
	TableName      string
	ColumnMetaPaths []string
}

func EmptyTableMeta(tableName string) TableMeta {
	return TableMeta{TableName: tableName}
}

// NewTableCatalog builds a table from an initial column list; it
// rejects an empty list (spec §4.2: ColumnsEmpty) and assigns column
// ids as it goes via AddColumn.
func NewTableCatalog(name string, columns []ColumnRef) (*TableCatalog, error) {
	if len(columns) == 0 {
		return nil, ErrColumnsEmpty.New()
	}
	t := &TableCatalog{
		Name:       name,
		columnIdx:  map[string]int{},
		positionOf: map[ColumnID]int{},
		schema:     SchemaRef{},
	}
	for _, col := range columns {
		if _, err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReloadTableCatalog rebuilds a TableCatalog from persisted columns
// and indexes (used when a storage backend restores catalog state).
func ReloadTableCatalog(name string, columns []ColumnRef, indexes []IndexMetaRef) (*TableCatalog, error) {
	t, err := NewTableCatalog(name, columns)
	if err != nil {
		return nil, err
	}
	t.Indexes = indexes
	return t, nil
}

// AddColumn appends a column, failing on a duplicate name (spec §4.2,
// §3 invariant ii). A column that already carries an id (a reload, or
// a rebuild that must preserve surviving columns' ids across a
// DropColumn) keeps it; otherwise it is assigned
// (max_id_so_far)+1, or 0 for the first column. Ids are therefore
// stable identifiers, not dense positions — storage/bolt keys stored
// row data by id, so a column's id must
// survive every catalog rebuild that keeps that column.
func (t *TableCatalog) AddColumn(col ColumnRef) (ColumnID, error) {
	if _, exists := t.columnIdx[col.Name()]; exists {
		return 0, ErrDuplicated.New("column", col.Name())
	}
	var nextID ColumnID
	if col.Summary.ID != nil {
		nextID = *col.Summary.ID
	} else if len(t.schema) > 0 {
		maxID := ColumnID(0)
		for id := range t.positionOf {
			if id > maxID {
				maxID = id
			}
		}
		nextID = maxID + 1
	}
	if _, exists := t.positionOf[nextID]; exists {
		return 0, ErrDuplicated.New("column id", col.Name())
	}
	col.Summary.TableName = t.Name
	col.Summary.ID = new(ColumnID)
	*col.Summary.ID = nextID

	t.columnIdx[col.Name()] = len(t.schema)
	t.positionOf[nextID] = len(t.schema)
	t.schema = append(t.schema, col)
	return nextID, nil
}

// AddIndexMeta appends a new index with a monotonically allocated id.
func (t *TableCatalog) AddIndexMeta(name string, columnIDs []ColumnID, isUnique, isPrimary bool) IndexMetaRef {
	var nextID IndexID
	if len(t.Indexes) > 0 {
		nextID = t.Indexes[len(t.Indexes)-1].ID + 1
	}
	idx := &IndexMeta{
		ID:        nextID,
		TableName: t.Name,
		ColumnIDs: columnIDs,
		Name:      name,
		IsUnique:  isUnique,
		IsPrimary: isPrimary,
	}
	t.Indexes = append(t.Indexes, idx)
	return idx
}

func (t *TableCatalog) ContainsColumn(name string) bool {
	_, ok := t.columnIdx[name]
	return ok
}

func (t *TableCatalog) ColumnByName(name string) (ColumnRef, bool) {
	pos, ok := t.columnIdx[name]
	if !ok {
		return nil, false
	}
	return t.schema[pos], true
}

func (t *TableCatalog) ColumnByID(id ColumnID) (ColumnRef, bool) {
	pos, ok := t.positionOf[id]
	if !ok {
		return nil, false
	}
	return t.schema[pos], true
}

func (t *TableCatalog) ColumnIDByName(name string) (ColumnID, bool) {
	col, ok := t.ColumnByName(name)
	if !ok {
		return 0, false
	}
	return col.ID()
}

func (t *TableCatalog) Columns() SchemaRef { return t.schema }

func (t *TableCatalog) SchemaRef() SchemaRef { return t.schema }

func (t *TableCatalog) ColumnsLen() int { return len(t.schema) }

// PrimaryKey returns the position and column of the table's primary
// key, failing with PrimaryKeyNotFound if none exists (spec §3: a
// table must have exactly one primary-key column before writes).
func (t *TableCatalog) PrimaryKey() (int, ColumnRef, error) {
	for i, col := range t.schema {
		if col.Desc.IsPrimary {
			return i, col, nil
		}
	}
	return 0, nil, ErrPrimaryKeyNotFound.New()
}

// GetUniqueIndex finds the unique index whose leading column is colID.
func (t *TableCatalog) GetUniqueIndex(colID ColumnID) (IndexMetaRef, bool) {
	for _, idx := range t.Indexes {
		if idx.IsUnique && len(idx.ColumnIDs) > 0 && idx.ColumnIDs[0] == colID {
			return idx, true
		}
	}
	return nil, false
}

// Types returns the declared LogicalType of every column, in schema
// order.
func (t *TableCatalog) Types() []types.LogicalType {
	out := make([]types.LogicalType, len(t.schema))
	for i, c := range t.schema {
		out[i] = c.Datatype()
	}
	return out
}

// sortedColumnIDs is a small helper used by callers that want a
// deterministic column-id iteration order (e.g. ANALYZE).
func (t *TableCatalog) sortedColumnIDs() []ColumnID {
	ids := make([]ColumnID, 0, len(t.positionOf))
	for id := range t.positionOf {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IndexedColumns returns every column flagged primary or unique, in
// column-id order — the set ANALYZE (C9) builds statistics for.
func (t *TableCatalog) IndexedColumns() []ColumnRef {
	var out []ColumnRef
	for _, id := range t.sortedColumnIDs() {
		col, _ := t.ColumnByID(id)
		if col.IsIndex() {
			out = append(out, col)
		}
	}
	return out
}
