package boltstore

import (
	"fmt"

	bolt "github.com/boltdb/bolt"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/expression"
	"github.com/talondb/talon/sql/types"
)

type cachedSchema struct {
	table *sql.TableCatalog
}

// Transaction is talon's concrete sql.Transaction (C8), backed by one
// boltdb *bolt.Tx. Table catalogs are cached for the transaction's
// lifetime once loaded, since sql.TableCatalog is documented as
// "shared immutable after construction" (spec §5) — a cached pointer
// is safe to hand to the binder/optimizer/executor without re-reading
// bolt on every lookup.
type Transaction struct {
	tx      *bolt.Tx
	schemas map[string]*cachedSchema
}

var _ sql.Transaction = (*Transaction)(nil)

func rowsBucketName(table string) []byte { return []byte("rows:" + table) }
func indexBucketName(table string, indexID sql.IndexID) []byte {
	return []byte(fmt.Sprintf("idx:%s:%d", table, indexID))
}

// Table implements sql.Catalog.
func (t *Transaction) Table(name string) (*sql.TableCatalog, bool) {
	if cached, ok := t.schemas[name]; ok {
		return cached.table, true
	}
	b := t.tx.Bucket(catalogBucket)
	data := b.Get([]byte(name))
	if data == nil {
		return nil, false
	}
	table, err := decodeSchema(data)
	if err != nil {
		return nil, false
	}
	t.schemas[name] = &cachedSchema{table: table}
	return table, true
}

// Tables lists every table name in the catalog, in no particular
// order — backs SHOW TABLES (spec §4.3).
func (t *Transaction) Tables() []string {
	var out []string
	b := t.tx.Bucket(catalogBucket)
	_ = b.ForEach(func(k, v []byte) error {
		out = append(out, string(k))
		return nil
	})
	return out
}

func (t *Transaction) putSchema(table *sql.TableCatalog) error {
	data, err := encodeSchema(table)
	if err != nil {
		return err
	}
	delete(t.schemas, table.Name)
	return t.tx.Bucket(catalogBucket).Put([]byte(table.Name), data)
}

// Read opens a cursor over the table's rows bucket, honoring bounds as
// a seek-and-stop range when it carries an expression.ScopeList (spec
// §4.6: IndexScan's decorated ConstantBinary ranges); a nil or empty
// bounds scans the whole bucket in primary-key order (spec §5).
func (t *Transaction) Read(table string, bounds sql.Bounds, projection []sql.ColumnID) (sql.TupleIterator, error) {
	cat, ok := t.Table(table)
	if !ok {
		return nil, sql.ErrInvalidTable.New(table)
	}
	b := t.tx.Bucket(rowsBucketName(table))
	if b == nil {
		return nil, sql.ErrInvalidTable.New(table)
	}
	schema := projectedSchema(cat.Columns(), projection)

	var scopes expression.ScopeList
	if sl, ok := bounds.(expression.ScopeList); ok {
		scopes = sl
	}
	return newTableIter(b.Cursor(), cat.Columns(), schema, scopes), nil
}

func projectedSchema(full sql.SchemaRef, projection []sql.ColumnID) sql.SchemaRef {
	if len(projection) == 0 {
		return full
	}
	want := map[sql.ColumnID]bool{}
	for _, id := range projection {
		want[id] = true
	}
	out := make(sql.SchemaRef, 0, len(projection))
	for _, c := range full {
		if id, ok := c.ID(); ok && want[id] {
			out = append(out, c)
		}
	}
	return out
}

// Append implements the Insert/Update contract's durable write step
// (spec §4.6): overwrite=false rejects an existing primary key with
// DuplicateKey; overwrite=true replaces it.
func (t *Transaction) Append(table string, tuple sql.Tuple, overwrite bool) error {
	cat, ok := t.Table(table)
	if !ok {
		return sql.ErrInvalidTable.New(table)
	}
	if tuple.ID == nil {
		return sql.ErrInternalStorage.New("append: tuple has no primary key value")
	}
	b := t.tx.Bucket(rowsBucketName(table))
	key := orderedKey(*tuple.ID)
	if !overwrite && b.Get(key) != nil {
		return sql.ErrDuplicateKey.New("PRIMARY", tuple.ID.String())
	}
	data, err := encodeRow(cat.Columns(), tuple.Values)
	if err != nil {
		return sql.ErrSerialization.New(err.Error())
	}
	return b.Put(key, data)
}

func (t *Transaction) Delete(table string, tupleID types.Value) error {
	b := t.tx.Bucket(rowsBucketName(table))
	if b == nil {
		return sql.ErrInvalidTable.New(table)
	}
	return b.Delete(orderedKey(tupleID))
}

// AddIndex maintains one unique/secondary index entry (spec §4.6
// Insert contract step (a)). Unique indexes reject an existing key
// with DuplicateKey; non-unique indexes append the tuple id to the
// key's id list.
func (t *Transaction) AddIndex(table string, index sql.Index, tupleIDs []types.Value, isUnique bool) error {
	b, err := t.tx.CreateBucketIfNotExists(indexBucketName(table, index.ID))
	if err != nil {
		return err
	}
	key := compositeKey(index.ColumnValues)
	existing := b.Get(key)
	if isUnique {
		if existing != nil {
			return sql.ErrDuplicateKey.New(fmt.Sprintf("index:%d", index.ID), fmt.Sprint(index.ColumnValues))
		}
		return b.Put(key, encodeTupleIDs(tupleIDs))
	}
	merged := append(decodeTupleIDs(existing), tupleIDs...)
	return b.Put(key, encodeTupleIDs(merged))
}

// DelIndex removes tupleID from the entry at index's key, deleting the
// key entirely once its id list is empty.
func (t *Transaction) DelIndex(table string, index sql.Index, tupleID types.Value) error {
	b := t.tx.Bucket(indexBucketName(table, index.ID))
	if b == nil {
		return nil
	}
	key := compositeKey(index.ColumnValues)
	ids := decodeTupleIDs(b.Get(key))
	var kept []types.Value
	for _, id := range ids {
		if !id.Equal(tupleID) {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return b.Delete(key)
	}
	return b.Put(key, encodeTupleIDs(kept))
}

// CreateTable installs a new catalog entry and its (initially empty)
// rows bucket (spec §4.2: rejects an empty column list via
// sql.NewTableCatalog). Every column flagged primary or unique gets a
// corresponding IndexMeta (spec §3 invariant iii), derived here rather
// than by the binder since index ids are a storage-catalog concern.
func (t *Transaction) CreateTable(name string, columns []sql.ColumnRef) (*sql.TableCatalog, error) {
	if _, exists := t.Table(name); exists {
		return nil, sql.ErrDuplicated.New("table", name)
	}
	table, err := sql.NewTableCatalog(name, columns)
	if err != nil {
		return nil, err
	}
	if _, _, err := table.PrimaryKey(); err != nil {
		return nil, err
	}
	installIndexes(table)
	if err := t.putSchema(table); err != nil {
		return nil, err
	}
	if _, err := t.tx.CreateBucketIfNotExists(rowsBucketName(name)); err != nil {
		return nil, err
	}
	return table, nil
}

// installIndexes adds an IndexMeta for every column declared primary
// or unique that doesn't already have one, naming the primary index
// "PRIMARY" (matching SQL convention) and secondary unique indexes
// "<column>_unique".
func installIndexes(table *sql.TableCatalog) {
	for _, col := range table.Columns() {
		id, ok := col.ID()
		if !ok || !col.IsIndex() {
			continue
		}
		if _, exists := table.GetUniqueIndex(id); exists {
			continue
		}
		if col.Desc.IsPrimary {
			idx := table.AddIndexMeta("PRIMARY", []sql.ColumnID{id}, true, true)
			idx.IsPrimary = true
		} else {
			table.AddIndexMeta(col.Name()+"_unique", []sql.ColumnID{id}, true, false)
		}
	}
}

func (t *Transaction) DropTable(name string) error {
	cat, ok := t.Table(name)
	if !ok {
		return sql.ErrInvalidTable.New(name)
	}
	delete(t.schemas, name)
	for _, idx := range cat.Indexes {
		if t.tx.Bucket(indexBucketName(name, idx.ID)) != nil {
			if err := t.tx.DeleteBucket(indexBucketName(name, idx.ID)); err != nil {
				return err
			}
		}
	}
	if err := t.tx.Bucket(catalogBucket).Delete([]byte(name)); err != nil {
		return err
	}
	return t.tx.DeleteBucket(rowsBucketName(name))
}

// AddColumn appends a column to the stored schema; existing rows are
// left untouched on disk — decodeRow fills any column id missing from
// a stored row with that column's null/default at read time, so a
// retroactive rewrite of every row is unnecessary.
func (t *Transaction) AddColumn(table string, column sql.ColumnRef, ifNotExists bool) (sql.ColumnID, error) {
	cat, ok := t.Table(table)
	if !ok {
		return 0, sql.ErrInvalidTable.New(table)
	}
	if cat.ContainsColumn(column.Name()) {
		if ifNotExists {
			id, _ := cat.ColumnIDByName(column.Name())
			return id, nil
		}
		return 0, sql.ErrDuplicated.New("column", column.Name())
	}
	id, err := cat.AddColumn(column)
	if err != nil {
		return 0, err
	}
	installIndexes(cat)
	return id, t.putSchema(cat)
}

// DropColumn rebuilds the catalog without the named column. The
// column's stored values simply become unreferenced entries in each
// row's map — harmless, and cleaned up the next time the row is
// rewritten by an Update.
func (t *Transaction) DropColumn(table string, columnName string, ifExists bool) error {
	cat, ok := t.Table(table)
	if !ok {
		return sql.ErrInvalidTable.New(table)
	}
	if !cat.ContainsColumn(columnName) {
		if ifExists {
			return nil
		}
		return sql.ErrInvalidColumn.New(columnName)
	}
	dropped, _ := cat.ColumnByName(columnName)
	droppedID, _ := dropped.ID()

	var kept []sql.ColumnRef
	for _, c := range cat.Columns() {
		if c.Name() != columnName {
			col := *c // id preserved deliberately: row data on disk is keyed by column id
			kept = append(kept, &col)
		}
	}
	rebuilt, err := sql.NewTableCatalog(cat.Name, kept)
	if err != nil {
		return err
	}
	for _, idx := range cat.Indexes {
		if len(idx.ColumnIDs) == 1 && idx.ColumnIDs[0] == droppedID {
			if t.tx.Bucket(indexBucketName(table, idx.ID)) != nil {
				if err := t.tx.DeleteBucket(indexBucketName(table, idx.ID)); err != nil {
					return err
				}
			}
			continue
		}
		rebuilt.Indexes = append(rebuilt.Indexes, idx)
	}
	return t.putSchema(rebuilt)
}

func (t *Transaction) SaveTableMeta(meta sql.TableMeta) error {
	data, err := yamlMarshalTableMeta(meta)
	if err != nil {
		return err
	}
	return t.tx.Bucket(statsBucket).Put([]byte(meta.TableName), data)
}

func (t *Transaction) LoadTableMeta(table string) (sql.TableMeta, bool, error) {
	data := t.tx.Bucket(statsBucket).Get([]byte(table))
	if data == nil {
		return sql.TableMeta{}, false, nil
	}
	meta, err := yamlUnmarshalTableMeta(data)
	if err != nil {
		return sql.TableMeta{}, false, err
	}
	return meta, true, nil
}

func (t *Transaction) ColumnMetaPaths(table string) ([]string, error) {
	meta, ok, err := t.LoadTableMeta(table)
	if err != nil || !ok {
		return nil, err
	}
	return meta.ColumnMetaPaths, nil
}

func (t *Transaction) Commit() error   { return t.tx.Commit() }
func (t *Transaction) Rollback() error { return t.tx.Rollback() }
