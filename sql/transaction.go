package sql

import "github.com/talondb/talon/sql/types"

// Index is a single unique/primary index entry the executor asks a
// Transaction to maintain: the index id plus the column values that
// make up its key.
type Index struct {
	ID            IndexID
	ColumnValues  []types.Value
}

// TupleIterator is the storage-side pull iterator a Transaction hands
// back from Read: finite, not restartable, error-terminating (spec
// §4.6, §5).
type TupleIterator interface {
	Next(ctx *Context) (Tuple, error)
	Close(ctx *Context) error
}

// Catalog is the read-only subset of Transaction the Binder needs to
// resolve table and column names (spec §4.3). Every Transaction is
// also a Catalog.
type Catalog interface {
	Table(name string) (*TableCatalog, bool)
	Tables() []string
}

// Bounds restricts a Read to a column's ConstantBinary ranges; nil
// means a full, unconstrained scan. The concrete range type lives in
// sql/expression (it is derived from predicates there); Transaction
// only needs to pass it through to the storage layer opaquely, so it
// is declared here as an interface to avoid an import cycle between
// sql and sql/expression.
type Bounds interface {
	IsEmpty() bool
}

// StatsProvider lets optimizer rules ask for a rough row-count
// estimate over a column's range, without sql importing sql/stats
// (which itself imports sql for Transaction/ColumnID) — spec §4.7:
// "the optimizer, on request, asks a ColumnMetaLoader for a table's
// column metas ... reloads them for index-selection rules". lo/hi nil
// means unbounded on that side; ok is false when no statistics are
// available for the column, in which case callers fall back to their
// stats-free heuristic.
type StatsProvider interface {
	EstimateRange(table string, column ColumnID, lo, hi *types.Value) (rows int64, ok bool)
}

// Transaction is the sole coupling between the executor and physical
// storage (spec §4.6). Any key-value store providing ordered
// iteration, atomic put/delete, and commit/rollback suffices; talon's
// own implementation lives in storage/bolt.
type Transaction interface {
	Catalog

	Read(table string, bounds Bounds, projection []ColumnID) (TupleIterator, error)
	Append(table string, tuple Tuple, overwrite bool) error
	Delete(table string, tupleID types.Value) error
	AddIndex(table string, index Index, tupleIDs []types.Value, isUnique bool) error
	DelIndex(table string, index Index, tupleID types.Value) error

	CreateTable(name string, columns []ColumnRef) (*TableCatalog, error)
	DropTable(name string) error
	AddColumn(table string, column ColumnRef, ifNotExists bool) (ColumnID, error)
	DropColumn(table string, columnName string, ifExists bool) error

	SaveTableMeta(meta TableMeta) error
	LoadTableMeta(table string) (TableMeta, bool, error)
	ColumnMetaPaths(table string) ([]string, error)

	Commit() error
	Rollback() error
}
