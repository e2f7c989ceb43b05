package stats

import (
	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

// ColumnMetaLoader is what the optimizer asks for a table's column
// statistics (spec §4.7: "the optimizer, on request, asks a
// ColumnMetaLoader for a table's column metas"). Implementations
// typically wrap a sql.Transaction for LoadTableMeta plus a
// filesystem read of each path.
type ColumnMetaLoader interface {
	Load(tableName string) (map[sql.ColumnID]*ColumnMeta, bool)
}

// TxnLoader is the default ColumnMetaLoader: it asks the transaction
// for the table's most recent TableMeta, then reads each file path
// ReadFile names, keying the result by the column id embedded in the
// path's last segment. No failure is an error: a file that cannot be
// read or decoded is skipped, and the result is (nil, false) when the
// meta is absent or no file could be loaded (spec §4.7: "Absent or
// unreadable metas degrade silently to 'no statistics', never fatal").
type TxnLoader struct {
	Txn sql.Transaction
}

func NewTxnLoader(txn sql.Transaction) *TxnLoader { return &TxnLoader{Txn: txn} }

func (l *TxnLoader) Load(tableName string) (map[sql.ColumnID]*ColumnMeta, bool) {
	meta, ok, err := l.Txn.LoadTableMeta(tableName)
	if err != nil || !ok {
		return nil, false
	}
	out := make(map[sql.ColumnID]*ColumnMeta, len(meta.ColumnMetaPaths))
	for _, path := range meta.ColumnMetaPaths {
		colID, ok := columnIDFromPath(path)
		if !ok {
			continue
		}
		cm, err := ReadFile(path)
		if err != nil {
			continue
		}
		out[colID] = cm
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// Estimator adapts a ColumnMetaLoader into a sql.StatsProvider,
// caching each table's loaded metas for the lifetime of one query
// (spec §4.7: reload happens "on request", not per predicate).
type Estimator struct {
	loader ColumnMetaLoader
	cache  map[string]map[sql.ColumnID]*ColumnMeta
}

// NewEstimator wraps loader for use as a sql.Context's StatsProvider.
func NewEstimator(loader ColumnMetaLoader) *Estimator {
	return &Estimator{loader: loader, cache: map[string]map[sql.ColumnID]*ColumnMeta{}}
}

func (e *Estimator) metasFor(table string) (map[sql.ColumnID]*ColumnMeta, bool) {
	if metas, ok := e.cache[table]; ok {
		return metas, metas != nil
	}
	metas, ok := e.loader.Load(table)
	if !ok {
		e.cache[table] = nil
		return nil, false
	}
	e.cache[table] = metas
	return metas, true
}

// EstimateRange implements sql.StatsProvider.
func (e *Estimator) EstimateRange(table string, column sql.ColumnID, lo, hi *types.Value) (int64, bool) {
	metas, ok := e.metasFor(table)
	if !ok {
		return 0, false
	}
	cm, ok := metas[column]
	if !ok || cm.Histogram == nil {
		return 0, false
	}
	return cm.Histogram.RangeRowEstimate(lo, hi), true
}

func columnIDFromPath(path string) (sql.ColumnID, bool) {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	tail := path[i+1:]
	var id uint64
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + uint64(r-'0')
	}
	if tail == "" {
		return 0, false
	}
	return sql.ColumnID(id), true
}
