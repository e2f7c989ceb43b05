package stats

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/talondb/talon/sql/types"
)

// ColumnMeta bundles one column's built Histogram and Sketch — the
// self-contained unit ANALYZE writes to disk per spec §6.
type ColumnMeta struct {
	Histogram *Histogram
	Sketch    *Sketch
}

func NewColumnMeta(h *Histogram, s *Sketch) *ColumnMeta {
	return &ColumnMeta{Histogram: h, Sketch: s}
}

// schemaVersion is the format byte every column-meta file leads with
// (spec §6), bumped whenever the on-disk layout changes incompatibly.
const schemaVersion byte = 1

// WriteTo serializes the column meta as spec §6 mandates: a schema
// version byte, a type tag, the null count, the non-null row count, a
// bucket count, then per-bucket (lo, hi, row_count, distinct_estimate)
// entries, followed by the sketch register array. encoding/binary is
// the stdlib fallback here: no example repo in the retrieval pack
// carries a schema-stable binary codec (protobuf/flatbuffers/msgpack)
// that this fixed, spec-dictated byte layout would benefit from over
// a direct binary.Write encoding.
func (m *ColumnMeta) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, schemaVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint8(m.Histogram.Datatype.ID)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int64(m.Histogram.NullCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int64(m.Histogram.TotalCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(m.Histogram.Buckets))); err != nil {
		return err
	}
	for _, b := range m.Histogram.Buckets {
		if err := writeValue(w, b.Lo); err != nil {
			return err
		}
		if err := writeValue(w, b.Hi); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(b.RowCount)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, int64(b.DistinctCount)); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.BigEndian, m.Sketch.registers)
}

// ReadColumnMeta deserializes a file written by WriteTo.
func ReadColumnMeta(r io.Reader) (*ColumnMeta, error) {
	var version byte
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, err
	}
	if version != schemaVersion {
		return nil, fmt.Errorf("stats: unsupported column-meta schema version %d", version)
	}
	var typeTag uint8
	if err := binary.Read(r, binary.BigEndian, &typeTag); err != nil {
		return nil, err
	}
	datatype := types.LogicalType{ID: types.ID(typeTag)}

	var nullCount, totalCount int64
	if err := binary.Read(r, binary.BigEndian, &nullCount); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &totalCount); err != nil {
		return nil, err
	}

	var numBuckets uint32
	if err := binary.Read(r, binary.BigEndian, &numBuckets); err != nil {
		return nil, err
	}
	buckets := make([]Bucket, numBuckets)
	for i := range buckets {
		lo, err := readValue(r, datatype)
		if err != nil {
			return nil, err
		}
		hi, err := readValue(r, datatype)
		if err != nil {
			return nil, err
		}
		var rowCount, distinct int64
		if err := binary.Read(r, binary.BigEndian, &rowCount); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.BigEndian, &distinct); err != nil {
			return nil, err
		}
		buckets[i] = Bucket{Lo: lo, Hi: hi, RowCount: rowCount, DistinctCount: distinct}
	}

	sketch := NewSketch()
	if err := binary.Read(r, binary.BigEndian, &sketch.registers); err != nil {
		return nil, err
	}

	h := &Histogram{Datatype: datatype, Buckets: buckets, NullCount: nullCount, TotalCount: totalCount}
	return &ColumnMeta{Histogram: h, Sketch: sketch}, nil
}

// writeValue serializes a single Value as a length-prefixed byte
// string of its canonical textual form, re-parsed through CoerceTo on
// read — simple and sufficient for the fixed set of logical types
// this engine carries (no variable-width binary encoding needed).
func writeValue(w io.Writer, v types.Value) error {
	s := v.String()
	if err := binary.Write(w, binary.BigEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readValue(r io.Reader, datatype types.LogicalType) (types.Value, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return types.Value{}, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return types.Value{}, err
	}
	raw := types.NewVarcharValue(string(buf), -1)
	if datatype.ID == types.Varchar {
		return raw, nil
	}
	return raw.CoerceTo(datatype)
}

// PathFor builds the on-disk path for one column's stats file
// following spec §6's layout exactly:
// <stats_root>/<table_name>/<unix_seconds>/<column_id>.
func PathFor(statsRoot, tableName string, ts int64, columnID uint32) string {
	return filepath.Join(statsRoot, tableName, strconv.FormatInt(ts, 10), strconv.FormatUint(uint64(columnID), 10))
}

// WriteFile writes m to path, creating parent directories as needed.
func (m *ColumnMeta) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.WriteTo(f)
}

// ReadFile reads a column meta file previously written by WriteFile.
func ReadFile(path string) (*ColumnMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadColumnMeta(f)
}

// Now is exposed so analyze can stamp the timestamp directory
// component without importing time directly at call sites outside
// this package (kept trivial; no clock abstraction needed beyond this
// one call site per spec §5's synchronous execution model).
func Now() int64 { return time.Now().Unix() }
