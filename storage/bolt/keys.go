// Package boltstore implements talon's concrete sql.Transaction (C8)
// over github.com/boltdb/bolt — the teacher's own storage dependency
// (gopkg.in/src-d/go-mysql-server.v0's go.mod carries it directly).
// Tables, rows, unique-index entries, and the catalog/stats manifest
// each live in their own bolt bucket; a transaction maps directly onto
// a single bolt.Tx, so commit/rollback are bolt's own.
package boltstore

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/talondb/talon/sql/types"
)

// orderedKey encodes a Value into a byte string whose lexicographic
// (bytes.Compare) order matches the value's own Compare order — the
// property bolt's cursor-based ordered iteration needs (spec §5: "Scan
// yields in the storage's declared table order (primary-key order by
// default)"). Only the types that realistically back a primary or
// unique index are handled; anything else falls back to the value's
// textual form, which is ordering-correct for Varchar and acceptable
// (not guaranteed monotonic) for types that are never used as a
// comparison key in this core.
func orderedKey(v types.Value) []byte {
	if v.IsNull() {
		return []byte{0x00}
	}
	var buf bytes.Buffer
	buf.WriteByte(0x01) // non-null marker sorts after null, matching Value.Compare's nulls-first tie-break at the byte level
	switch v.Type().ID {
	case types.Boolean:
		b, _ := v.AsBool()
		if b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case types.Tinyint, types.Smallint, types.Integer, types.Bigint:
		i, _ := v.AsInt64()
		binary.Write(&buf, binary.BigEndian, flipSign(uint64(i)))
	case types.UTinyint, types.USmallint, types.UInteger, types.UBigint:
		i, _ := v.AsInt64()
		binary.Write(&buf, binary.BigEndian, uint64(i))
	case types.Float, types.Double:
		f, _ := v.AsFloat64()
		binary.Write(&buf, binary.BigEndian, floatKey(f))
	case types.Date, types.DateTime:
		t, _ := v.AsTime()
		binary.Write(&buf, binary.BigEndian, flipSign(uint64(t.UnixNano())))
	default:
		s, _ := v.AsString()
		if s == "" {
			s = v.String()
		}
		buf.WriteString(s)
	}
	return buf.Bytes()
}

// flipSign maps a signed int64's bit pattern (reinterpreted as
// uint64) onto an unsigned order-preserving encoding by flipping the
// sign bit, the standard trick for sortable signed-integer byte keys.
func flipSign(u uint64) uint64 { return u ^ (1 << 63) }

// floatKey produces an order-preserving uint64 encoding of a float64:
// for non-negative floats, flip the sign bit; for negative floats,
// flip every bit. This is the standard IEEE-754 sortable-key trick.
func floatKey(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits ^ (1 << 63)
}
