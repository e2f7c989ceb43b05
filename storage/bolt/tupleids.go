package boltstore

import (
	"encoding/binary"

	"gopkg.in/yaml.v2"

	"github.com/talondb/talon/sql/types"
)

// encodeTupleIDs/decodeTupleIDs serialize the list of tuple ids an
// index key maps to (spec §4.6: AddIndex's tupleIDs parameter). A
// unique index's list always has length 1; a non-unique index's can
// grow, which is why this is a list rather than a single value.
func encodeTupleIDs(ids []types.Value) []byte {
	data, _ := yaml.Marshal(ids)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	return append(lenBuf[:], data...)
}

func decodeTupleIDs(data []byte) []types.Value {
	if len(data) < 4 {
		return nil
	}
	var ids []types.Value
	if err := yaml.Unmarshal(data[4:], &ids); err != nil {
		return nil
	}
	return ids
}
