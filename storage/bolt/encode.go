package boltstore

import (
	"encoding/binary"

	"gopkg.in/yaml.v2"

	"github.com/talondb/talon/sql"
	"github.com/talondb/talon/sql/types"
)

// compositeKey concatenates each value's orderedKey, length-prefixed
// so a multi-column key can't collide across a column-count change
// and remains byte-comparable column-by-column (spec §3: "ranges
// within a single IndexInfo are disjoint and ordered").
func compositeKey(values []types.Value) []byte {
	var out []byte
	for _, v := range values {
		k := orderedKey(v)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		out = append(out, lenBuf[:]...)
		out = append(out, k...)
	}
	return out
}

// rowDTO is the YAML-serializable mirror of a sql.Tuple's row values,
// keyed by column id so column additions/drops don't shift positional
// offsets already on disk.
type rowDTO struct {
	Values map[sql.ColumnID]types.Value `yaml:"values"`
}

func encodeRow(schema sql.SchemaRef, values []types.Value) ([]byte, error) {
	dto := rowDTO{Values: make(map[sql.ColumnID]types.Value, len(values))}
	for i, col := range schema {
		if id, ok := col.ID(); ok {
			dto.Values[id] = values[i]
		}
	}
	return yaml.Marshal(dto)
}

func decodeRow(schema sql.SchemaRef, data []byte) (sql.Tuple, error) {
	var dto rowDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return sql.Tuple{}, err
	}
	values := make([]types.Value, len(schema))
	for i, col := range schema {
		id, ok := col.ID()
		if !ok {
			values[i] = types.Null(col.Datatype())
			continue
		}
		v, ok := dto.Values[id]
		if !ok {
			if def := col.DefaultValue(); def != nil {
				v = *def
			} else {
				v = types.Null(col.Datatype())
			}
		}
		values[i] = v
	}
	return sql.Tuple{SchemaRef: schema, Values: values}, nil
}
