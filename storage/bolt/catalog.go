package boltstore

import (
	"gopkg.in/yaml.v2"

	"github.com/talondb/talon/sql"
)

// schemaDTO is the YAML-serializable mirror of a sql.TableCatalog's
// shape: its ordered columns and declared indexes. TableCatalog itself
// carries unexported lookup maps (spec §5: "shared immutable after
// construction"), so persistence round-trips through this DTO and
// sql.ReloadTableCatalog instead.
type schemaDTO struct {
	Name    string              `yaml:"name"`
	Columns []sql.ColumnCatalog `yaml:"columns"`
	Indexes []sql.IndexMeta     `yaml:"indexes"`
}

func encodeSchema(t *sql.TableCatalog) ([]byte, error) {
	cols := t.Columns()
	dto := schemaDTO{Name: t.Name, Columns: make([]sql.ColumnCatalog, len(cols))}
	for i, c := range cols {
		dto.Columns[i] = *c
	}
	for _, idx := range t.Indexes {
		dto.Indexes = append(dto.Indexes, *idx)
	}
	return yaml.Marshal(dto)
}

func decodeSchema(data []byte) (*sql.TableCatalog, error) {
	var dto schemaDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return nil, err
	}
	refs := make([]sql.ColumnRef, len(dto.Columns))
	for i := range dto.Columns {
		col := dto.Columns[i]
		refs[i] = &col // AddColumn preserves an already-set Summary.ID, so ids survive the round-trip intact
	}
	indexRefs := make([]sql.IndexMetaRef, len(dto.Indexes))
	for i := range dto.Indexes {
		idx := dto.Indexes[i]
		indexRefs[i] = &idx
	}
	return sql.ReloadTableCatalog(dto.Name, refs, indexRefs)
}
