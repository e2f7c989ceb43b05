package boltstore

import (
	"gopkg.in/yaml.v2"

	"github.com/talondb/talon/sql"
)

// yamlMarshalTableMeta/yamlUnmarshalTableMeta persist the ANALYZE
// manifest (spec §6: "TableMeta is a list of such paths plus the
// table name") as YAML — sql.TableMeta's fields are already exported,
// so this is a direct yaml.Marshal/Unmarshal round-trip, matching the
// domain-stack wiring ledger in SPEC_FULL.md (yaml.v2 backs the
// manifest; the per-column payload itself is the binary format spec
// §6 mandates, in sql/stats).
func yamlMarshalTableMeta(meta sql.TableMeta) ([]byte, error) {
	return yaml.Marshal(meta)
}

func yamlUnmarshalTableMeta(data []byte) (sql.TableMeta, error) {
	var meta sql.TableMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return sql.TableMeta{}, err
	}
	return meta, nil
}
