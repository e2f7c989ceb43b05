package types

// yamlValue is the exported mirror Value marshals through: Value's own
// fields are private (spec §3: "Values are immutable once
// constructed"), so persistence goes through this DTO instead of
// exposing mutable setters on Value itself. Raw values are carried as
// their canonical textual form and re-parsed with CoerceTo on load,
// the same approach sql/stats uses for histogram bucket bounds.
type yamlValue struct {
	TypeID    uint8  `yaml:"type"`
	Precision uint8  `yaml:"precision,omitempty"`
	Scale     uint8  `yaml:"scale,omitempty"`
	MaxLen    int    `yaml:"maxlen,omitempty"`
	Null      bool   `yaml:"null,omitempty"`
	Raw       string `yaml:"raw,omitempty"`
}

// MarshalYAML implements yaml.Marshaler (gopkg.in/yaml.v2) so a Value
// embedded in a catalog column default can round-trip through the
// storage layer's YAML-serialized table schema.
func (v Value) MarshalYAML() (interface{}, error) {
	y := yamlValue{
		TypeID:    uint8(v.typ.ID),
		Precision: v.typ.Precision,
		Scale:     v.typ.Scale,
		MaxLen:    v.typ.MaxLen,
		Null:      v.null,
	}
	if !v.null {
		y.Raw = v.String()
	}
	return y, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var y yamlValue
	if err := unmarshal(&y); err != nil {
		return err
	}
	typ := LogicalType{ID: ID(y.TypeID), Precision: y.Precision, Scale: y.Scale, MaxLen: y.MaxLen}
	if y.Null {
		*v = Null(typ)
		return nil
	}
	parsed, err := NewVarcharValue(y.Raw, -1).CoerceTo(typ)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
