package schemamodel

import "encoding/json"

// wireField is the JSON wire representation of a Field: the sum type is
// encoded as a discriminated union via a "kind" tag rather than a permissive
// "all fields optional" record, so a malformed payload can't set two
// variants at once.
type wireField struct {
	Kind     string                `json:"kind"`
	Fields   []wireFieldPair       `json:"fields,omitempty"`
	Elem     *wireField            `json:"repeated_field,omitempty"`
	Dtype    DType                 `json:"dtype,omitempty"`
	RefersTo []string              `json:"refers_to,omitempty"`
}

type wireFieldPair struct {
	Name  string     `json:"name"`
	Field *wireField `json:"field"`
}

func toWire(f *Field) *wireField {
	switch {
	case f.IsStruct():
		w := &wireField{Kind: "struct"}
		for _, name := range f.Fields.Names() {
			child, _ := f.Fields.Get(name)
			w.Fields = append(w.Fields, wireFieldPair{Name: name, Field: toWire(child)})
		}
		return w
	case f.IsRepeated():
		return &wireField{Kind: "list", Elem: toWire(f.RepeatedField)}
	default:
		return &wireField{Kind: "dtype", Dtype: f.Dtype, RefersTo: f.RefersTo}
	}
}

func fromWire(w *wireField) *Field {
	switch w.Kind {
	case "struct":
		of := NewOrderedFields()
		for _, p := range w.Fields {
			of.Set(p.Name, fromWire(p.Field))
		}
		return Struct(of)
	case "list":
		return List(fromWire(w.Elem))
	default:
		return &Field{Dtype: w.Dtype, RefersTo: w.RefersTo}
	}
}

// MarshalJSON implements json.Marshaler for Field.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(f))
}

// UnmarshalJSON implements json.Unmarshaler for Field.
func (f *Field) UnmarshalJSON(data []byte) error {
	var w wireField
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = *fromWire(&w)
	return nil
}

// wireSchema is Schema's wire representation: an ordered list of top-level
// (name, field) pairs. Leafs/LeafOrder are derived, never serialized.
type wireSchema struct {
	Fields []wireFieldPair `json:"fields"`
}

// MarshalJSON implements json.Marshaler for Schema.
func (s *Schema) MarshalJSON() ([]byte, error) {
	w := wireSchema{}
	for _, name := range s.Fields.Names() {
		f, _ := s.Fields.Get(name)
		w.Fields = append(w.Fields, wireFieldPair{Name: name, Field: toWire(f)})
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler for Schema, re-deriving the leaf
// cache after decoding the top-level fields.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var w wireSchema
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	of := NewOrderedFields()
	for _, p := range w.Fields {
		of.Set(p.Name, fromWire(p.Field))
	}
	*s = *NewSchema(of)
	return nil
}
