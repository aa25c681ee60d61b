package shardio

import (
	"encoding/json"
	"fmt"

	"dataset-engine/internal/schemamodel"
)

// jsonField mirrors xitongsys/parquet-go's JSON schema wire format: a Tag
// string of comma-separated "key=value" attributes, plus nested Fields for
// group (struct/repeated-group) nodes.
type jsonField struct {
	Tag    string      `json:"Tag"`
	Fields []jsonField `json:"Fields,omitempty"`
}

// BuildJSONSchema renders a schemamodel.Schema as the JSON schema string
// writer.NewJSONWriter expects. Our schema tree is dynamic (built at
// runtime from manifests), so we use parquet-go's JSON-schema constructor
// rather than its struct-tag reflection path.
func BuildJSONSchema(schema *schemamodel.Schema) (string, error) {
	root := jsonField{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, name := range schema.Fields.Names() {
		f, _ := schema.Fields.Get(name)
		jf, err := fieldToJSON(name, f, false)
		if err != nil {
			return "", err
		}
		root.Fields = append(root.Fields, jf)
	}
	data, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("shardio: marshal json schema: %w", err)
	}
	return string(data), nil
}

func fieldToJSON(name string, f *schemamodel.Field, repeated bool) (jsonField, error) {
	repType := "OPTIONAL"
	if repeated {
		repType = "REPEATED"
	}
	switch {
	case f.IsStruct():
		jf := jsonField{Tag: fmt.Sprintf("name=%s, repetitiontype=%s", name, repType)}
		for _, childName := range f.Fields.Names() {
			child, _ := f.Fields.Get(childName)
			cjf, err := fieldToJSON(childName, child, false)
			if err != nil {
				return jsonField{}, err
			}
			jf.Fields = append(jf.Fields, cjf)
		}
		return jf, nil
	case f.IsRepeated():
		return fieldToJSON(name, f.RepeatedField, true)
	default: // leaf
		return leafToJSON(name, f, repType)
	}
}

func leafToJSON(name string, f *schemamodel.Field, repType string) (jsonField, error) {
	if f.Dtype == schemamodel.DTypeStringSpan {
		// A span leaf's on-disk shape is a {start, end} struct: see
		// selector.materializeLeaf, which reads exactly those two fields.
		return jsonField{
			Tag: fmt.Sprintf("name=%s, repetitiontype=%s", name, repType),
			Fields: []jsonField{
				{Tag: "name=start, type=INT64, repetitiontype=REQUIRED"},
				{Tag: "name=end, type=INT64, repetitiontype=REQUIRED"},
			},
		}, nil
	}

	ptype, converted, ok := parquetPrimitive(f.Dtype)
	if !ok {
		return jsonField{}, fmt.Errorf("shardio: unsupported dtype %q for field %q", f.Dtype, name)
	}
	tag := fmt.Sprintf("name=%s, type=%s, repetitiontype=%s", name, ptype, repType)
	if converted != "" {
		tag += ", convertedtype=" + converted
	}
	return jsonField{Tag: tag}, nil
}

func parquetPrimitive(dt schemamodel.DType) (ptype, converted string, ok bool) {
	switch dt {
	case schemamodel.DTypeBool:
		return "BOOLEAN", "", true
	case schemamodel.DTypeInt:
		return "INT64", "", true
	case schemamodel.DTypeFloat:
		return "DOUBLE", "", true
	case schemamodel.DTypeDatetime:
		return "INT64", "TIMESTAMP_MICROS", true
	case schemamodel.DTypeBytes:
		return "BYTE_ARRAY", "", true
	case schemamodel.DTypeString:
		return "BYTE_ARRAY", "UTF8", true
	default:
		return "", "", false
	}
}
