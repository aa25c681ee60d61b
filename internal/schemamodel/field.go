// Package schemamodel implements the recursive Field tree, Schema, and Path
// types: a sum-typed schema model for nested semi-structured records, the
// leaf-enumeration walk, and the dotted/tuple path normalization shared by
// every downstream component.
package schemamodel

import "fmt"

// DType enumerates the primitive leaf types the engine recognizes.
type DType string

const (
	DTypeBool       DType = "bool"
	DTypeInt        DType = "int"
	DTypeFloat      DType = "float"
	DTypeString     DType = "string"
	DTypeStringSpan DType = "string_span"
	DTypeDatetime   DType = "datetime"
	DTypeBytes      DType = "bytes"
)

// IsNumeric reports whether values of this dtype support auto-binning and
// exact min/max.
func (d DType) IsNumeric() bool {
	return d == DTypeInt || d == DTypeFloat
}

// IsOrdinal reports whether the dtype supports exact min/max statistics:
// numeric dtypes plus datetime.
func (d DType) IsOrdinal() bool {
	return d.IsNumeric() || d == DTypeDatetime
}

// Field is a recursive, sum-typed schema node. Exactly one of Fields,
// RepeatedField, or Dtype is set, eliminating the "both fields and
// repeated_field" construction a permissive optional record would allow.
type Field struct {
	// Fields holds an ordered struct's child name -> Field mapping. Non-nil
	// only for struct nodes.
	Fields *OrderedFields

	// RepeatedField holds the element schema of a list node. Non-nil only
	// for list nodes.
	RepeatedField *Field

	// Dtype is set only on leaf nodes.
	Dtype DType

	// RefersTo is set only when Dtype == DTypeStringSpan: the path of the
	// sibling text field this span indexes into. It is a weak reference — a
	// path lookup performed at query time, never ownership.
	RefersTo []string
}

// OrderedFields preserves child declaration order, which Go's map does not.
type OrderedFields struct {
	names  []string
	byName map[string]*Field
}

// NewOrderedFields builds an OrderedFields from a sequence of (name, field)
// pairs, preserving the given order.
func NewOrderedFields(pairs ...FieldPair) *OrderedFields {
	of := &OrderedFields{byName: make(map[string]*Field, len(pairs))}
	for _, p := range pairs {
		of.Set(p.Name, p.Field)
	}
	return of
}

// FieldPair is one (name, Field) entry used to construct OrderedFields.
type FieldPair struct {
	Name  string
	Field *Field
}

// Set inserts or replaces the field for name, appending to the order only on
// first insertion.
func (o *OrderedFields) Set(name string, f *Field) {
	if _, exists := o.byName[name]; !exists {
		o.names = append(o.names, name)
	}
	o.byName[name] = f
}

// Get returns the field for name and whether it was present.
func (o *OrderedFields) Get(name string) (*Field, bool) {
	f, ok := o.byName[name]
	return f, ok
}

// Names returns the child names in declaration order.
func (o *OrderedFields) Names() []string {
	out := make([]string, len(o.names))
	copy(out, o.names)
	return out
}

// Len reports the number of children.
func (o *OrderedFields) Len() int { return len(o.names) }

// Struct constructs a struct Field from ordered fields.
func Struct(of *OrderedFields) *Field {
	return &Field{Fields: of}
}

// List constructs a repeated-group Field wrapping elem.
func List(elem *Field) *Field {
	return &Field{RepeatedField: elem}
}

// Leaf constructs a primitive dtype Field.
func Leaf(dtype DType) *Field {
	return &Field{Dtype: dtype}
}

// Span constructs a string_span leaf referring to the sibling text path.
func Span(refersTo []string) *Field {
	return &Field{Dtype: DTypeStringSpan, RefersTo: append([]string(nil), refersTo...)}
}

// IsStruct reports whether f is a struct node.
func (f *Field) IsStruct() bool { return f != nil && f.Fields != nil }

// IsRepeated reports whether f is a list node.
func (f *Field) IsRepeated() bool { return f != nil && f.RepeatedField != nil }

// IsLeaf reports whether f is a primitive dtype node.
func (f *Field) IsLeaf() bool { return f != nil && f.Dtype != "" }

// Validate checks the sum-type invariant: exactly one of struct/list/dtype is set.
func (f *Field) Validate() error {
	set := 0
	if f.Fields != nil {
		set++
	}
	if f.RepeatedField != nil {
		set++
	}
	if f.Dtype != "" {
		set++
	}
	if set != 1 {
		return fmt.Errorf("schemamodel: field must set exactly one of fields/repeated_field/dtype, got %d", set)
	}
	if f.Dtype != DTypeStringSpan && len(f.RefersTo) > 0 {
		return fmt.Errorf("schemamodel: refers_to is only valid on string_span leaves")
	}
	return nil
}
