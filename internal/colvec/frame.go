// Package colvec is the engine's in-memory columnar projection format: flat
// {uuid, repeated_indices?, value?} frames built with Apache Arrow array
// builders, using a single value column whose Arrow type is chosen at
// runtime from a schemamodel.DType. This is the columnar layer the selector
// and query operators (groups/stats/rows) compose over.
package colvec

import (
	"fmt"

	"github.com/apache/arrow/go/arrow"
	"github.com/apache/arrow/go/arrow/array"
	"github.com/apache/arrow/go/arrow/memory"

	"dataset-engine/internal/schemamodel"
)

// ArrowType maps a leaf DType to the Arrow type used to materialize it.
// Datetime is stored as int64 unix-microseconds to avoid dragging in Arrow's
// timezone-aware timestamp machinery for a field this engine only compares
// and bins, never formats.
func ArrowType(dt schemamodel.DType) arrow.DataType {
	switch dt {
	case schemamodel.DTypeBool:
		return arrow.FixedWidthTypes.Boolean
	case schemamodel.DTypeInt:
		return arrow.PrimitiveTypes.Int64
	case schemamodel.DTypeFloat:
		return arrow.PrimitiveTypes.Float64
	case schemamodel.DTypeDatetime:
		return arrow.PrimitiveTypes.Int64
	case schemamodel.DTypeBytes:
		return arrow.BinaryTypes.Binary
	default: // string, string_span
		return arrow.BinaryTypes.String
	}
}

// Frame is one projected leaf's output: one row per leaf occurrence, with
// optional repeated-index and value columns.
type Frame struct {
	Dtype           schemamodel.DType
	HasValue        bool
	HasRepeatedIdx  bool
	uuid            *array.String
	repeatedIdx     *array.List
	repeatedIdxVals *array.Int32
	value           arrow.Array
}

// Len returns the number of leaf occurrences in the frame.
func (f *Frame) Len() int { return f.uuid.Len() }

// UUID returns the row identifier for occurrence i.
func (f *Frame) UUID(i int) string { return f.uuid.Value(i) }

// RepeatedIndices returns the zero-based wildcard position for occurrence i,
// and whether one is present (absent for leaves with no wildcard segment).
func (f *Frame) RepeatedIndices(i int) (idx int32, ok bool) {
	if !f.HasRepeatedIdx || f.repeatedIdx.IsNull(i) {
		return 0, false
	}
	start, end := f.repeatedIdx.ValueOffsets(i)
	if end <= start {
		return 0, false
	}
	return f.repeatedIdxVals.Value(int(start)), true
}

// Value returns occurrence i's value as a native Go value (string, int64,
// float64, bool, or []byte), or nil if the value is null/absent.
func (f *Frame) Value(i int) interface{} {
	if !f.HasValue || f.value.IsNull(i) {
		return nil
	}
	switch v := f.value.(type) {
	case *array.String:
		return v.Value(i)
	case *array.Int64:
		return v.Value(i)
	case *array.Float64:
		return v.Value(i)
	case *array.Boolean:
		return v.Value(i)
	case *array.Binary:
		return v.Value(i)
	default:
		return nil
	}
}

// Release frees the underlying Arrow array memory.
func (f *Frame) Release() {
	f.uuid.Release()
	if f.repeatedIdx != nil {
		f.repeatedIdx.Release()
	}
	if f.value != nil {
		f.value.Release()
	}
}

// Builder assembles a Frame one occurrence at a time.
type Builder struct {
	mem         memory.Allocator
	dtype       schemamodel.DType
	withValue   bool
	withIdx     bool
	uuidB       *array.StringBuilder
	idxB        *array.ListBuilder
	idxValuesB  *array.Int32Builder
	valueB      array.Builder
}

// NewBuilder constructs a Builder for the given leaf dtype. withValue is
// false for key-only selections; withIdx is true whenever the leaf path has
// a wildcard segment.
func NewBuilder(dtype schemamodel.DType, withValue, withIdx bool) *Builder {
	mem := memory.NewGoAllocator()
	b := &Builder{mem: mem, dtype: dtype, withValue: withValue, withIdx: withIdx}
	b.uuidB = array.NewStringBuilder(mem)
	if withIdx {
		b.idxB = array.NewListBuilder(mem, arrow.PrimitiveTypes.Int32)
	}
	if withValue {
		b.valueB = array.NewBuilder(mem, ArrowType(dtype))
	}
	return b
}

// Append adds one leaf occurrence. idx is nil when the leaf has no wildcard
// segment; value is nil to append a null value (missing enrichment, NaN, etc).
func (b *Builder) Append(uuid string, idx []int32, value interface{}) error {
	b.uuidB.Append(uuid)
	if b.withIdx {
		if idx == nil {
			b.idxB.AppendNull()
		} else {
			b.idxB.Append(true)
			vb := b.idxB.ValueBuilder().(*array.Int32Builder)
			for _, v := range idx {
				vb.Append(v)
			}
		}
	}
	if b.withValue {
		if err := appendValue(b.valueB, b.dtype, value); err != nil {
			return err
		}
	}
	return nil
}

func appendValue(b array.Builder, dtype schemamodel.DType, value interface{}) error {
	if value == nil {
		b.AppendNull()
		return nil
	}
	switch dtype {
	case schemamodel.DTypeBool:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("colvec: expected bool, got %T", value)
		}
		b.(*array.BooleanBuilder).Append(v)
	case schemamodel.DTypeInt:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		b.(*array.Int64Builder).Append(v)
	case schemamodel.DTypeFloat:
		v, err := toFloat64(value)
		if err != nil {
			return err
		}
		b.(*array.Float64Builder).Append(v)
	case schemamodel.DTypeDatetime:
		v, err := toInt64(value)
		if err != nil {
			return err
		}
		b.(*array.Int64Builder).Append(v)
	case schemamodel.DTypeBytes:
		v, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("colvec: expected []byte, got %T", value)
		}
		b.(*array.BinaryBuilder).Append(v)
	default: // string, string_span
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("colvec: expected string, got %T", value)
		}
		b.(*array.StringBuilder).Append(v)
	}
	return nil
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("colvec: expected numeric, got %T", value)
	}
}

func toFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("colvec: expected numeric, got %T", value)
	}
}

// Build finalizes the Frame. The Builder must not be reused afterward.
func (b *Builder) Build() *Frame {
	f := &Frame{Dtype: b.dtype, HasValue: b.withValue, HasRepeatedIdx: b.withIdx}
	f.uuid = b.uuidB.NewArray().(*array.String)
	if b.withIdx {
		listArr := b.idxB.NewArray().(*array.List)
		f.repeatedIdx = listArr
		f.repeatedIdxVals = listArr.ListValues().(*array.Int32)
	}
	if b.withValue {
		f.value = b.valueB.NewArray()
	}
	return f
}
