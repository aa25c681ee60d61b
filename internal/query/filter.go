package query

import (
	"bytes"
	"fmt"
	"strings"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/schemamodel"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Filter is a single predicate over a leaf path.
type Filter struct {
	Path  schemamodel.Path
	Op    Op
	Value interface{}
}

// FilterTuple is the tuple form of a FilterLike: (path-or-column, op, value).
type FilterTuple struct {
	Path  interface{}
	Op    interface{}
	Value interface{}
}

// NormalizeFilter accepts a Filter or a FilterTuple and yields a Filter with
// a normalized Path.
func NormalizeFilter(f interface{}) (Filter, error) {
	switch v := f.(type) {
	case Filter:
		return v, nil
	case FilterTuple:
		path, err := schemamodel.NormalizePath(v.Path)
		if err != nil {
			return Filter{}, err
		}
		op, err := normalizeOp(v.Op)
		if err != nil {
			return Filter{}, err
		}
		return Filter{Path: path, Op: op, Value: v.Value}, nil
	default:
		return Filter{}, fmt.Errorf("query: unsupported filter representation %T", f)
	}
}

func normalizeOp(v interface{}) (Op, error) {
	switch o := v.(type) {
	case Op:
		return o, nil
	case string:
		return Op(o), nil
	default:
		return "", fmt.Errorf("query: filter op must be a string or Op, got %T", v)
	}
}

// ValidateFilter checks f against schema: the path must be a leaf and must
// not traverse a wildcard segment.
func ValidateFilter(schema *schemamodel.Schema, f Filter) (*schemamodel.Field, error) {
	if f.Path.NumWildcards() > 0 {
		return nil, dataseterr.FilterOnRepeatedPath(f.Path)
	}
	leaf, notInSchema, notLeaf := schema.LeafAt(f.Path)
	if notInSchema {
		return nil, dataseterr.PathNotInSchema(f.Path)
	}
	if notLeaf {
		return nil, dataseterr.PathNotLeaf(f.Path)
	}
	return leaf, nil
}

// Matches evaluates f against value, compared in dtype's native
// representation. A null value never matches.
func Matches(dtype schemamodel.DType, value interface{}, f Filter) bool {
	if value == nil {
		return false
	}
	cmp, ok := compare(dtype, value, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	default:
		return false
	}
}

func compare(dtype schemamodel.DType, a, b interface{}) (int, bool) {
	switch dtype {
	case schemamodel.DTypeString, schemamodel.DTypeStringSpan:
		as, aok := a.(string)
		bs, bok := b.(string)
		if !aok || !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	case schemamodel.DTypeBytes:
		ab, aok := a.([]byte)
		bb, bok := b.([]byte)
		if !aok || !bok {
			return 0, false
		}
		return bytes.Compare(ab, bb), true
	case schemamodel.DTypeBool:
		ab, aok := a.(bool)
		bb, bok := b.(bool)
		if !aok || !bok {
			return 0, false
		}
		if ab == bb {
			return 0, true
		}
		if !ab {
			return -1, true
		}
		return 1, true
	case schemamodel.DTypeInt, schemamodel.DTypeFloat, schemamodel.DTypeDatetime:
		af, aok := toFloat64(a)
		bf, bok := toFloat64(b)
		if !aok || !bok {
			return 0, false
		}
		return cmpFloat(af, bf), true
	default:
		return 0, false
	}
}
