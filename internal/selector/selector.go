// Package selector implements the leaf selector: given a leaf path, it
// splits the path into sub-paths of lists around wildcard segments and
// walks each row to produce a flat {uuid, repeated_indices?, value?}
// colvec.Frame, exploding repeated leaves into one row per occurrence. This
// is the central algorithm the signal pipeline and query operators are
// built on.
package selector

import (
	"dataset-engine/internal/colvec"
	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
)

// Options controls the shape of the projection.
type Options struct {
	// OnlyKeys drops the value expression, still producing repeated-index
	// columns. Used by embedding-based signals operating on externally
	// indexed vectors.
	OnlyKeys bool
}

// Select runs the leaf selector over rows for leafPath, validated against
// schema. uuidCol names the row-identifier column.
func Select(schema *schemamodel.Schema, rows []record.Row, uuidCol string, leafPath schemamodel.Path, opts Options) (*colvec.Frame, error) {
	leaf, notInSchema, notLeaf := schema.LeafAt(leafPath)
	if notInSchema {
		return nil, dataseterr.PathNotInSchema(leafPath)
	}
	if notLeaf {
		return nil, dataseterr.PathNotLeaf(leafPath)
	}

	if leafPath.NumWildcards() > 1 {
		return nil, dataseterr.UnsupportedSpanShape(leafPath)
	}

	var refersTo schemamodel.Path
	if leaf.Dtype == schemamodel.DTypeStringSpan {
		refersTo = schemamodel.Path(leaf.RefersTo)
		// Spans require at most one '*' across the whole path; the leaf path
		// itself already satisfied that above, so reject only a refers_to
		// that introduces its own wildcard.
		if refersTo.NumWildcards() > leafPath.NumWildcards() {
			return nil, dataseterr.UnsupportedSpanShape(leafPath)
		}
	}

	subpaths := schemamodel.SplitOnWildcards(leafPath)
	hasWildcard := len(subpaths) > 1

	withValue := !opts.OnlyKeys
	valueDtype := leaf.Dtype
	if valueDtype == schemamodel.DTypeStringSpan {
		valueDtype = schemamodel.DTypeString // spans materialize as resolved substrings
	}
	b := colvec.NewBuilder(valueDtype, withValue, hasWildcard)

	for _, row := range rows {
		uuid := row.UUID(uuidCol)
		if err := walkRow(b, row, uuid, subpaths, leaf, refersTo, withValue); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// walkRow descends subpaths[0] (the prefix before any wildcard). With no
// wildcard there is exactly one subpath and the descent ends at the leaf
// value directly. With one wildcard there are exactly two subpaths: the
// prefix yields a list, and subpaths[1] is applied to each element.
func walkRow(b *colvec.Builder, row record.Row, uuid string, subpaths []schemamodel.SubPath, leaf *schemamodel.Field, refersTo schemamodel.Path, withValue bool) error {
	prefixVal, ok := descend(record.Row(row), subpaths[0])
	if !ok {
		return b.Append(uuid, nil, nil)
	}

	if len(subpaths) == 1 {
		// No wildcard: prefixVal is the leaf value itself.
		val, err := materializeLeaf(row, prefixVal, -1, false, leaf, refersTo, withValue)
		if err != nil {
			return err
		}
		return b.Append(uuid, nil, val)
	}

	list, ok := prefixVal.([]interface{})
	if !ok {
		return b.Append(uuid, nil, nil)
	}
	for i, elem := range list {
		leafVal, ok := descendInto(elem, subpaths[1])
		if !ok {
			if err := b.Append(uuid, []int32{int32(i)}, nil); err != nil {
				return err
			}
			continue
		}
		val, err := materializeLeaf(row, leafVal, i, true, leaf, refersTo, withValue)
		if err != nil {
			return err
		}
		if err := b.Append(uuid, []int32{int32(i)}, val); err != nil {
			return err
		}
	}
	return nil
}

// materializeLeaf turns the raw decoded leaf value into the Go value the
// colvec builder expects, resolving string_span leaves by slicing the
// referenced sibling text (1-based inclusive end).
func materializeLeaf(row record.Row, rawLeaf interface{}, idx int, hasIdx bool, leaf *schemamodel.Field, refersTo schemamodel.Path, withValue bool) (interface{}, error) {
	if !withValue {
		return nil, nil
	}
	if leaf.Dtype != schemamodel.DTypeStringSpan {
		return rawLeaf, nil
	}
	span, ok := rawLeaf.(map[string]interface{})
	if !ok {
		return nil, nil
	}
	start, sok := asInt(span["start"])
	end, eok := asInt(span["end"])
	if !sok || !eok {
		return nil, nil
	}
	textVal, found := resolveWithIndex(row, refersTo, int32(idx), hasIdx)
	if !found {
		return nil, nil
	}
	text, ok := textVal.(string)
	if !ok {
		return nil, nil
	}
	if start < 1 || end > len(text) || start > end {
		return nil, nil
	}
	return text[start-1 : end], nil // 1-based inclusive end
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// descend applies a non-wildcard sub-path (a contiguous run of struct field
// names) starting at the row root.
func descend(row record.Row, sp schemamodel.SubPath) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(row)
	for _, seg := range sp {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// descendInto applies a non-wildcard sub-path starting at an arbitrary
// (already-resolved) value, used for the segment after a wildcard.
func descendInto(start interface{}, sp schemamodel.SubPath) (interface{}, bool) {
	cur := start
	for _, seg := range sp {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// resolveWithIndex walks path from the row root, substituting wildcardIndex
// whenever a wildcard segment is encountered. Because spans are restricted
// to at most one '*' across the whole path, a single index unambiguously
// resolves both the span leaf and its sibling text field.
func resolveWithIndex(row record.Row, path schemamodel.Path, wildcardIndex int32, haveIndex bool) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(row)
	for _, seg := range path {
		if schemamodel.IsRepeatedPathPart(seg) {
			list, ok := cur.([]interface{})
			if !ok || !haveIndex || int(wildcardIndex) >= len(list) || wildcardIndex < 0 {
				return nil, false
			}
			cur = list[wildcardIndex]
			continue
		}
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}
