// Package query implements the engine's analytic operators: stats,
// select_groups (with auto- and named-binning), select_rows, and the
// filter model shared between them. Each operator composes the leaf
// selector rather than generating SQL text (see DESIGN.md): compositional
// querying over a columnar engine is realized directly as Go functions over
// colvec.Frame.
package query

import "dataset-engine/internal/schemamodel"

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// fromFloat64 converts a computed float back to the dtype's native Go
// representation for min/max results (int leaves surface as int64).
func fromFloat64(dtype schemamodel.DType, f float64) interface{} {
	if dtype == schemamodel.DTypeFloat {
		return f
	}
	return int64(f)
}

func groupKey(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
