package query

import (
	"context"
	"sort"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/embedding"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/signal"
)

// Transform marks a column as computed by a signal rather than read
// directly from the joined view.
type Transform struct {
	Signal signal.Signal
}

// ColumnSpec is one normalized requested column.
type ColumnSpec struct {
	FeaturePath schemamodel.Path
	Alias       string
	Transform   *Transform
}

// RowsOptions controls select_rows.
type RowsOptions struct {
	Columns   []ColumnSpec // empty selects every top-level schema field
	Filters   []Filter     // a length-1 path matching a transform column's alias is a transform filter
	SortBy    string       // column alias
	SortOrder string       // "asc" or "desc", default "asc"
	Limit     int
	Offset    int
}

// RowsResult is select_rows' materialized output. The underlying frame is
// built once; callers consume Rows in order.
type RowsResult struct {
	Rows []record.Row
}

// SelectRows implements select_rows.
func SelectRows(ctx context.Context, schema *schemamodel.Schema, rows []record.Row, uuidCol string, embeddings *embedding.Engine, opts RowsOptions) (*RowsResult, error) {
	columns, err := normalizeColumns(schema, opts.Columns, uuidCol)
	if err != nil {
		return nil, err
	}

	aliasColumn := make(map[string]ColumnSpec, len(columns))
	for _, c := range columns {
		aliasColumn[c.Alias] = c
	}

	var baseFilters, transformFilters []Filter
	for _, f := range opts.Filters {
		if len(f.Path) == 1 {
			if c, ok := aliasColumn[f.Path[0]]; ok && c.Transform != nil {
				transformFilters = append(transformFilters, f)
				continue
			}
		}
		if _, err := ValidateFilter(schema, f); err != nil {
			return nil, err
		}
		baseFilters = append(baseFilters, f)
	}

	pass, err := passingUUIDs(schema, rows, uuidCol, baseFilters)
	if err != nil {
		return nil, err
	}

	baseRows := make([]record.Row, 0, len(rows))
	for _, r := range rows {
		if pass[r.UUID(uuidCol)] {
			baseRows = append(baseRows, r)
		}
	}

	out := make([]record.Row, 0, len(baseRows))
	for _, r := range baseRows {
		projected := record.Row{}
		for _, c := range columns {
			if c.Transform != nil {
				projected[c.Alias] = nil // placeholder; filled in after limit/offset
				continue
			}
			v, _ := projectPath(r, c.FeaturePath)
			projected[c.Alias] = v
		}
		out = append(out, projected)
	}

	if opts.SortBy != "" {
		if _, ok := aliasColumn[opts.SortBy]; !ok {
			return nil, dataseterr.SortAliasUnknown(opts.SortBy)
		}
		sortOrder := opts.SortOrder
		if sortOrder == "" {
			sortOrder = "asc"
		}
		sortRowsByAlias(out, opts.SortBy, sortOrder)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			out = nil
		} else {
			out = out[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	// Transforms run only over the materialized, already limited/offset
	// result set, never the full base projection.
	for _, c := range columns {
		if c.Transform == nil {
			continue
		}
		kept := make(map[string]bool, len(out))
		for _, r := range out {
			kept[r.UUID(uuidCol)] = true
		}
		transformRows := make([]record.Row, 0, len(kept))
		for _, r := range baseRows {
			if kept[r.UUID(uuidCol)] {
				transformRows = append(transformRows, r)
			}
		}
		values, err := signal.ComputeTransform(ctx, schema, transformRows, uuidCol, c.FeaturePath, c.Transform.Signal, embeddings)
		if err != nil {
			return nil, err
		}
		for _, r := range out {
			r[c.Alias] = values[r.UUID(uuidCol)]
		}
	}

	for _, f := range transformFilters {
		sig := aliasColumn[f.Path[0]].Transform.Signal
		outputDtype := sig.OutputField().Dtype
		filtered := out[:0]
		for _, r := range out {
			v, _ := r.Get(f.Path[0])
			if Matches(outputDtype, v, f) {
				filtered = append(filtered, r)
			}
		}
		out = filtered
	}

	// A columnar engine typically needs its per-dtype null sentinel
	// translated back to a language-neutral null here; this engine's
	// record.Row already uses Go nil as the null representation for every
	// dtype, so there is no sentinel to translate.

	return &RowsResult{Rows: out}, nil
}

func normalizeColumns(schema *schemamodel.Schema, cols []ColumnSpec, uuidCol string) ([]ColumnSpec, error) {
	var result []ColumnSpec
	if len(cols) == 0 {
		for _, name := range schema.Fields.Names() {
			result = append(result, ColumnSpec{FeaturePath: schemamodel.Path{name}, Alias: name})
		}
	} else {
		result = append(result, cols...)
	}

	for i := range result {
		c := &result[i]
		if c.Alias == "" {
			c.Alias = c.FeaturePath.String()
		}
		if c.Transform == nil {
			if _, err := validateColumnPath(schema, c.FeaturePath); err != nil {
				return nil, err
			}
		}
	}

	hasUUID := false
	for _, c := range result {
		if c.Alias == uuidCol {
			hasUUID = true
			break
		}
	}
	if !hasUUID {
		result = append(result, ColumnSpec{FeaturePath: schemamodel.Path{uuidCol}, Alias: uuidCol})
	}
	return result, nil
}

// validateColumnPath walks path through schema, allowing it to terminate at
// a leaf, struct, or list node (select_rows may project whole nested
// values), but rejecting a concrete index into a repeated group — only a
// wildcard may traverse a list node.
func validateColumnPath(schema *schemamodel.Schema, path schemamodel.Path) (*schemamodel.Field, error) {
	var cur *schemamodel.Field
	for i, seg := range path {
		if i == 0 {
			f, ok := schema.Fields.Get(seg)
			if !ok {
				return nil, dataseterr.PathNotInSchema(path)
			}
			cur = f
			continue
		}
		if cur.IsRepeated() {
			if !schemamodel.IsRepeatedPathPart(seg) {
				return nil, dataseterr.IndexIntoRepeated(path)
			}
			cur = cur.RepeatedField
			continue
		}
		if schemamodel.IsRepeatedPathPart(seg) || !cur.IsStruct() {
			return nil, dataseterr.PathNotInSchema(path)
		}
		f, ok := cur.Fields.Get(seg)
		if !ok {
			return nil, dataseterr.PathNotInSchema(path)
		}
		cur = f
	}
	return cur, nil
}

func projectPath(row record.Row, path schemamodel.Path) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(row)
	for _, seg := range path {
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

func sortRowsByAlias(rows []record.Row, alias, order string) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, _ := rows[i].Get(alias)
		vj, _ := rows[j].Get(alias)
		c := compareGroupValues(vi, vj)
		if order == "desc" {
			return c > 0
		}
		return c < 0
	})
}
