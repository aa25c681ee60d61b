// Package manifest implements the manifest types and merge rules: the
// SourceManifest, SignalManifest, the merged DatasetManifest, and the
// ComputedColumn records the view builder consumes.
package manifest

import (
	"fmt"

	"dataset-engine/internal/schemamodel"
)

// UUIDColumn is the fixed row-identifier column name present in every shard.
const UUIDColumn = "uuid"

// SourceManifest describes the immutable source shards and their schema.
type SourceManifest struct {
	Files      []string          `json:"files"`
	DataSchema *schemamodel.Schema `json:"data_schema"`
	// NumItems is the source row count, cached at load time so callers get
	// it without scanning every shard.
	NumItems int `json:"num_items"`
}

// SignalRef names a signal and its opaque configuration, as recorded in a
// signal manifest (the live Signal implementation is looked up by name at
// enrichment/query time — see internal/signal).
type SignalRef struct {
	Name   string                 `json:"name"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// SignalManifest describes one computed column's shards: its output schema,
// the signal that produced it, and the leaf path it enriches.
type SignalManifest struct {
	Files             []string            `json:"files"`
	TopLevelColumnName string             `json:"top_level_column_name"`
	DataSchema        *schemamodel.Schema `json:"data_schema"`
	Signal            SignalRef           `json:"signal"`
	EnrichedPath      schemamodel.Path    `json:"enriched_path"`
}

// ComputedColumn is the manifest store's digest of one SignalManifest, ready
// for the view builder and the merged schema.
type ComputedColumn struct {
	Files              []string
	TopLevelColumnName string
	ValueFieldName     string
	ValueFieldSchema   *schemamodel.Field
	EnrichedPath       schemamodel.Path
	Signal             SignalRef
	// ManifestPath is the on-disk path this ComputedColumn was read from; it
	// is part of the joined-view cache key.
	ManifestPath string
}

// DatasetManifest is the merged view: source schema plus one synthesized
// top-level field per computed column.
type DatasetManifest struct {
	DataSchema      *schemamodel.Schema
	NumItems        int
	ComputedColumns []ComputedColumn
}

// Merge builds the merged DatasetManifest:
// data_schema.fields = source.fields ∪ {c.top_level_column_name -> c.value_field_schema}.
// Names colliding with the source schema or between computed columns are a
// validation error.
func Merge(source *SourceManifest, columns []ComputedColumn) (*DatasetManifest, error) {
	merged := schemamodel.NewOrderedFields()
	for _, name := range source.DataSchema.Fields.Names() {
		f, _ := source.DataSchema.Fields.Get(name)
		merged.Set(name, f)
	}

	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if _, exists := merged.Get(col.TopLevelColumnName); exists {
			return nil, fmt.Errorf("manifest: computed column %q collides with source schema field", col.TopLevelColumnName)
		}
		if seen[col.TopLevelColumnName] {
			return nil, fmt.Errorf("manifest: duplicate computed column name %q", col.TopLevelColumnName)
		}
		seen[col.TopLevelColumnName] = true
		merged.Set(col.TopLevelColumnName, col.ValueFieldSchema)
	}

	return &DatasetManifest{
		DataSchema:      schemamodel.NewSchema(merged),
		NumItems:        source.NumItems,
		ComputedColumns: columns,
	}, nil
}

// SignalManifestFilepaths returns the manifest filepaths of columns, used as
// the joined-view cache key: the set of signal manifest filepaths uniquely
// identifies a joined view's enrichment state.
func SignalManifestFilepaths(columns []ComputedColumn) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.ManifestPath
	}
	return out
}
