// Package view builds the joined columnar view: source rows left-joined
// with every registered signal shard on the uuid column, with missing
// enrichments surfacing as nulls.
package view

import (
	"path/filepath"

	"dataset-engine/internal/manifest"
	"dataset-engine/internal/record"
	"dataset-engine/internal/shardio"
)

// View is the materialized joined table: one row per source row, with one
// extra field per computed column.
type View struct {
	Rows []record.Row
}

// Build reads the source shards and every computed column's shards, and
// returns the joined view:
//
//	SELECT source.*, c1.<value_field_name> AS <c1.top_level_column_name>, ...
//	FROM source LEFT JOIN c1 USING (uuid) LEFT JOIN c2 USING (uuid) ...
//
// Row count always equals the source row count.
func Build(datasetDir string, source *manifest.SourceManifest, columns []manifest.ComputedColumn) (*View, error) {
	rows, err := readAllShards(datasetDir, source.Files)
	if err != nil {
		return nil, err
	}

	for _, col := range columns {
		colRows, err := readAllShards(datasetDir, col.Files)
		if err != nil {
			return nil, err
		}
		byUUID := make(map[string]interface{}, len(colRows))
		for _, r := range colRows {
			uuid := r.UUID(manifest.UUIDColumn)
			byUUID[uuid] = r[col.ValueFieldName]
		}
		for _, r := range rows {
			uuid := r.UUID(manifest.UUIDColumn)
			if v, ok := byUUID[uuid]; ok {
				r[col.TopLevelColumnName] = v
			} else {
				r[col.TopLevelColumnName] = nil // pending/partial enrichment
			}
		}
	}

	return &View{Rows: rows}, nil
}

func readAllShards(datasetDir string, files []string) ([]record.Row, error) {
	var rows []record.Row
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(datasetDir, f)
		}
		shardRows, err := shardio.ReadShard(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, shardRows...)
	}
	return rows, nil
}
