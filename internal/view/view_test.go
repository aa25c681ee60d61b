package view

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dataset-engine/internal/manifest"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/shardio"
)

func writeNameShard(t *testing.T, dir, file string) *schemamodel.Schema {
	t.Helper()
	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "name", Field: schemamodel.Leaf(schemamodel.DTypeString)},
	))
	require.NoError(t, shardio.WriteShard(filepath.Join(dir, file), schema, []record.Row{
		{"uuid": "1", "name": "alice"},
		{"uuid": "2", "name": "bob"},
	}))
	return schema
}

func writeUpperShard(t *testing.T, dir, file string, uuids []string, vals []string) *schemamodel.Schema {
	t.Helper()
	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "value", Field: schemamodel.Leaf(schemamodel.DTypeString)},
	))
	rows := make([]record.Row, len(uuids))
	for i := range uuids {
		rows[i] = record.Row{"uuid": uuids[i], "value": vals[i]}
	}
	require.NoError(t, shardio.WriteShard(filepath.Join(dir, file), schema, rows))
	return schema
}

func TestBuildJoinsComputedColumnByUUID(t *testing.T) {
	dir := t.TempDir()
	writeNameShard(t, dir, "source.parquet")
	writeUpperShard(t, dir, "name_upper.parquet", []string{"1", "2"}, []string{"ALICE", "BOB"})

	source := &manifest.SourceManifest{Files: []string{"source.parquet"}, NumItems: 2}
	columns := []manifest.ComputedColumn{
		{Files: []string{"name_upper.parquet"}, TopLevelColumnName: "name_upper", ValueFieldName: "value"},
	}

	v, err := Build(dir, source, columns)
	require.NoError(t, err)
	require.Len(t, v.Rows, 2)

	byUUID := map[string]record.Row{}
	for _, r := range v.Rows {
		byUUID[r.UUID("uuid")] = r
	}
	require.Equal(t, "ALICE", byUUID["1"]["name_upper"])
	require.Equal(t, "BOB", byUUID["2"]["name_upper"])
}

func TestBuildSurfacesMissingEnrichmentAsNull(t *testing.T) {
	dir := t.TempDir()
	writeNameShard(t, dir, "source.parquet")
	writeUpperShard(t, dir, "name_upper.parquet", []string{"1"}, []string{"ALICE"})

	source := &manifest.SourceManifest{Files: []string{"source.parquet"}, NumItems: 2}
	columns := []manifest.ComputedColumn{
		{Files: []string{"name_upper.parquet"}, TopLevelColumnName: "name_upper", ValueFieldName: "value"},
	}

	v, err := Build(dir, source, columns)
	require.NoError(t, err)

	byUUID := map[string]record.Row{}
	for _, r := range v.Rows {
		byUUID[r.UUID("uuid")] = r
	}
	require.Nil(t, byUUID["2"]["name_upper"])
}
