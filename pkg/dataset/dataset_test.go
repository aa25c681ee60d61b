package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dataset-engine/internal/manifest"
	"dataset-engine/internal/query"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/shardio"
	"dataset-engine/internal/signal"
)

func writeJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newSourceDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "name", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "age", Field: schemamodel.Leaf(schemamodel.DTypeInt)},
	))
	require.NoError(t, shardio.WriteShard(filepath.Join(dir, "source.parquet"), schema, []record.Row{
		{"uuid": "1", "name": "alice", "age": int64(30)},
		{"uuid": "2", "name": "bob", "age": int64(25)},
	}))
	writeJSON(t, filepath.Join(dir, "manifest.json"), &manifest.SourceManifest{
		Files:      []string{"source.parquet"},
		DataSchema: schema,
		NumItems:   2,
	})
	return dir
}

type upperSignal struct{}

func (upperSignal) Name() string           { return "upper" }
func (upperSignal) EnrichmentType() string { return "text" }
func (upperSignal) EmbeddingBased() bool   { return false }
func (upperSignal) EmbeddingName() string  { return "" }
func (upperSignal) SupportsDtype(dt schemamodel.DType) bool {
	return dt == schemamodel.DTypeString
}
func (upperSignal) OutputField() *schemamodel.Field {
	return schemamodel.Leaf(schemamodel.DTypeString)
}
func (upperSignal) Compute(ctx context.Context, in signal.ComputeInput) (<-chan signal.ComputeOutput, error) {
	out := make(chan signal.ComputeOutput, len(in.Keys))
	for i, k := range in.Keys {
		var v interface{}
		if s, ok := in.Data[i].(string); ok {
			v = strings.ToUpper(s)
		}
		out <- signal.ComputeOutput{Key: k, Value: v}
	}
	close(out)
	return out, nil
}

func TestDatasetManifestReflectsSource(t *testing.T) {
	ds, err := Open(newSourceDataset(t))
	require.NoError(t, err)

	m, err := ds.Manifest()
	require.NoError(t, err)
	require.Equal(t, 2, m.NumItems)
	require.Empty(t, m.ComputedColumns)
}

func TestDatasetComputeSignalColumnThenSelectRows(t *testing.T) {
	ds, err := Open(newSourceDataset(t))
	require.NoError(t, err)

	_, err = ds.ComputeSignalColumn(context.Background(), schemamodel.Path{"name"}, "name_upper", upperSignal{})
	require.NoError(t, err)

	m, err := ds.Manifest()
	require.NoError(t, err)
	require.Len(t, m.ComputedColumns, 1)
	require.Equal(t, "name_upper", m.ComputedColumns[0].TopLevelColumnName)

	res, err := ds.SelectRows(context.Background(), query.RowsOptions{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	byUUID := map[string]interface{}{}
	for _, r := range res.Rows {
		byUUID[r.UUID("uuid")] = r["name_upper"]
	}
	require.Equal(t, "ALICE", byUUID["1"])
	require.Equal(t, "BOB", byUUID["2"])
}

func TestDatasetSelectGroupsOverSourceLeaf(t *testing.T) {
	ds, err := Open(newSourceDataset(t))
	require.NoError(t, err)

	res, err := ds.SelectGroups(schemamodel.Path{"name"}, query.GroupsOptions{})
	require.NoError(t, err)
	require.Len(t, res.Counts, 2)
}
