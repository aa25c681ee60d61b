package query

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/embedding"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/signal"
)

func rowsSchema() *schemamodel.Schema {
	return schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "name", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "age", Field: schemamodel.Leaf(schemamodel.DTypeInt)},
	))
}

func rowsFixture() []record.Row {
	return []record.Row{
		{"uuid": "1", "name": "alice", "age": int64(30)},
		{"uuid": "2", "name": "bob", "age": int64(25)},
		{"uuid": "3", "name": "carl", "age": int64(40)},
	}
}

func TestSelectRowsUUIDFilterReturnsExactlyOne(t *testing.T) {
	schema := rowsSchema()
	res, err := SelectRows(context.Background(), schema, rowsFixture(), "uuid", nil, RowsOptions{
		Filters: []Filter{{Path: schemamodel.Path{"uuid"}, Op: OpEq, Value: "2"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "bob", res.Rows[0]["name"])
	assert.Equal(t, int64(25), res.Rows[0]["age"])
}

func TestSelectRowsDefaultColumnsIncludesAllFields(t *testing.T) {
	schema := rowsSchema()
	res, err := SelectRows(context.Background(), schema, rowsFixture(), "uuid", nil, RowsOptions{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	for _, r := range res.Rows {
		_, hasUUID := r["uuid"]
		_, hasName := r["name"]
		_, hasAge := r["age"]
		assert.True(t, hasUUID)
		assert.True(t, hasName)
		assert.True(t, hasAge)
	}
}

func TestSelectRowsSortAndLimit(t *testing.T) {
	schema := rowsSchema()
	res, err := SelectRows(context.Background(), schema, rowsFixture(), "uuid", nil, RowsOptions{
		SortBy:    "age",
		SortOrder: "asc",
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "bob", res.Rows[0]["name"])
	assert.Equal(t, "alice", res.Rows[1]["name"])
}

func TestSelectRowsUnknownSortAliasRejected(t *testing.T) {
	schema := rowsSchema()
	_, err := SelectRows(context.Background(), schema, rowsFixture(), "uuid", nil, RowsOptions{SortBy: "nope"})
	require.Error(t, err)
	var dsErr *dataseterr.Error
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, dataseterr.KindSortAliasUnknown, dsErr.Kind)
}

type realUpperSignal struct{}

func (realUpperSignal) Name() string           { return "upper" }
func (realUpperSignal) EnrichmentType() string { return "text" }
func (realUpperSignal) EmbeddingBased() bool   { return false }
func (realUpperSignal) EmbeddingName() string  { return "" }
func (realUpperSignal) SupportsDtype(dt schemamodel.DType) bool {
	return dt == schemamodel.DTypeString
}
func (realUpperSignal) OutputField() *schemamodel.Field {
	return schemamodel.Leaf(schemamodel.DTypeString)
}
func (realUpperSignal) Compute(ctx context.Context, in signal.ComputeInput) (<-chan signal.ComputeOutput, error) {
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

func TestSelectRowsTransformColumn(t *testing.T) {
	schema := rowsSchema()
	res, err := SelectRows(context.Background(), schema, rowsFixture(), "uuid", embedding.NewEngine(t.TempDir()), RowsOptions{
		Columns: []ColumnSpec{
			{FeaturePath: schemamodel.Path{"uuid"}, Alias: "uuid"},
			{FeaturePath: schemamodel.Path{"name"}, Alias: "name_upper", Transform: &Transform{Signal: realUpperSignal{}}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	byUUID := map[string]interface{}{}
	for _, r := range res.Rows {
		byUUID[r.UUID("uuid")] = r["name_upper"]
	}
	assert.Equal(t, "ALICE", byUUID["1"])
	assert.Equal(t, "BOB", byUUID["2"])
	assert.Equal(t, "CARL", byUUID["3"])
}
