package query

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
)

func scenarioSchema() *schemamodel.Schema {
	nested := schemamodel.Struct(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "wrong_name", Field: schemamodel.Leaf(schemamodel.DTypeString)},
	))
	return schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "name", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "age", Field: schemamodel.Leaf(schemamodel.DTypeFloat)},
		schemamodel.FieldPair{Name: "active", Field: schemamodel.Leaf(schemamodel.DTypeBool)},
		schemamodel.FieldPair{Name: "nested_struct", Field: schemamodel.Struct(schemamodel.NewOrderedFields(
			schemamodel.FieldPair{Name: "struct", Field: nested},
		))},
	))
}

func scenarioRows() []record.Row {
	return []record.Row{
		{"uuid": "1", "name": "Name1", "age": 34.0, "active": false},
		{"uuid": "2", "name": "Name2", "age": 45.0, "active": true},
		{"uuid": "3", "age": 17.0, "active": true},
		{"uuid": "4", "name": "Name3", "active": true},
		{"uuid": "5", "name": "Name4", "age": 55.0},
	}
}

func TestSelectGroupsFlatStringWithNulls(t *testing.T) {
	schema := scenarioSchema()
	res, err := SelectGroups(schema, scenarioRows(), "uuid", schemamodel.Path{"name"}, GroupsOptions{})
	require.NoError(t, err)
	require.Len(t, res.Counts, 5)
	want := []struct {
		val interface{}
		n   int
	}{
		{"Name1", 1}, {"Name2", 1}, {nil, 1}, {"Name3", 1}, {"Name4", 1},
	}
	for i, w := range want {
		assert.Equal(t, w.val, res.Counts[i].Value)
		assert.Equal(t, w.n, res.Counts[i].Count)
	}
}

func TestSelectGroupsNamedBinBoundaries(t *testing.T) {
	schema := scenarioSchema()
	res, err := SelectGroups(schema, scenarioRows(), "uuid", schemamodel.Path{"age"}, GroupsOptions{
		Bins: []float64{20, 50, 60},
	})
	require.NoError(t, err)
	want := []struct {
		val interface{}
		n   int
	}{
		{"1", 2}, {"0", 1}, {nil, 1}, {"2", 1},
	}
	require.Len(t, res.Counts, len(want))
	for i, w := range want {
		assert.Equal(t, w.val, res.Counts[i].Value)
		assert.Equal(t, w.n, res.Counts[i].Count)
	}
}

func TestSelectGroupsBool(t *testing.T) {
	schema := scenarioSchema()
	res, err := SelectGroups(schema, scenarioRows(), "uuid", schemamodel.Path{"active"}, GroupsOptions{})
	require.NoError(t, err)
	want := []struct {
		val interface{}
		n   int
	}{
		{true, 3}, {false, 1}, {nil, 1},
	}
	require.Len(t, res.Counts, len(want))
	for i, w := range want {
		assert.Equal(t, w.val, res.Counts[i].Value)
		assert.Equal(t, w.n, res.Counts[i].Count)
	}
}

func TestSelectGroupsFilterIntersection(t *testing.T) {
	schema := scenarioSchema()
	res, err := SelectGroups(schema, scenarioRows(), "uuid", schemamodel.Path{"name"}, GroupsOptions{
		Filters: []Filter{
			{Path: schemamodel.Path{"age"}, Op: OpLt, Value: 35.0},
			{Path: schemamodel.Path{"active"}, Op: OpEq, Value: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Counts, 1)
	assert.Nil(t, res.Counts[0].Value)
	assert.Equal(t, 1, res.Counts[0].Count)
}

func namedBinsExplicit() ExplicitBins {
	f := func(v float64) *float64 { return &v }
	return ExplicitBins{
		{Label: "young", Max: f(20)},
		{Label: "adult", Min: f(20), Max: f(50)},
		{Label: "middle-aged", Min: f(50), Max: f(65)},
		{Label: "senior", Min: f(65)},
	}
}

func TestSelectGroupsExplicitNamedBins(t *testing.T) {
	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "age", Field: schemamodel.Leaf(schemamodel.DTypeFloat)},
	))
	rows := []record.Row{
		{"uuid": "1", "age": 34.0},
		{"uuid": "2", "age": 45.0},
		{"uuid": "3", "age": 17.0},
		{"uuid": "4", "age": 80.0},
		{"uuid": "5", "age": 55.0},
		{"uuid": "6", "age": math.NaN()},
	}
	res, err := SelectGroups(schema, rows, "uuid", schemamodel.Path{"age"}, GroupsOptions{Bins: namedBinsExplicit()})
	require.NoError(t, err)
	want := []struct {
		val interface{}
		n   int
	}{
		{"adult", 2}, {"young", 1}, {"senior", 1}, {"middle-aged", 1}, {nil, 1},
	}
	require.Len(t, res.Counts, len(want))
	for i, w := range want {
		assert.Equal(t, w.val, res.Counts[i].Value)
		assert.Equal(t, w.n, res.Counts[i].Count)
	}
}

func TestSelectGroupsNestedRepeatedLeaf(t *testing.T) {
	elem := schemamodel.Struct(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "name", Field: schemamodel.Leaf(schemamodel.DTypeString)},
	))
	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "list_of_structs", Field: schemamodel.List(elem)},
	))
	rows := []record.Row{
		{"uuid": "1", "list_of_structs": []interface{}{
			map[string]interface{}{"name": "a"},
			map[string]interface{}{"name": "b"},
		}},
		{"uuid": "2", "list_of_structs": []interface{}{
			map[string]interface{}{"name": "c"},
			map[string]interface{}{"name": "a"},
			map[string]interface{}{"name": "d"},
		}},
		{"uuid": "3", "list_of_structs": []interface{}{
			map[string]interface{}{"name": "d"},
		}},
	}
	res, err := SelectGroups(schema, rows, "uuid", schemamodel.Path{"list_of_structs", "*", "name"}, GroupsOptions{})
	require.NoError(t, err)
	counts := map[interface{}]int{}
	for _, c := range res.Counts {
		counts[c.Value] = c.Count
	}
	assert.Equal(t, 2, counts["a"])
	assert.Equal(t, 2, counts["d"])
	assert.Equal(t, 1, counts["b"])
	assert.Equal(t, 1, counts["c"])
}

func TestSelectGroupsTooManyDistinctGuard(t *testing.T) {
	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "feature", Field: schemamodel.Leaf(schemamodel.DTypeString)},
	))
	rows := make([]record.Row, 15)
	for i := range rows {
		rows[i] = record.Row{"uuid": strconv.Itoa(i), "feature": strconv.Itoa(i)}
	}
	res, err := SelectGroups(schema, rows, "uuid", schemamodel.Path{"feature"}, GroupsOptions{TooManyDistinct: 5})
	require.NoError(t, err)
	assert.True(t, res.TooManyDistinct)
	assert.Empty(t, res.Counts)
}

func TestSelectGroupsAutoBinsForFloats(t *testing.T) {
	schema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: "uuid", Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: "feature", Field: schemamodel.Leaf(schemamodel.DTypeFloat)},
	))
	rows := []record.Row{
		{"uuid": "1", "feature": 0.0},
		{"uuid": "2", "feature": 1.0},
		{"uuid": "3", "feature": 2.0},
		{"uuid": "4", "feature": 3.0},
		{"uuid": "5", "feature": 4.0},
		{"uuid": "6", "feature": math.NaN()},
	}
	res, err := SelectGroups(schema, rows, "uuid", schemamodel.Path{"feature"}, GroupsOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Bins)

	total := 0
	sawNull := false
	for _, c := range res.Counts {
		total += c.Count
		if c.Value == nil {
			sawNull = true
			continue
		}
		label, ok := c.Value.(string)
		require.True(t, ok, "bucket labels must be stringified indices")
		_, convErr := parseStringifiedInt(label)
		assert.NoError(t, convErr)
	}
	assert.True(t, sawNull)
	assert.Equal(t, 6, total)
}

func parseStringifiedInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a stringified index")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func TestSelectGroupsInvalidLeaf(t *testing.T) {
	schema := scenarioSchema()

	_, err := SelectGroups(schema, scenarioRows(), "uuid", schemamodel.Path{"nested_struct", "struct", "wrong_name2"}, GroupsOptions{})
	require.Error(t, err)
	var dsErr *dataseterr.Error
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, dataseterr.KindPathNotInSchema, dsErr.Kind)

	_, err = SelectGroups(schema, scenarioRows(), "uuid", schemamodel.Path{"nested_struct"}, GroupsOptions{})
	require.Error(t, err)
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, dataseterr.KindPathNotLeaf, dsErr.Kind)
}
