package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/schemamodel"
)

func TestEngineComputeThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	eng := NewEngine(dir)
	path := schemamodel.Path{"doc", "*", "text"}

	keys := []string{"a_0", "a_1", "b_0"}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}

	_, err := eng.Compute(path, "minilm", keys, vectors)
	require.NoError(t, err)

	store, err := eng.Get(path, "minilm")
	require.NoError(t, err)
	assert.ElementsMatch(t, keys, store.Keys())
}

func TestEngineGetMissingIndex(t *testing.T) {
	dir := t.TempDir()
	eng := NewEngine(dir)
	_, err := eng.Get(schemamodel.Path{"doc"}, "minilm")
	require.Error(t, err)
	var dsErr *dataseterr.Error
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, dataseterr.KindMissingEmbedding, dsErr.Kind)
}

func TestFreshEngineLoadsPersistedIndexFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := schemamodel.Path{"doc"}

	eng1 := NewEngine(dir)
	_, err := eng1.Compute(path, "minilm", []string{"a"}, [][]float32{{1, 2, 3}})
	require.NoError(t, err)

	eng2 := NewEngine(dir) // fresh engine, forces a disk load
	store, err := eng2.Get(path, "minilm")
	require.NoError(t, err)
	v, ok := store.Vector("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestMemStoreTopK(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.Add(
		[]string{"close", "far", "opposite"},
		[][]float32{{1, 0}, {0.9, 0.1}, {-1, 0}},
	))

	top, err := store.TopK([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "close", top[0].Key)
	assert.Equal(t, "far", top[1].Key)
}
