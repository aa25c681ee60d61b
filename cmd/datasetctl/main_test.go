package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIngestThenManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "records.json")
	datasetDir := filepath.Join(dir, "ds")

	data, err := json.Marshal([]map[string]interface{}{
		{"name": "alice", "active": true},
		{"uuid": "fixed-id", "name": "bob", "active": false},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(inputPath, data, 0o644))

	require.NoError(t, runIngest([]string{"--input", inputPath, "--dataset", datasetDir}))
	require.NoError(t, runManifest([]string{"--dataset", datasetDir}))

	manifestPath := filepath.Join(datasetDir, "manifest.json")
	require.FileExists(t, manifestPath)

	raw, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, float64(2), decoded["num_items"])
}

func TestLookupSignalRejectsUnknownName(t *testing.T) {
	_, err := lookupSignal("does-not-exist")
	require.Error(t, err)
}

func TestLookupSignalReturnsRegisteredSignals(t *testing.T) {
	for _, name := range []string{"uppercase", "text_length", "hash_vector"} {
		sig, err := lookupSignal(name)
		require.NoError(t, err)
		require.Equal(t, name, sig.Name())
	}
}
