package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dataset-engine/internal/schemamodel"
)

// signalManifestSuffix matches the dataset directory layout's
// "<column>.<signal>.signal_manifest.json" file naming.
const signalManifestSuffix = ".signal_manifest.json"

const sourceManifestName = "manifest.json"

// Store reads one source manifest and discovers every signal manifest under
// a dataset directory.
type Store struct {
	datasetDir string
}

// NewStore returns a Store rooted at datasetDir (<root>/<namespace>/<dataset>).
func NewStore(datasetDir string) *Store {
	return &Store{datasetDir: datasetDir}
}

// DatasetDir returns the directory the store was constructed with.
func (s *Store) DatasetDir() string { return s.datasetDir }

// LoadSource reads the dataset directory's source manifest.
func (s *Store) LoadSource() (*SourceManifest, error) {
	data, err := os.ReadFile(filepath.Join(s.datasetDir, sourceManifestName))
	if err != nil {
		return nil, fmt.Errorf("manifest: read source manifest: %w", err)
	}
	var sm SourceManifest
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("manifest: parse source manifest: %w", err)
	}
	if err := validateSpanRefs(sm.DataSchema); err != nil {
		return nil, err
	}
	return &sm, nil
}

// validateSpanRefs checks, at manifest-load time, that every string_span
// leaf's refers_to path exists and is string-typed. This is a weak
// reference, never ownership, so it is validated here rather than at
// schema-construction time.
func validateSpanRefs(schema *schemamodel.Schema) error {
	for _, path := range schema.LeafOrder {
		f := schema.Leafs[path.String()]
		if f.Dtype != schemamodel.DTypeStringSpan {
			continue
		}
		refField, found := schema.Resolve(schemamodel.Path(f.RefersTo))
		if !found {
			return fmt.Errorf("manifest: string_span leaf %s refers_to missing path %v", path, f.RefersTo)
		}
		if refField.Dtype != schemamodel.DTypeString {
			return fmt.Errorf("manifest: string_span leaf %s refers_to non-string path %v", path, f.RefersTo)
		}
	}
	return nil
}

// DiscoverSignalManifests lists, in sorted order for determinism, every
// *.signal_manifest.json file directly under the dataset directory.
func (s *Store) DiscoverSignalManifests() ([]string, error) {
	entries, err := os.ReadDir(s.datasetDir)
	if err != nil {
		return nil, fmt.Errorf("manifest: read dataset dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), signalManifestSuffix) {
			paths = append(paths, filepath.Join(s.datasetDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadComputedColumns discovers and reads every signal manifest, returning
// the ComputedColumn digest the view builder and merged schema consume.
func (s *Store) LoadComputedColumns() ([]ComputedColumn, error) {
	paths, err := s.DiscoverSignalManifests()
	if err != nil {
		return nil, err
	}
	cols := make([]ComputedColumn, 0, len(paths))
	for _, p := range paths {
		col, err := s.loadOne(p)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (s *Store) loadOne(path string) (ComputedColumn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ComputedColumn{}, fmt.Errorf("manifest: read signal manifest %s: %w", path, err)
	}
	var sm SignalManifest
	if err := json.Unmarshal(data, &sm); err != nil {
		return ComputedColumn{}, fmt.Errorf("manifest: parse signal manifest %s: %w", path, err)
	}

	valueField, found := sm.DataSchema.Resolve(sm.EnrichedPath)
	if !found {
		return ComputedColumn{}, fmt.Errorf("manifest: signal manifest %s enriched_path %v not in its own schema", path, sm.EnrichedPath)
	}

	return ComputedColumn{
		Files:              sm.Files,
		TopLevelColumnName: sm.TopLevelColumnName,
		ValueFieldName:     sm.EnrichedPath[len(sm.EnrichedPath)-1],
		ValueFieldSchema:   valueField,
		EnrichedPath:       sm.EnrichedPath,
		Signal:             sm.Signal,
		ManifestPath:       path,
	}, nil
}

// LoadMerged reads the source manifest and every computed column, returning
// the merged DatasetManifest.
func (s *Store) LoadMerged() (*DatasetManifest, []ComputedColumn, error) {
	source, err := s.LoadSource()
	if err != nil {
		return nil, nil, err
	}
	cols, err := s.LoadComputedColumns()
	if err != nil {
		return nil, nil, err
	}
	merged, err := Merge(source, cols)
	if err != nil {
		return nil, nil, err
	}
	return merged, cols, nil
}

// WriteSignalManifest writes sm to path atomically: temp file then rename,
// so a crash mid-write never leaves a corrupt manifest at the final path.
// The manifest write is what commits an enrichment.
func WriteSignalManifest(path string, sm *SignalManifest) error {
	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: marshal signal manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("manifest: write signal manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("manifest: rename signal manifest into place: %w", err)
	}
	return nil
}

// SignalManifestPath computes the conventional path for a (column, signal)
// pair under datasetDir.
func SignalManifestPath(datasetDir, columnName, signalName string) string {
	return filepath.Join(datasetDir, fmt.Sprintf("%s.%s.signal_manifest.json", columnName, signalName))
}

// ShardPath computes the conventional shard path for a (column, signal)
// pair under datasetDir.
func ShardPath(datasetDir, columnName, signalName string) string {
	return filepath.Join(datasetDir, fmt.Sprintf("%s.%s.parquet", columnName, signalName))
}
