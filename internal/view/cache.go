package view

import (
	"strings"
	"sync"

	"dataset-engine/internal/manifest"
)

// Cache rebuilds the joined View only when the set of signal manifest
// filepaths changes: the joined view is rebuilt atomically whenever the
// signal-manifest file set differs.
type Cache struct {
	mu       sync.Mutex
	key      string
	view     *View
	datasetDir string
}

// NewCache constructs an empty cache for one dataset directory.
func NewCache(datasetDir string) *Cache {
	return &Cache{datasetDir: datasetDir}
}

// Get returns the cached view if columns' manifest filepaths match the last
// build, otherwise rebuilds and caches it.
func (c *Cache) Get(source *manifest.SourceManifest, columns []manifest.ComputedColumn) (*View, error) {
	key := strings.Join(manifest.SignalManifestFilepaths(columns), "\x00")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view != nil && c.key == key {
		return c.view, nil
	}

	v, err := Build(c.datasetDir, source, columns)
	if err != nil {
		return nil, err
	}
	c.view = v
	c.key = key
	return v, nil
}

// Invalidate drops the cached view unconditionally, forcing the next Get to
// rebuild. Used after compute_signal_column writes a new manifest.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = nil
	c.key = ""
}
