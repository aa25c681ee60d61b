// Package embedding implements the on-disk embedding index: a per-(leaf
// path, embedding identity) vector store, keyed by flattened row key, lazily
// materialized into memory on first access and cached for the lifetime of
// the engine instance, not as a package-level singleton.
package embedding

import (
	"os"
	"path/filepath"
	"sync"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/schemamodel"
)

// Engine owns every embedding index for one dataset directory.
type Engine struct {
	mu         sync.Mutex
	datasetDir string
	stores     map[string]VectorStore
}

// NewEngine returns an Engine rooted at datasetDir. No indexes are read
// until Get or Compute first reference them.
func NewEngine(datasetDir string) *Engine {
	return &Engine{datasetDir: datasetDir, stores: make(map[string]VectorStore)}
}

// IndexPath computes the conventional on-disk path for one (leaf path,
// embedding) index, under an "embeddings/" subdirectory of the dataset.
func (e *Engine) IndexPath(leafPath schemamodel.Path, embeddingName string) string {
	return filepath.Join(e.datasetDir, "embeddings", leafPath.String()+"."+embeddingName+".bolt")
}

// Get returns the cached VectorStore for (leafPath, embeddingName), loading
// it from disk on first access. It fails with dataseterr.MissingEmbedding if
// no index has ever been computed for that pair.
func (e *Engine) Get(leafPath schemamodel.Path, embeddingName string) (VectorStore, error) {
	cacheKey := leafPath.String() + "\x00" + embeddingName

	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.stores[cacheKey]; ok {
		return s, nil
	}

	path := e.IndexPath(leafPath, embeddingName)
	if _, err := os.Stat(path); err != nil {
		return nil, dataseterr.MissingEmbedding(leafPath, embeddingName)
	}
	store, err := load(path)
	if err != nil {
		return nil, dataseterr.Internal(err, "embedding: load index for %s/%s", leafPath, embeddingName)
	}
	e.stores[cacheKey] = store
	return store, nil
}

// Compute writes a fresh index for (leafPath, embeddingName) from keys and
// their vectors, persists it to disk, and replaces any cached copy.
func (e *Engine) Compute(leafPath schemamodel.Path, embeddingName string, keys []string, vectors [][]float32) (VectorStore, error) {
	path := e.IndexPath(leafPath, embeddingName)
	if err := persist(path, keys, vectors); err != nil {
		return nil, dataseterr.Internal(err, "embedding: persist index for %s/%s", leafPath, embeddingName)
	}
	store := NewMemStore()
	if err := store.Add(keys, vectors); err != nil {
		return nil, dataseterr.Internal(err, "embedding: populate index for %s/%s", leafPath, embeddingName)
	}

	cacheKey := leafPath.String() + "\x00" + embeddingName
	e.mu.Lock()
	e.stores[cacheKey] = store
	e.mu.Unlock()
	return store, nil
}
