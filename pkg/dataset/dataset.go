// Package dataset is the public façade over the engine: open a dataset
// directory and run its operator surface -- manifest, stats, select_groups,
// select_rows, compute_signal_column, compute_embedding_index -- without
// reaching into the internal packages that implement them.
package dataset

import (
	"context"
	"fmt"

	"dataset-engine/internal/config"
	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/embedding"
	"dataset-engine/internal/logging"
	"dataset-engine/internal/manifest"
	"dataset-engine/internal/progress"
	"dataset-engine/internal/query"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/signal"
	"dataset-engine/internal/view"
)

// Dataset is a single opened dataset directory (<root>/<namespace>/<dataset>/).
type Dataset struct {
	dir        string
	store      *manifest.Store
	views      *view.Cache
	embeddings *embedding.Engine
	signals    *signal.Engine
	log        *logging.Logger
	cfg        *config.Config
}

// Open checks that dir holds a readable source manifest; computed columns
// are discovered on each operator call. The returned Dataset caches the
// joined view across calls and
// invalidates it whenever ComputeSignalColumn commits a new signal
// manifest.
func Open(dir string) (*Dataset, error) {
	cfg := config.Load()
	log := logging.NewFromDebug(cfg.Debug)

	store := manifest.NewStore(dir)
	if _, err := store.LoadSource(); err != nil {
		return nil, err
	}

	embeddings := embedding.NewEngine(dir)
	return &Dataset{
		dir:        dir,
		store:      store,
		views:      view.NewCache(dir),
		embeddings: embeddings,
		signals:    signal.NewEngine(dir, embeddings),
		log:        log,
		cfg:        cfg,
	}, nil
}

// Manifest returns the current merged DatasetManifest (the manifest()
// operator).
func (d *Dataset) Manifest() (*manifest.DatasetManifest, error) {
	merged, _, err := d.store.LoadMerged()
	return merged, err
}

// joined returns the cached joined view, rebuilding it if the set of
// signal manifests has changed since the last call.
func (d *Dataset) joined() (*manifest.DatasetManifest, *view.View, error) {
	source, err := d.store.LoadSource()
	if err != nil {
		return nil, nil, err
	}
	cols, err := d.store.LoadComputedColumns()
	if err != nil {
		return nil, nil, err
	}
	merged, err := manifest.Merge(source, cols)
	if err != nil {
		return nil, nil, err
	}
	v, err := d.views.Get(source, cols)
	if err != nil {
		return nil, nil, err
	}
	return merged, v, nil
}

// Stats implements the stats() operator over leafPath.
func (d *Dataset) Stats(leafPath schemamodel.Path) (*query.StatsResult, error) {
	merged, v, err := d.joined()
	if err != nil {
		return nil, err
	}
	return query.Stats(merged.DataSchema, v.Rows, manifest.UUIDColumn, leafPath)
}

// SelectGroups implements select_groups() over leafPath.
func (d *Dataset) SelectGroups(leafPath schemamodel.Path, opts query.GroupsOptions) (*query.GroupsResult, error) {
	merged, v, err := d.joined()
	if err != nil {
		return nil, err
	}
	return query.SelectGroups(merged.DataSchema, v.Rows, manifest.UUIDColumn, leafPath, opts)
}

// SelectRows implements select_rows().
func (d *Dataset) SelectRows(ctx context.Context, opts query.RowsOptions) (*query.RowsResult, error) {
	merged, v, err := d.joined()
	if err != nil {
		return nil, err
	}
	return query.SelectRows(ctx, merged.DataSchema, v.Rows, manifest.UUIDColumn, d.embeddings, opts)
}

// ComputeSignalColumn implements compute_signal_column(): runs sig over
// leafPath, registers the result under columnName, and invalidates the
// cached joined view so the next query sees it. When config.DEBUG is set,
// progress is reported on stderr as the signal's output channel drains.
func (d *Dataset) ComputeSignalColumn(ctx context.Context, leafPath schemamodel.Path, columnName string, sig signal.Signal) (*manifest.SignalManifest, error) {
	merged, v, err := d.joined()
	if err != nil {
		return nil, err
	}
	if d.cfg.Debug {
		d.signals.SetProgress(progress.NewReporter(columnName, int64(merged.NumItems)))
	}
	sm, err := d.signals.ComputeSignalColumn(ctx, merged.DataSchema, v.Rows, leafPath, columnName, sig)
	if err != nil {
		return nil, err
	}
	d.views.Invalidate()
	d.log.Info("computed signal column %q (%s) over %v", columnName, sig.Name(), leafPath)
	return sm, nil
}

// ComputeEmbeddingIndex implements compute_embedding_index(): runs sig over
// leafPath's raw values to produce a vector per occurrence and persists the
// (key, vector) pairs to the on-disk store at (leafPath, embeddingName),
// populating the in-memory cache for immediate use by subsequent
// select_rows transforms and embedding-based signals. sig reads leaf values
// directly, the same way any other signal does -- the embedding model
// producing the vectors is an external collaborator; sig must not itself be
// embedding_based, since no vector store exists yet for this (leafPath,
// embeddingName) pair to read from.
func (d *Dataset) ComputeEmbeddingIndex(ctx context.Context, leafPath schemamodel.Path, embeddingName string, sig signal.Signal) error {
	if sig.EmbeddingBased() {
		return fmt.Errorf("dataset: signal %q is embedding-based and cannot itself produce an embedding index", sig.Name())
	}
	merged, v, err := d.joined()
	if err != nil {
		return err
	}
	leaf, notInSchema, notLeaf := merged.DataSchema.LeafAt(leafPath)
	if notInSchema {
		return dataseterr.PathNotInSchema(leafPath)
	}
	if notLeaf {
		return dataseterr.PathNotLeaf(leafPath)
	}
	if !sig.SupportsDtype(leaf.Dtype) {
		return dataseterr.EnrichmentTypeMismatch(leafPath, string(leaf.Dtype))
	}

	values, err := signal.ComputeTransform(ctx, merged.DataSchema, v.Rows, manifest.UUIDColumn, leafPath, sig, d.embeddings)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(values))
	vectors := make([][]float32, 0, len(values))
	for k, val := range values {
		if vec, ok := val.([]float32); ok {
			keys = append(keys, k)
			vectors = append(vectors, vec)
			continue
		}
		// A repeated leaf re-nests to a list ordered by repeated index, so
		// list position i is the occurrence keyed "uuid_i".
		list, ok := val.([]interface{})
		if !ok {
			continue
		}
		for i, elem := range list {
			if vec, ok := elem.([]float32); ok {
				keys = append(keys, signal.FlattenKey(k, int32(i), true))
				vectors = append(vectors, vec)
			}
		}
	}
	_, err = d.embeddings.Compute(leafPath, embeddingName, keys, vectors)
	return err
}
