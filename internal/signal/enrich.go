package signal

import (
	"context"
	"path/filepath"

	"dataset-engine/internal/colvec"
	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/embedding"
	"dataset-engine/internal/manifest"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/selector"
	"dataset-engine/internal/shardio"
)

// valueFieldName is the field name every signal shard stores its output
// under; the top-level column name the dataset exposes is chosen
// separately by the caller of ComputeSignalColumn.
const valueFieldName = "value"

// Engine orchestrates compute_signal_column: select the leaf, run the
// signal, re-nest its flat output back into the leaf's shape, write the
// shard and the signal manifest that commits the enrichment.
type Engine struct {
	datasetDir string
	embeddings *embedding.Engine
	progress   ProgressReporter
}

// NewEngine returns an Engine rooted at datasetDir, sharing embeddings (the
// dataset's embedding.Engine) for embedding-based signals.
func NewEngine(datasetDir string, embeddings *embedding.Engine) *Engine {
	return &Engine{datasetDir: datasetDir, embeddings: embeddings}
}

// SetProgress attaches a reporter that observes every subsequent
// ComputeSignalColumn run's output stream. Passing nil turns progress
// reporting back off.
func (e *Engine) SetProgress(r ProgressReporter) {
	e.progress = r
}

// ComputeSignalColumn runs sig over leafPath and registers the result under
// columnName. mergedSchema and rows are the current merged schema and
// joined view the leaf is selected against, so a signal enriching a leaf of
// a previously computed column resolves correctly (chained enrichment).
func (e *Engine) ComputeSignalColumn(ctx context.Context, mergedSchema *schemamodel.Schema, rows []record.Row, leafPath schemamodel.Path, columnName string, sig Signal) (*manifest.SignalManifest, error) {
	leaf, notInSchema, notLeaf := mergedSchema.LeafAt(leafPath)
	if notInSchema {
		return nil, dataseterr.PathNotInSchema(leafPath)
	}
	if notLeaf {
		return nil, dataseterr.PathNotLeaf(leafPath)
	}
	if !sig.SupportsDtype(leaf.Dtype) {
		return nil, dataseterr.EnrichmentTypeMismatch(leafPath, string(leaf.Dtype))
	}

	frame, err := selector.Select(mergedSchema, rows, manifest.UUIDColumn, leafPath, selector.Options{OnlyKeys: sig.EmbeddingBased()})
	if err != nil {
		return nil, err
	}
	defer frame.Release()

	keys := flattenFrameKeys(frame)

	in := ComputeInput{Keys: keys}
	if sig.EmbeddingBased() {
		store, err := e.embeddings.Get(leafPath, sig.EmbeddingName())
		if err != nil {
			return nil, err
		}
		in.VectorStore = store
	} else {
		data := make([]interface{}, frame.Len())
		for i := 0; i < frame.Len(); i++ {
			data[i] = frame.Value(i)
		}
		in.Data = data
	}

	outCh, err := sig.Compute(ctx, in)
	if err != nil {
		return nil, dataseterr.Internal(err, "signal %q: compute", sig.Name())
	}
	if e.progress != nil {
		outCh = e.progress.Wrap(outCh)
	}

	values := make(map[string]interface{}, frame.Len())
	for out := range outCh {
		select {
		case <-ctx.Done():
			return nil, dataseterr.Internal(ctx.Err(), "signal %q: cancelled", sig.Name())
		default:
		}
		if out.Err != nil {
			return nil, dataseterr.Internal(out.Err, "signal %q: compute key %q", sig.Name(), out.Key)
		}
		values[out.Key] = out.Value
	}

	outRows := unflatten(frame, keys, values)

	outputField := sig.OutputField()
	fieldSchema := outputField
	if leafPath.NumWildcards() > 0 {
		fieldSchema = schemamodel.List(outputField)
	}

	shardSchema := schemamodel.NewSchema(schemamodel.NewOrderedFields(
		schemamodel.FieldPair{Name: manifest.UUIDColumn, Field: schemamodel.Leaf(schemamodel.DTypeString)},
		schemamodel.FieldPair{Name: valueFieldName, Field: fieldSchema},
	))

	shardPath := manifest.ShardPath(e.datasetDir, columnName, sig.Name())
	manifestPath := manifest.SignalManifestPath(e.datasetDir, columnName, sig.Name())

	if err := shardio.WriteShard(shardPath, shardSchema, outRows); err != nil {
		return nil, dataseterr.Internal(err, "signal %q: write shard", sig.Name())
	}

	sm := &manifest.SignalManifest{
		Files:              []string{filepath.Base(shardPath)},
		TopLevelColumnName: columnName,
		DataSchema:         shardSchema,
		Signal:             manifest.SignalRef{Name: sig.Name()},
		EnrichedPath:       schemamodel.Path{valueFieldName},
	}
	if err := manifest.WriteSignalManifest(manifestPath, sm); err != nil {
		shardio.DeleteIfExists(shardPath) // no partial shard survives a failed enrichment
		return nil, dataseterr.Internal(err, "signal %q: write manifest", sig.Name())
	}
	return sm, nil
}

func flattenFrameKeys(frame *colvec.Frame) []string {
	keys := make([]string, frame.Len())
	for i := range keys {
		idx, ok := frame.RepeatedIndices(i)
		keys[i] = FlattenKey(frame.UUID(i), idx, ok)
	}
	return keys
}

// unflatten re-structures the signal's flat key -> value outputs back into
// one row per uuid, restoring the leaf's repeated shape from the recorded
// repeated-index vectors.
func unflatten(frame *colvec.Frame, keys []string, values map[string]interface{}) []record.Row {
	restructured := Restructure(frame, keys, values)

	order := make([]string, 0, len(restructured))
	seen := make(map[string]bool, len(restructured))
	for i := 0; i < frame.Len(); i++ {
		uuid := frame.UUID(i)
		if !seen[uuid] {
			seen[uuid] = true
			order = append(order, uuid)
		}
	}

	rows := make([]record.Row, 0, len(order))
	for _, uuid := range order {
		rows = append(rows, record.Row{manifest.UUIDColumn: uuid, valueFieldName: restructured[uuid]})
	}
	return rows
}
