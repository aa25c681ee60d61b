package signal

import (
	"context"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/embedding"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/selector"
)

// ComputeTransform runs sig over leafPath without writing a shard or
// manifest, returning the re-nested uuid -> value map a select_rows
// transform step needs. It mirrors Engine.ComputeSignalColumn's
// selector/compute/restructure sequence, stopping short of persistence.
func ComputeTransform(ctx context.Context, schema *schemamodel.Schema, rows []record.Row, uuidCol string, leafPath schemamodel.Path, sig Signal, embeddings *embedding.Engine) (map[string]interface{}, error) {
	frame, err := selector.Select(schema, rows, uuidCol, leafPath, selector.Options{OnlyKeys: sig.EmbeddingBased()})
	if err != nil {
		return nil, err
	}
	defer frame.Release()

	keys := flattenFrameKeys(frame)

	in := ComputeInput{Keys: keys}
	if sig.EmbeddingBased() {
		store, err := embeddings.Get(leafPath, sig.EmbeddingName())
		if err != nil {
			return nil, err
		}
		in.VectorStore = store
	} else {
		data := make([]interface{}, frame.Len())
		for i := range data {
			data[i] = frame.Value(i)
		}
		in.Data = data
	}

	outCh, err := sig.Compute(ctx, in)
	if err != nil {
		return nil, dataseterr.Internal(err, "signal %q: compute", sig.Name())
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

	return Restructure(frame, keys, values), nil
}
