// Package signal defines the Signal capability and the enrichment pipeline:
// selector -> external signal -> writer -> manifest registration ->
// invalidation of the cached joined view.
package signal

import (
	"context"

	"dataset-engine/internal/embedding"
	"dataset-engine/internal/schemamodel"
)

// Signal is an external computation mapping leaf values (or vector-store
// lookups) to a new field aligned one-for-one with the source leaf,
// preserving nesting. Concrete signals — the registry of named computations
// an enrichment run looks up — are external collaborators of this engine;
// this interface is the shape the engine calls them through.
type Signal interface {
	Name() string
	EnrichmentType() string
	EmbeddingBased() bool
	// EmbeddingName names the embedding identity this signal looks vectors
	// up under; meaningless when EmbeddingBased() is false.
	EmbeddingName() string
	// SupportsDtype reports whether this signal can enrich a leaf of dtype.
	SupportsDtype(dtype schemamodel.DType) bool
	// OutputField declares the signal's per-occurrence output shape.
	OutputField() *schemamodel.Field
	// Compute runs the signal. For embedding-based signals, in.Keys and
	// in.VectorStore are populated and in.Data is nil; otherwise in.Data
	// holds the leaf values aligned with in.Keys and in.VectorStore is nil.
	// The returned channel is the signal's output iterable; the engine wraps
	// it with progress reporting and observes cancellation only between
	// received elements.
	Compute(ctx context.Context, in ComputeInput) (<-chan ComputeOutput, error)
}

// ComputeInput is the data a Signal.Compute call receives.
type ComputeInput struct {
	Keys        []string
	Data        []interface{}
	VectorStore embedding.VectorStore
}

// ComputeOutput is one element of a signal's output iterable: the value
// computed for Key, or Err if that occurrence failed.
type ComputeOutput struct {
	Key   string
	Value interface{}
	Err   error
}

// ProgressReporter observes a signal's output stream without altering it,
// incrementing a display once per forwarded element. Kept as an interface
// here so Engine stays decoupled from any particular progress bar library;
// internal/progress provides the mpb-backed implementation.
type ProgressReporter interface {
	Wrap(<-chan ComputeOutput) <-chan ComputeOutput
}
