package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/signal"
)

// builtinSignals is the small registry of ready-to-run signals datasetctl
// can invoke by name. Concrete signals are otherwise supplied by external
// callers embedding pkg/dataset; these exist so compute-signal-column and
// compute-embedding-index have something to demonstrate from the command
// line.
var builtinSignals = map[string]func(string) signal.Signal{
	"uppercase":   func(string) signal.Signal { return uppercaseSignal{} },
	"text_length": func(string) signal.Signal { return textLengthSignal{} },
	"hash_vector": func(string) signal.Signal { return hashVectorSignal{} },
}

func lookupSignal(name string) (signal.Signal, error) {
	ctor, ok := builtinSignals[name]
	if !ok {
		names := make([]string, 0, len(builtinSignals))
		for n := range builtinSignals {
			names = append(names, n)
		}
		return nil, fmt.Errorf("unknown signal %q (available: %s)", name, strings.Join(names, ", "))
	}
	return ctor(name), nil
}

// uppercaseSignal upper-cases a string leaf.
type uppercaseSignal struct{}

func (uppercaseSignal) Name() string           { return "uppercase" }
func (uppercaseSignal) EnrichmentType() string { return "text" }
func (uppercaseSignal) EmbeddingBased() bool   { return false }
func (uppercaseSignal) EmbeddingName() string  { return "" }
func (uppercaseSignal) SupportsDtype(dt schemamodel.DType) bool {
	return dt == schemamodel.DTypeString
}
func (uppercaseSignal) OutputField() *schemamodel.Field {
	return schemamodel.Leaf(schemamodel.DTypeString)
}
func (uppercaseSignal) Compute(ctx context.Context, in signal.ComputeInput) (<-chan signal.ComputeOutput, error) {
	out := make(chan signal.ComputeOutput, len(in.Keys))
	for i, k := range in.Keys {
		var v interface{}
		if s, ok := in.Data[i].(string); ok {
			v = strings.ToUpper(s)
		}
		out <- signal.ComputeOutput{Key: k, Value: v}
	}
	close(out)
	return out, nil
}

// textLengthSignal reports the rune length of a string leaf.
type textLengthSignal struct{}

func (textLengthSignal) Name() string           { return "text_length" }
func (textLengthSignal) EnrichmentType() string { return "numeric" }
func (textLengthSignal) EmbeddingBased() bool   { return false }
func (textLengthSignal) EmbeddingName() string  { return "" }
func (textLengthSignal) SupportsDtype(dt schemamodel.DType) bool {
	return dt == schemamodel.DTypeString
}
func (textLengthSignal) OutputField() *schemamodel.Field {
	return schemamodel.Leaf(schemamodel.DTypeInt)
}
func (textLengthSignal) Compute(ctx context.Context, in signal.ComputeInput) (<-chan signal.ComputeOutput, error) {
	out := make(chan signal.ComputeOutput, len(in.Keys))
	for i, k := range in.Keys {
		var v interface{}
		if s, ok := in.Data[i].(string); ok {
			v = int64(len([]rune(s)))
		}
		out <- signal.ComputeOutput{Key: k, Value: v}
	}
	close(out)
	return out, nil
}

// hashVectorSignal stands in for an external embedding model: it derives a
// small deterministic float vector from each string leaf's hash, so
// compute-embedding-index has a concrete signal to exercise without a live
// model endpoint. It is not embedding_based itself -- it reads leaf values
// directly to build the index an embedding_based signal would later consume.
// Its per-occurrence output is itself a fixed-length float vector, so its
// OutputField is a list of floats rather than a scalar leaf.
type hashVectorSignal struct{}

const hashVectorDims = 8

func (hashVectorSignal) Name() string           { return "hash_vector" }
func (hashVectorSignal) EnrichmentType() string { return "embedding" }
func (hashVectorSignal) EmbeddingBased() bool   { return false }
func (hashVectorSignal) EmbeddingName() string  { return "" }
func (hashVectorSignal) SupportsDtype(dt schemamodel.DType) bool {
	return dt == schemamodel.DTypeString
}
func (hashVectorSignal) OutputField() *schemamodel.Field {
	return schemamodel.List(schemamodel.Leaf(schemamodel.DTypeFloat))
}
func (hashVectorSignal) Compute(ctx context.Context, in signal.ComputeInput) (<-chan signal.ComputeOutput, error) {
	out := make(chan signal.ComputeOutput, len(in.Keys))
	for i, k := range in.Keys {
		var v interface{}
		if s, ok := in.Data[i].(string); ok {
			v = hashVector(s)
		}
		out <- signal.ComputeOutput{Key: k, Value: v}
	}
	close(out)
	return out, nil
}

func hashVector(s string) []float32 {
	vec := make([]float32, hashVectorDims)
	for i := range vec {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, s)
		vec[i] = float32(h.Sum32()%1000) / 1000
	}
	return vec
}
