package query

import (
	"math"

	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/selector"
)

// SampleSizeDistinctCount is the sample cap for approximate distinct
// counting.
const SampleSizeDistinctCount = 100_000

// StatsResult is the per-leaf statistics operator's output.
type StatsResult struct {
	TotalCount          int
	ApproxCountDistinct int
	AvgTextLength       *float64
	MinVal              interface{}
	MaxVal              interface{}
}

// Stats computes StatsResult for leafPath over rows.
func Stats(schema *schemamodel.Schema, rows []record.Row, uuidCol string, leafPath schemamodel.Path) (*StatsResult, error) {
	leaf, notInSchema, notLeaf := schema.LeafAt(leafPath)
	if notInSchema {
		return nil, dataseterr.PathNotInSchema(leafPath)
	}
	if notLeaf {
		return nil, dataseterr.PathNotLeaf(leafPath)
	}

	frame, err := selector.Select(schema, rows, uuidCol, leafPath, selector.Options{})
	if err != nil {
		return nil, err
	}
	defer frame.Release()

	n := frame.Len()
	result := &StatsResult{TotalCount: n}

	sampleN := n
	if sampleN > SampleSizeDistinctCount {
		sampleN = SampleSizeDistinctCount
	}

	distinct := make(map[interface{}]struct{}, sampleN)
	var textLenSum, textLenCount int
	isText := leaf.Dtype == schemamodel.DTypeString || leaf.Dtype == schemamodel.DTypeStringSpan

	for i := 0; i < sampleN; i++ {
		v := frame.Value(i)
		if v == nil {
			continue
		}
		distinct[groupKey(v)] = struct{}{}
		if isText {
			if s, ok := v.(string); ok {
				textLenSum += len(s)
				textLenCount++
			}
		}
	}

	approx := len(distinct)
	if n > sampleN && sampleN > 0 {
		approx = int(float64(approx) * float64(n) / float64(sampleN))
	}
	result.ApproxCountDistinct = approx

	if textLenCount > 0 {
		avg := float64(textLenSum) / float64(textLenCount)
		result.AvgTextLength = &avg
	}

	if leaf.Dtype.IsOrdinal() {
		var min, max float64
		has := false
		for i := 0; i < n; i++ {
			v := frame.Value(i)
			if v == nil {
				continue
			}
			f, ok := toFloat64(v)
			if !ok || math.IsNaN(f) {
				continue
			}
			if !has || f < min {
				min = f
			}
			if !has || f > max {
				max = f
			}
			has = true
		}
		if has {
			result.MinVal = fromFloat64(leaf.Dtype, min)
			result.MaxVal = fromFloat64(leaf.Dtype, max)
		}
	}

	return result, nil
}
