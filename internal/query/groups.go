package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"dataset-engine/internal/colvec"
	"dataset-engine/internal/dataseterr"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/selector"
)

// DefaultTooManyDistinct is the TOO_MANY_DISTINCT guard threshold used when
// GroupsOptions.TooManyDistinct is unset.
const DefaultTooManyDistinct = 500

// AutoBinCount is the fixed bucket count used when select_groups auto-bins a
// numeric leaf; exact boundaries are otherwise implementation-defined.
const AutoBinCount = 10

// NamedBins is bins normalized to boundaries + optional labels, expanding to
// k+1 half-open intervals.
type NamedBins struct {
	Boundaries []float64
	Labels     []string
}

// ExplicitBin is one (label, min, max) entry of the tuple bins form; nil
// Min/Max denote an open-ended boundary.
type ExplicitBin struct {
	Label string
	Min   *float64
	Max   *float64
}

// ExplicitBins is bins given as an ordered list of named, explicitly
// bounded intervals rather than shared boundaries.
type ExplicitBins []ExplicitBin

// GroupsOptions controls select_groups.
type GroupsOptions struct {
	Filters         []Filter
	SortBy          string // "value" or "count" (default "count")
	SortOrder       string // "asc" or "desc" (default "desc")
	Limit           int    // 0 means unlimited
	Bins            interface{}
	TooManyDistinct int // 0 means DefaultTooManyDistinct
}

// GroupCount is one (value, count) result tuple; Value is nil for the null
// group.
type GroupCount struct {
	Value interface{}
	Count int
}

// GroupsResult is select_groups' output.
type GroupsResult struct {
	Counts          []GroupCount
	TooManyDistinct bool
	Bins            []float64
}

// SelectGroups implements select_groups.
func SelectGroups(schema *schemamodel.Schema, rows []record.Row, uuidCol string, leafPath schemamodel.Path, opts GroupsOptions) (*GroupsResult, error) {
	leaf, notInSchema, notLeaf := schema.LeafAt(leafPath)
	if notInSchema {
		return nil, dataseterr.PathNotInSchema(leafPath)
	}
	if notLeaf {
		return nil, dataseterr.PathNotLeaf(leafPath)
	}

	pass, err := passingUUIDs(schema, rows, uuidCol, opts.Filters)
	if err != nil {
		return nil, err
	}

	frame, err := selector.Select(schema, rows, uuidCol, leafPath, selector.Options{})
	if err != nil {
		return nil, err
	}
	defer frame.Release()

	switch bins := opts.Bins.(type) {
	case nil:
		if leaf.Dtype.IsNumeric() {
			return autoBinGroups(frame, pass, opts)
		}
		threshold := opts.TooManyDistinct
		if threshold <= 0 {
			threshold = DefaultTooManyDistinct
		}
		// The guard reuses stats' approximate, sampled distinct count over
		// the full unfiltered dataset, not an exact count over the rows
		// that pass the caller's filters.
		statsResult, err := Stats(schema, rows, uuidCol, leafPath)
		if err != nil {
			return nil, err
		}
		if statsResult.ApproxCountDistinct >= threshold {
			return &GroupsResult{TooManyDistinct: true}, nil
		}
		return rawValueGroups(frame, pass, opts)
	case []float64:
		result, err := namedBinGroups(frame, pass, NamedBins{Boundaries: bins}, opts)
		return result, err
	case NamedBins:
		return namedBinGroups(frame, pass, bins, opts)
	case ExplicitBins:
		return explicitBinGroups(frame, pass, bins, opts)
	default:
		return nil, fmt.Errorf("query: unsupported bins representation %T", opts.Bins)
	}
}

// passingUUIDs evaluates every filter independently over rows and returns
// the set of uuids that satisfy all of them. Filters may reference any leaf
// path, not just the one being grouped.
func passingUUIDs(schema *schemamodel.Schema, rows []record.Row, uuidCol string, filters []Filter) (map[string]bool, error) {
	pass := make(map[string]bool, len(rows))
	for _, row := range rows {
		pass[row.UUID(uuidCol)] = true
	}

	for _, f := range filters {
		leaf, err := ValidateFilter(schema, f)
		if err != nil {
			return nil, err
		}
		frame, err := selector.Select(schema, rows, uuidCol, f.Path, selector.Options{})
		if err != nil {
			return nil, err
		}
		matched := make(map[string]bool, frame.Len())
		for i := 0; i < frame.Len(); i++ {
			if Matches(leaf.Dtype, frame.Value(i), f) {
				matched[frame.UUID(i)] = true
			}
		}
		frame.Release()
		for uuid := range pass {
			if pass[uuid] && !matched[uuid] {
				pass[uuid] = false
			}
		}
	}
	return pass, nil
}

// rawValueGroups groups by the leaf's raw value (string/bool/datetime with
// no bins given). The TOO_MANY_DISTINCT guard is evaluated by the caller,
// against stats' approximate distinct count over the full dataset, before
// this is reached.
func rawValueGroups(frame *colvec.Frame, pass map[string]bool, opts GroupsOptions) (*GroupsResult, error) {
	counts := map[interface{}]*GroupCount{}
	var order []interface{}

	for i := 0; i < frame.Len(); i++ {
		if !pass[frame.UUID(i)] {
			continue
		}
		v := frame.Value(i)
		key := groupKey(v)
		gc, exists := counts[key]
		if !exists {
			gc = &GroupCount{Value: v, Count: 0}
			counts[key] = gc
			order = append(order, key)
		}
		gc.Count++
	}

	return finalizeGroups(counts, order, opts), nil
}

// autoBinGroups computes equal-width buckets over [min, max] for a numeric
// leaf with no bins given.
func autoBinGroups(frame *colvec.Frame, pass map[string]bool, opts GroupsOptions) (*GroupsResult, error) {
	var min, max float64
	has := false
	for i := 0; i < frame.Len(); i++ {
		if !pass[frame.UUID(i)] {
			continue
		}
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
	if !has {
		return rawValueGroups(frame, pass, opts)
	}

	width := (max - min) / float64(AutoBinCount)
	if width == 0 {
		width = 1
	}
	boundaries := make([]float64, AutoBinCount-1)
	for i := range boundaries {
		boundaries[i] = min + width*float64(i+1)
	}
	return namedBinGroups(frame, pass, NamedBins{Boundaries: boundaries}, opts)
}

// namedBinGroups assigns each value to the half-open interval
// bin_min <= v < bin_max its boundary places it in.
func namedBinGroups(frame *colvec.Frame, pass map[string]bool, bins NamedBins, opts GroupsOptions) (*GroupsResult, error) {
	k := len(bins.Boundaries)
	labels := bins.Labels
	if len(labels) != k+1 {
		labels = make([]string, k+1)
		for i := range labels {
			labels[i] = strconv.Itoa(i)
		}
	}

	counts := map[interface{}]*GroupCount{}
	var order []interface{}

	for i := 0; i < frame.Len(); i++ {
		if !pass[frame.UUID(i)] {
			continue
		}
		v := frame.Value(i)
		var key, value interface{}
		if v == nil {
			key, value = nil, nil
		} else if f, ok := toFloat64(v); !ok || math.IsNaN(f) {
			key, value = nil, nil
		} else {
			b := bucketIndex(f, bins.Boundaries)
			key, value = b, labels[b]
		}
		gc, exists := counts[key]
		if !exists {
			gc = &GroupCount{Value: value, Count: 0}
			counts[key] = gc
			order = append(order, key)
		}
		gc.Count++
	}

	result := finalizeGroups(counts, order, opts)
	result.Bins = append([]float64(nil), bins.Boundaries...)
	return result, nil
}

func bucketIndex(f float64, boundaries []float64) int {
	for i, b := range boundaries {
		if f < b {
			return i
		}
	}
	return len(boundaries)
}

// explicitBinGroups assigns each value to the first ExplicitBin whose
// [min, max) range contains it.
func explicitBinGroups(frame *colvec.Frame, pass map[string]bool, bins ExplicitBins, opts GroupsOptions) (*GroupsResult, error) {
	counts := map[interface{}]*GroupCount{}
	var order []interface{}

	for i := 0; i < frame.Len(); i++ {
		if !pass[frame.UUID(i)] {
			continue
		}
		v := frame.Value(i)
		var key, value interface{}
		if v == nil {
			key, value = nil, nil
		} else if f, ok := toFloat64(v); !ok || math.IsNaN(f) {
			key, value = nil, nil
		} else if idx, label, found := matchExplicitBin(f, bins); found {
			key, value = idx, label
		} else {
			key, value = nil, nil
		}
		gc, exists := counts[key]
		if !exists {
			gc = &GroupCount{Value: value, Count: 0}
			counts[key] = gc
			order = append(order, key)
		}
		gc.Count++
	}

	result := finalizeGroups(counts, order, opts)
	for _, b := range bins {
		if b.Min != nil {
			result.Bins = append(result.Bins, *b.Min)
		}
	}
	return result, nil
}

func matchExplicitBin(f float64, bins ExplicitBins) (int, string, bool) {
	for i, b := range bins {
		if b.Min != nil && f < *b.Min {
			continue
		}
		if b.Max != nil && f >= *b.Max {
			continue
		}
		return i, b.Label, true
	}
	return 0, "", false
}

// finalizeGroups sorts the accumulated counts per opts.SortBy/SortOrder
// (stable, so ties preserve the engine's insertion order) and applies
// opts.Limit.
func finalizeGroups(counts map[interface{}]*GroupCount, order []interface{}, opts GroupsOptions) *GroupsResult {
	list := make([]GroupCount, 0, len(order))
	for _, k := range order {
		list = append(list, *counts[k])
	}

	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "count"
	}
	sortOrder := opts.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}

	less := func(i, j int) bool {
		switch sortBy {
		case "value":
			c := compareGroupValues(list[i].Value, list[j].Value)
			if sortOrder == "asc" {
				return c < 0
			}
			return c > 0
		default:
			if sortOrder == "asc" {
				return list[i].Count < list[j].Count
			}
			return list[i].Count > list[j].Count
		}
	}
	sort.SliceStable(list, less)

	if opts.Limit > 0 && len(list) > opts.Limit {
		list = list[:opts.Limit]
	}
	return &GroupsResult{Counts: list}
}

func compareGroupValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bool:
		bv, _ := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	default:
		af, aok := toFloat64(a)
		bf, bok := toFloat64(b)
		if !aok || !bok {
			return 0
		}
		return cmpFloat(af, bf)
	}
}
