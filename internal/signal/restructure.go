package signal

import (
	"sort"

	"dataset-engine/internal/colvec"
)

// Restructure re-nests a flat key -> value map back to one entry per row
// uuid, restoring the leaf's repeated shape from frame's recorded
// repeated-index vectors: the repeated-index vector captured during
// selection is the single source of truth for re-nesting. A scalar leaf
// yields one value per uuid; a leaf with one wildcard segment yields a list
// ordered by index.
//
// Exported for reuse by both the enrichment pipeline (this package) and
// select_rows' post-projection transform step (internal/query), which
// re-nests a signal transform's output the same way.
func Restructure(frame *colvec.Frame, keys []string, values map[string]interface{}) map[string]interface{} {
	type occurrence struct {
		idx int32
		val interface{}
	}
	hasIdx := make(map[string]bool)
	items := make(map[string][]occurrence)

	for i := 0; i < frame.Len(); i++ {
		uuid := frame.UUID(i)
		idx, ok := frame.RepeatedIndices(i)
		hasIdx[uuid] = ok
		items[uuid] = append(items[uuid], occurrence{idx: idx, val: values[keys[i]]})
	}

	out := make(map[string]interface{}, len(items))
	for uuid, occs := range items {
		if hasIdx[uuid] {
			sort.Slice(occs, func(a, b int) bool { return occs[a].idx < occs[b].idx })
			list := make([]interface{}, len(occs))
			for i, o := range occs {
				list[i] = o.val
			}
			out[uuid] = list
		} else {
			out[uuid] = occs[0].val
		}
	}
	return out
}
