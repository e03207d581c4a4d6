package height

import (
	"sort"

	"github.com/eidetica/eidetica/id"
)

// ParentsFunc returns the direct parents of entry within whatever DAG scope
// the caller is computing over (tree-level or a single store).
type ParentsFunc func(entry id.ID) (id.Set, error)

// CalculateAll computes the height of from and every one of its ancestors
// by walking ParentsFunc backward, memoizing as it goes (spec.md §4.4's
// calculate_heights; callers typically pass a tree's tips as from to cover
// its whole history). Heights are a pure function of ancestry, so the
// result is independent of from's iteration order.
func CalculateAll(calc *Calculator, from id.Set, parents ParentsFunc) (map[id.ID]uint64, error) {
	memo := make(map[id.ID]uint64)
	var visit func(e id.ID) (uint64, error)
	visit = func(e id.ID) (uint64, error) {
		if h, ok := memo[e]; ok {
			return h, nil
		}
		ps, err := parents(e)
		if err != nil {
			return 0, err
		}
		if len(ps) == 0 {
			h := calc.Calculate(0, false)
			memo[e] = h
			return h, nil
		}
		var maxParent uint64
		for i, p := range ps {
			ph, err := visit(p)
			if err != nil {
				return 0, err
			}
			if i == 0 || ph > maxParent {
				maxParent = ph
			}
		}
		h := calc.Calculate(maxParent, true)
		memo[e] = h
		return h, nil
	}
	for _, r := range from {
		if _, err := visit(r); err != nil {
			return nil, err
		}
	}
	return memo, nil
}

// SortByHeight stable-sorts entries by (height ascending, id ascending),
// giving deterministic iteration order independent of map/traversal order
// (spec.md §4.4's sort_entries_by_height).
func SortByHeight(heights map[id.ID]uint64, entries id.Set) []id.ID {
	out := make([]id.ID, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := heights[out[i]], heights[out[j]]
		if hi != hj {
			return hi < hj
		}
		return out[i] < out[j]
	})
	return out
}
