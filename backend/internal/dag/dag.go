// Package dag holds the DAG-traversal math shared by every backend
// implementation (spec.md §4.4): ancestor collection, topological sort, and
// tip computation. Both backend/memory and backend/sql scope an entry set
// to one database root (and optionally one store) and then run the same
// graph algorithms over whatever subset each backend actually has stored,
// so the "tips reflect storage, not the logical DAG" invariant holds
// identically regardless of where the entries live.
package dag

import (
	"sort"

	"github.com/eidetica/eidetica/id"
)

// ParentsFunc returns the direct parents (within whatever DAG scope the
// caller cares about) of an entry already known to the backend. Entries not
// present in the backend report no parents; callers walking ancestry stop
// at the boundary of what is actually stored (spec.md §4.4's partial-sync
// tolerance).
type ParentsFunc func(id.ID) id.Set

// AncestorSet returns from plus every entry reachable by repeatedly
// following parents, via BFS.
func AncestorSet(from id.Set, parents ParentsFunc) map[id.ID]struct{} {
	seen := make(map[id.ID]struct{}, len(from))
	queue := append(id.Set(nil), from...)
	for i := 0; i < len(queue); i++ {
		e := queue[i]
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		for _, p := range parents(e) {
			if _, ok := seen[p]; !ok {
				queue = append(queue, p)
			}
		}
	}
	return seen
}

// Toposort returns the members of set in topological order (parents before
// children), tiebroken lexicographically by id for determinism.
func Toposort(set map[id.ID]struct{}, parents ParentsFunc) []id.ID {
	indegree := make(map[id.ID]int, len(set))
	children := make(map[id.ID][]id.ID, len(set))
	for e := range set {
		indegree[e] = 0
	}
	for e := range set {
		for _, p := range parents(e) {
			if _, ok := set[p]; !ok {
				continue
			}
			indegree[e]++
			children[p] = append(children[p], e)
		}
	}

	var ready []id.ID
	for e, d := range indegree {
		if d == 0 {
			ready = append(ready, e)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	out := make([]id.ID, 0, len(set))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		out = append(out, next)
		for _, c := range children[next] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	return out
}

// ComputeTips marks every parent referenced by a node in scope as having a
// child, even if that parent is not itself in scope (out-of-order sync:
// storing a child before its parent still removes the parent from tips once
// it arrives), and returns every scope member with no such child.
func ComputeTips(scope map[id.ID]struct{}, parents ParentsFunc) id.Set {
	hasChild := make(map[id.ID]struct{})
	for eid := range scope {
		for _, p := range parents(eid) {
			hasChild[p] = struct{}{}
		}
	}
	var out []id.ID
	for eid := range scope {
		if _, ok := hasChild[eid]; !ok {
			out = append(out, eid)
		}
	}
	return id.NewSet(out...)
}
