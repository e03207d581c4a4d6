package memory

import (
	"github.com/eidetica/eidetica/backend/internal/dag"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/height"
	"github.com/eidetica/eidetica/id"
)

// parentsFunc, ancestorSet and toposort are thin aliases over the shared
// backend/internal/dag graph math (also used by backend/sql), so the two
// backend implementations can't silently drift on tip/ancestor semantics.
type parentsFunc = dag.ParentsFunc

func ancestorSet(from id.Set, parents parentsFunc) map[id.ID]struct{} {
	return dag.AncestorSet(from, parents)
}

func toposort(set map[id.ID]struct{}, parents parentsFunc) []id.ID {
	return dag.Toposort(set, parents)
}

// computeTips adapts dag.ComputeTips to a map keyed by *entry.Entry, which
// is the shape every call site in memory.go/persist.go already has on hand.
func computeTips(scope map[id.ID]*entry.Entry, parents parentsFunc) id.Set {
	bare := make(map[id.ID]struct{}, len(scope))
	for eid := range scope {
		bare[eid] = struct{}{}
	}
	return dag.ComputeTips(bare, parents)
}

// heightParents adapts a parentsFunc (no error, since every backend here
// resolves parents from an in-memory map it already validated) to the
// height package's ParentsFunc shape, which allows for I/O-backed parent
// lookups in other backend implementations.
func heightParents(pf parentsFunc) height.ParentsFunc {
	return func(e id.ID) (id.Set, error) { return pf(e), nil }
}
