package sqlbackend

import (
	"fmt"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/backend/internal/dag"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/height"
	"github.com/eidetica/eidetica/id"
)

// treeEntries loads every entry belonging to root's database (the root
// entry itself plus every entry whose tree_id equals root, mirroring
// backend/memory's in-process map) straight from entry_json, so the DAG
// math below runs over the same *entry.Entry values backend/memory uses
// rather than re-deriving edges from tree_parents/store_parents — those
// tables exist for external inspection and indexing, not as the read path.
func (b *Backend) treeEntries(root id.ID) (map[id.ID]*entry.Entry, error) {
	rows, err := b.db.Query(b.q(`SELECT entry_json FROM entries WHERE tree_id = ?`), string(root))
	if err != nil {
		return nil, fmt.Errorf("backend/sql: load tree %s: %w", root, err)
	}
	defer rows.Close()

	out := make(map[id.ID]*entry.Entry)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("backend/sql: scan tree row: %w", err)
		}
		e, err := entry.UnmarshalEntry([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("backend/sql: unmarshal tree row: %w", err)
		}
		out[e.ID()] = e
	}
	return out, rows.Err()
}

func treeParents(tree map[id.ID]*entry.Entry) dag.ParentsFunc {
	return func(e id.ID) id.Set {
		ent, ok := tree[e]
		if !ok {
			return nil
		}
		return ent.Parents()
	}
}

func storeParentsFn(tree map[id.ID]*entry.Entry, store string) dag.ParentsFunc {
	return func(e id.ID) id.Set {
		ent, ok := tree[e]
		if !ok || !ent.InStore(store) {
			return nil
		}
		return ent.StoreParents(store)
	}
}

func heightParentsOf(pf dag.ParentsFunc) height.ParentsFunc {
	return func(e id.ID) (id.Set, error) { return pf(e), nil }
}

func keysOfEntries(m map[id.ID]*entry.Entry) id.Set {
	out := make(id.Set, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return id.NewSet(out...)
}

func bareKeys(m map[id.ID]struct{}) id.Set {
	out := make(id.Set, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return id.NewSet(out...)
}

// GetTips returns root's entries with no child among currently stored
// entries (spec.md §4.4's partial-sync-safe tip invariant).
func (b *Backend) GetTips(root id.ID) (id.Set, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	bare := make(map[id.ID]struct{}, len(tree))
	for eid := range tree {
		bare[eid] = struct{}{}
	}
	return dag.ComputeTips(bare, treeParents(tree)), nil
}

// GetStoreTips returns root's entries touching store with no store-level
// child among currently stored entries.
func (b *Backend) GetStoreTips(root id.ID, store string) (id.Set, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	inStore := make(map[id.ID]struct{})
	for eid, e := range tree {
		if e.InStore(store) {
			inStore[eid] = struct{}{}
		}
	}
	return dag.ComputeTips(inStore, storeParentsFn(tree, store)), nil
}

// GetTreeFromTips returns the topologically sorted ancestor set of tips
// within root's tree-level DAG.
func (b *Backend) GetTreeFromTips(root id.ID, tips id.Set) ([]id.ID, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	pf := treeParents(tree)
	set := dag.AncestorSet(tips, pf)
	return dag.Toposort(set, pf), nil
}

// GetStoreFromTips returns the topologically sorted ancestor set of tips
// within root's store-level DAG for store.
func (b *Backend) GetStoreFromTips(root id.ID, store string, tips id.Set) ([]id.ID, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	pf := storeParentsFn(tree, store)
	set := dag.AncestorSet(tips, pf)
	return dag.Toposort(set, pf), nil
}

// AllRoots enumerates every database root id known to the backend: ids of
// entries that are themselves roots, plus any root id referenced by a
// non-root entry (covers a root that hasn't synced yet while its children
// have).
func (b *Backend) AllRoots() (id.Set, error) {
	rows, err := b.db.Query(`SELECT id, tree_id, is_root FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("backend/sql: list roots: %w", err)
	}
	defer rows.Close()

	var out []id.ID
	for rows.Next() {
		var eid, treeID string
		var isRoot int64
		if err := rows.Scan(&eid, &treeID, &isRoot); err != nil {
			return nil, fmt.Errorf("backend/sql: scan root row: %w", err)
		}
		if isRoot != 0 {
			out = append(out, id.ID(eid))
		} else {
			out = append(out, id.ID(treeID))
		}
	}
	return id.NewSet(out...), rows.Err()
}

// FindMergeBase returns the lowest common ancestor of entryIDs within
// root's store-level DAG (or the tree-level DAG if store is "").
func (b *Backend) FindMergeBase(root id.ID, store string, entryIDs id.Set) (id.ID, error) {
	if len(entryIDs) == 0 {
		return id.Empty, backend.ErrMergeBaseNotFound
	}
	tree, err := b.treeEntries(root)
	if err != nil {
		return id.Empty, err
	}
	pf := treeParents(tree)
	if store != "" {
		pf = storeParentsFn(tree, store)
	}

	ancestorSets := make([]map[id.ID]struct{}, len(entryIDs))
	for i, e := range entryIDs {
		ancestorSets[i] = dag.AncestorSet(id.Set{e}, pf)
	}

	common := make(map[id.ID]struct{})
	for eid := range ancestorSets[0] {
		inAll := true
		for _, s := range ancestorSets[1:] {
			if _, ok := s[eid]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			common[eid] = struct{}{}
		}
	}
	if len(common) == 0 {
		return id.Empty, backend.ErrMergeBaseNotFound
	}

	calc := height.NewCalculator(height.Incremental, nil)
	heights, err := height.CalculateAll(calc, bareKeys(common), heightParentsOf(pf))
	if err != nil {
		return id.Empty, fmt.Errorf("backend/sql: find merge base: %w", err)
	}
	var best id.ID
	var bestHeight uint64
	first := true
	for eid := range common {
		h := heights[eid]
		if first || h > bestHeight || (h == bestHeight && eid < best) {
			best, bestHeight, first = eid, h, false
		}
	}
	return best, nil
}

// CollectRootToTarget returns the topologically sorted ancestor chain of
// target within root's store-level DAG (or tree-level if store is "").
func (b *Backend) CollectRootToTarget(root id.ID, store string, target id.ID) ([]id.ID, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	pf := treeParents(tree)
	if store != "" {
		pf = storeParentsFn(tree, store)
	}
	set := dag.AncestorSet(id.Set{target}, pf)
	return dag.Toposort(set, pf), nil
}

// GetPathFromTo returns the topologically sorted linear path from from to
// to (inclusive), within root's store-level DAG (or tree-level if store is
// ""). Fails with ErrNoPath if from is not an ancestor of to.
func (b *Backend) GetPathFromTo(root id.ID, store string, from, to id.ID) ([]id.ID, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	pf := treeParents(tree)
	if store != "" {
		pf = storeParentsFn(tree, store)
	}
	set := dag.AncestorSet(id.Set{to}, pf)
	if _, ok := set[from]; !ok {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", backend.ErrNoPath, from, to)
	}
	between := make(map[id.ID]struct{})
	for e := range set {
		anc := dag.AncestorSet(id.Set{e}, pf)
		if _, ok := anc[from]; ok {
			between[e] = struct{}{}
		}
	}
	return dag.Toposort(between, pf), nil
}

// CalculateHeights computes the full height map for root (or root+store).
func (b *Backend) CalculateHeights(root id.ID, store string) (map[id.ID]uint64, error) {
	tree, err := b.treeEntries(root)
	if err != nil {
		return nil, err
	}
	pf := treeParents(tree)
	scope := tree
	if store != "" {
		pf = storeParentsFn(tree, store)
		scope = make(map[id.ID]*entry.Entry)
		for eid, e := range tree {
			if e.InStore(store) {
				scope[eid] = e
			}
		}
	}
	calc := height.NewCalculator(height.Incremental, nil)
	return height.CalculateAll(calc, keysOfEntries(scope), heightParentsOf(pf))
}

// SortEntriesByHeight stable-sorts entries by ascending height within root.
func (b *Backend) SortEntriesByHeight(root id.ID, entries id.Set) ([]id.ID, error) {
	heights, err := b.CalculateHeights(root, "")
	if err != nil {
		return nil, err
	}
	return height.SortByHeight(heights, entries), nil
}
