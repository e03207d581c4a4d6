// Package memory implements the in-memory Backend (spec.md §4.4, §6.2): a
// versioned canonical-JSON save file gating migration, with all DAG queries
// computed by walking the currently-stored entry set so partial-sync states
// surface correctly (tips describe leaves among stored entries, not leaves
// of the logical DAG).
package memory

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/height"
	"github.com/eidetica/eidetica/id"
)

// Backend is the in-memory, mutex-guarded implementation of
// backend.Backend. Safe for concurrent use; all mutating operations are
// serialized by mu (spec.md §5's "shared resources" rule for the in-memory
// backend).
type Backend struct {
	mu sync.Mutex

	entries      map[id.ID]*entry.Entry
	verification map[id.ID]backend.VerificationStatus
	privateKeys  map[string]ed25519.PrivateKey
	crdtCache    map[cacheKey]string
}

type cacheKey struct {
	entry id.ID
	store string
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{
		entries:      make(map[id.ID]*entry.Entry),
		verification: make(map[id.ID]backend.VerificationStatus),
		privateKeys:  make(map[string]ed25519.PrivateKey),
		crdtCache:    make(map[cacheKey]string),
	}
}

var _ backend.Backend = (*Backend)(nil)

// Get returns the stored entry with the given id.
func (b *Backend) Get(eid id.ID) (*entry.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[eid]
	if !ok {
		return nil, fmt.Errorf("%w: entry %s", backend.ErrNotFound, eid)
	}
	return e, nil
}

// Put stores e under the given verification status.
func (b *Backend) Put(status backend.VerificationStatus, e *entry.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.ID()] = e
	b.verification[e.ID()] = status
	return nil
}

// PutVerified stores e as verified.
func (b *Backend) PutVerified(e *entry.Entry) error {
	return b.Put(backend.StatusVerified, e)
}

// PutUnverified stores e as unverified.
func (b *Backend) PutUnverified(e *entry.Entry) error {
	return b.Put(backend.StatusUnverified, e)
}

// UpdateVerificationStatus changes the recorded verification status of an
// already-stored entry.
func (b *Backend) UpdateVerificationStatus(eid id.ID, status backend.VerificationStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[eid]; !ok {
		return fmt.Errorf("%w: entry %s", backend.ErrNotFound, eid)
	}
	b.verification[eid] = status
	return nil
}

// GetEntriesByVerificationStatus returns every entry id currently recorded
// under status.
func (b *Backend) GetEntriesByVerificationStatus(status backend.VerificationStatus) (id.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []id.ID
	for eid, st := range b.verification {
		if st == status {
			out = append(out, eid)
		}
	}
	return id.NewSet(out...), nil
}

// inTree reports whether e belongs to the database rooted at root: either e
// is the root entry itself, or e.Root() == root.
func inTree(e *entry.Entry, root id.ID) bool {
	return e.ID() == root || e.Root() == root
}

func (b *Backend) treeEntries(root id.ID) map[id.ID]*entry.Entry {
	out := make(map[id.ID]*entry.Entry)
	for eid, e := range b.entries {
		if inTree(e, root) {
			out[eid] = e
		}
	}
	return out
}

func treeParents(tree map[id.ID]*entry.Entry) parentsFunc {
	return func(e id.ID) id.Set {
		entry, ok := tree[e]
		if !ok {
			return nil
		}
		return entry.Parents()
	}
}

func storeParents(tree map[id.ID]*entry.Entry, store string) parentsFunc {
	return func(e id.ID) id.Set {
		entry, ok := tree[e]
		if !ok || !entry.InStore(store) {
			return nil
		}
		return entry.StoreParents(store)
	}
}

// GetTips returns the entries of root with no child among currently stored
// entries (spec.md §4.4's partial-sync-safe tip invariant).
func (b *Backend) GetTips(root id.ID) (id.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	return computeTips(tree, treeParents(tree)), nil
}

// GetStoreTips returns the entries of root touching store with no
// store-level child among currently stored entries.
func (b *Backend) GetStoreTips(root id.ID, store string) (id.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	inStore := make(map[id.ID]*entry.Entry)
	for eid, e := range tree {
		if e.InStore(store) {
			inStore[eid] = e
		}
	}
	return computeTips(inStore, storeParents(tree, store)), nil
}

// GetTreeFromTips returns the topologically sorted ancestor set of tips
// within root's tree-level DAG.
func (b *Backend) GetTreeFromTips(root id.ID, tips id.Set) ([]id.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	pf := treeParents(tree)
	set := ancestorSet(tips, pf)
	return toposort(set, pf), nil
}

// GetStoreFromTips returns the topologically sorted ancestor set of tips
// within root's store-level DAG for store.
func (b *Backend) GetStoreFromTips(root id.ID, store string, tips id.Set) ([]id.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	pf := storeParents(tree, store)
	set := ancestorSet(tips, pf)
	return toposort(set, pf), nil
}

// AllRoots enumerates every database root id known to the backend: the ids
// of entries that are themselves roots, plus any root id referenced by a
// non-root entry (covers the case where a root hasn't synced yet but its
// children have).
func (b *Backend) AllRoots() (id.Set, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []id.ID
	for eid, e := range b.entries {
		if e.IsRoot() {
			out = append(out, eid)
		} else {
			out = append(out, e.Root())
		}
	}
	return id.NewSet(out...), nil
}

// FindMergeBase returns the lowest common ancestor of entryIDs within
// root's store-level DAG (or the tree-level DAG if store is "").
func (b *Backend) FindMergeBase(root id.ID, store string, entryIDs id.Set) (id.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(entryIDs) == 0 {
		return id.Empty, backend.ErrMergeBaseNotFound
	}
	tree := b.treeEntries(root)
	pf := treeParents(tree)
	if store != "" {
		pf = storeParents(tree, store)
	}

	ancestorSets := make([]map[id.ID]struct{}, len(entryIDs))
	for i, e := range entryIDs {
		ancestorSets[i] = ancestorSet(id.Set{e}, pf)
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
	heights, err := height.CalculateAll(calc, keysOf(common), heightParents(pf))
	if err != nil {
		return id.Empty, fmt.Errorf("backend/memory: find merge base: %w", err)
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

func keysOf(m map[id.ID]struct{}) id.Set {
	out := make(id.Set, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return id.NewSet(out...)
}

// CollectRootToTarget returns the topologically sorted ancestor chain of
// target within root's store-level DAG (or tree-level if store is "").
func (b *Backend) CollectRootToTarget(root id.ID, store string, target id.ID) ([]id.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	pf := treeParents(tree)
	if store != "" {
		pf = storeParents(tree, store)
	}
	set := ancestorSet(id.Set{target}, pf)
	return toposort(set, pf), nil
}

// GetPathFromTo returns the topologically sorted linear path from from to
// to (inclusive), within root's store-level DAG (or tree-level if store is
// ""). Fails with ErrNoPath if from is not an ancestor of to.
func (b *Backend) GetPathFromTo(root id.ID, store string, from, to id.ID) ([]id.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	pf := treeParents(tree)
	if store != "" {
		pf = storeParents(tree, store)
	}
	set := ancestorSet(id.Set{to}, pf)
	if _, ok := set[from]; !ok {
		return nil, fmt.Errorf("%w: %s is not an ancestor of %s", backend.ErrNoPath, from, to)
	}
	// Restrict to the sub-DAG between from and to: ancestors of `to` that
	// are also descendants of (or equal to) `from`.
	between := make(map[id.ID]struct{})
	for e := range set {
		anc := ancestorSet(id.Set{e}, pf)
		if _, ok := anc[from]; ok {
			between[e] = struct{}{}
		}
	}
	return toposort(between, pf), nil
}

// CalculateHeights computes the full height map for root (or root+store).
func (b *Backend) CalculateHeights(root id.ID, store string) (map[id.ID]uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tree := b.treeEntries(root)
	pf := treeParents(tree)
	scope := tree
	if store != "" {
		pf = storeParents(tree, store)
		scope = make(map[id.ID]*entry.Entry)
		for eid, e := range tree {
			if e.InStore(store) {
				scope[eid] = e
			}
		}
	}
	calc := height.NewCalculator(height.Incremental, nil)
	return height.CalculateAll(calc, keysOfEntries(scope), heightParents(pf))
}

func keysOfEntries(m map[id.ID]*entry.Entry) id.Set {
	out := make(id.Set, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return id.NewSet(out...)
}

// SortEntriesByHeight stable-sorts entries by ascending height within root.
func (b *Backend) SortEntriesByHeight(root id.ID, entries id.Set) ([]id.ID, error) {
	heights, err := b.CalculateHeights(root, "")
	if err != nil {
		return nil, err
	}
	return height.SortByHeight(heights, entries), nil
}

// StorePrivateKey stores key under name, overwriting any existing value.
func (b *Backend) StorePrivateKey(name string, key ed25519.PrivateKey) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make(ed25519.PrivateKey, len(key))
	copy(cp, key)
	b.privateKeys[name] = cp
	return nil
}

// GetPrivateKey returns the private key stored under name.
func (b *Backend) GetPrivateKey(name string) (ed25519.PrivateKey, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key, ok := b.privateKeys[name]
	if !ok {
		return nil, fmt.Errorf("%w: private key %q", backend.ErrNotFound, name)
	}
	cp := make(ed25519.PrivateKey, len(key))
	copy(cp, key)
	return cp, nil
}

// GetCachedCRDTState returns a previously cached materialization.
func (b *Backend) GetCachedCRDTState(entryID id.ID, store string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.crdtCache[cacheKey{entryID, store}]
	return v, ok, nil
}

// CacheCRDTState records a materialized CRDT state for (entryID, store).
func (b *Backend) CacheCRDTState(entryID id.ID, store string, state string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.crdtCache[cacheKey{entryID, store}] = state
	return nil
}

// ClearCRDTCache discards every cached materialization.
func (b *Backend) ClearCRDTCache() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.crdtCache = make(map[cacheKey]string)
	return nil
}
