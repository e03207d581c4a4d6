package transaction

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/id"
)

// Materializer folds a store's CRDT deltas over a DAG into a single Doc
// value, per spec.md §4.6's read path. It layers two caches over the
// backend: the backend's own per-entry CRDT cache (keyed by entry id plus
// store, per spec.md §4.4) used for incremental per-entry folding, and an
// in-process cache keyed by the full tip-set fingerprint so repeated reads
// at an unchanged tip set skip folding entirely. golang.org/x/sync/singleflight
// collapses concurrent folds of the same tip-set key so a cache-miss
// stampede only does the work once (spec.md §9's cache-invalidation note).
type Materializer struct {
	backend backend.Backend

	mu    sync.Mutex
	cache map[string]*crdt.Doc
	group singleflight.Group
}

// NewMaterializer returns a Materializer over b.
func NewMaterializer(b backend.Backend) *Materializer {
	return &Materializer{backend: b, cache: make(map[string]*crdt.Doc)}
}

func tipsFingerprint(store string, tips id.Set) string {
	sorted := id.NewSet(tips...)
	return store + "|" + strings.Join(sorted.Strings(), ",")
}

// Doc returns the materialized value of store as of tips: the identity
// (empty) Doc if tips is empty.
func (m *Materializer) Doc(root id.ID, store string, tips id.Set) (*crdt.Doc, error) {
	if len(tips) == 0 {
		return crdt.NewDoc(), nil
	}
	key := tipsFingerprint(store, tips)

	m.mu.Lock()
	if cached, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return cached.Clone(), nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(key, func() (any, error) {
		doc, err := m.fold(root, store, tips)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.cache[key] = doc
		m.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*crdt.Doc).Clone(), nil
}

// Invalidate drops every cached tip-set materialization. Callers should
// call this after a commit touches a store whose cached reads might now be
// stale in ways the backend's own per-entry cache can't express (the
// backend per-entry cache stays valid forever, since entries are
// immutable; only this tip-set-keyed layer needs clearing, and only
// defensively -- a new tip set simply misses under a new key).
func (m *Materializer) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*crdt.Doc)
}

// fold computes the materialized Doc at tips by merging each tip's
// per-entry materialized state, combining multiple tips via Doc.Merge in
// deterministic (height, id) order so the result is independent of tips'
// iteration order (spec.md §8's determinism property).
func (m *Materializer) fold(root id.ID, store string, tips id.Set) (*crdt.Doc, error) {
	sortedTips, err := m.backend.SortEntriesByHeight(root, tips)
	if err != nil {
		return nil, fmt.Errorf("transaction: materialize: sort tips: %w", err)
	}

	memo := make(map[id.ID]*crdt.Doc)
	var result *crdt.Doc
	for i, tip := range sortedTips {
		state, err := m.stateAt(root, store, tip, memo)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = state
			continue
		}
		result = result.Merge(state)
	}
	if result == nil {
		result = crdt.NewDoc()
	}
	return result, nil
}

// stateAt returns the materialized Doc as of a single entry (its own delta
// applied atop the merge of its store-parents' states), using the
// backend's per-entry CRDT cache and memoizing within this fold.
func (m *Materializer) stateAt(root id.ID, store string, entryID id.ID, memo map[id.ID]*crdt.Doc) (*crdt.Doc, error) {
	if d, ok := memo[entryID]; ok {
		return d, nil
	}
	if cached, ok, err := m.backend.GetCachedCRDTState(entryID, store); err == nil && ok {
		d, err := crdt.DecodeDoc(cached)
		if err == nil {
			memo[entryID] = d
			return d, nil
		}
	}

	e, err := m.backend.Get(entryID)
	if err != nil {
		return nil, fmt.Errorf("transaction: materialize: load %s: %w", entryID, err)
	}

	base := crdt.NewDoc()
	if parents := e.StoreParents(store); len(parents) > 0 {
		sortedParents, err := m.backend.SortEntriesByHeight(root, parents)
		if err != nil {
			return nil, fmt.Errorf("transaction: materialize: sort parents of %s: %w", entryID, err)
		}
		for i, p := range sortedParents {
			pState, err := m.stateAt(root, store, p, memo)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				base = pState
				continue
			}
			base = base.Merge(pState)
		}
	}

	if data, ok := e.Data(store); ok && data != "" {
		delta, err := crdt.DecodeDoc(data)
		if err != nil {
			return nil, fmt.Errorf("transaction: materialize: decode %s/%s: %w", entryID, store, err)
		}
		base = base.Apply(delta)
	}

	memo[entryID] = base
	if encoded, err := crdt.EncodeDoc(base); err == nil {
		_ = m.backend.CacheCRDTState(entryID, store, encoded)
	}
	return base, nil
}
