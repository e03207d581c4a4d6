package sync

import (
	"fmt"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// collectMissingAncestors walks the parent links of entries breadth-first,
// collecting every ancestor id not already present in b (spec.md §4.9.6's
// "detect gaps" step — used after a direct SendEntries push, where entries
// can arrive out of order or with ancestors the receiver never fetched).
func collectMissingAncestors(b backend.Backend, entries []*entry.Entry) ([]id.ID, error) {
	queue := make([]id.ID, 0)
	seen := make(map[id.ID]bool)
	enqueue := func(parents id.Set) {
		for _, p := range parents {
			if p.IsEmpty() || seen[p] {
				continue
			}
			seen[p] = true
			queue = append(queue, p)
		}
	}
	for _, e := range entries {
		enqueue(e.Parents())
		for _, s := range e.Stores() {
			enqueue(e.StoreParents(s))
		}
	}

	var missing []id.ID
	known := make(map[id.ID]bool)
	for len(queue) > 0 {
		candidate := queue[0]
		queue = queue[1:]
		if known[candidate] {
			continue
		}

		found, err := b.Get(candidate)
		if err != nil {
			missing = append(missing, candidate)
			continue
		}
		known[candidate] = true
		enqueue(found.Parents())
		for _, s := range found.Stores() {
			enqueue(found.StoreParents(s))
		}
	}
	return missing, nil
}

// collectAncestorsToSend returns every ancestor entry of tips (inclusive),
// scoped to root, excluding the ids the peer already reports holding in
// peerTips' ancestor closure — i.e. the set to push during an incremental
// sync (spec.md §4.9.5). Ordering follows the backend's own topological
// sort, so pushing the result in order never violates a parent-before-child
// invariant on the receiving side.
func collectAncestorsToSend(b backend.Backend, root id.ID, tips id.Set, peerTips id.Set) ([]*entry.Entry, error) {
	ours, err := b.GetTreeFromTips(root, tips)
	if err != nil {
		return nil, fmt.Errorf("sync: collect ancestors: %w", err)
	}

	exclude := make(map[id.ID]bool)
	if len(peerTips) > 0 {
		theirs, err := b.GetTreeFromTips(root, peerTips)
		if err != nil {
			return nil, fmt.Errorf("sync: collect peer ancestors: %w", err)
		}
		for _, i := range theirs {
			exclude[i] = true
		}
	}

	out := make([]*entry.Entry, 0, len(ours))
	for _, i := range ours {
		if exclude[i] {
			continue
		}
		e, err := b.Get(i)
		if err != nil {
			return nil, fmt.Errorf("sync: collect ancestors: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
