package sync

import (
	"sync"

	"github.com/eidetica/eidetica/entry"
)

// queue holds entries staged for delivery to peers, keyed by peer public
// key, until the background worker flushes them (spec.md §4.9.7). Distinct
// trees are not separated here: the worker groups by tree when it builds
// the actual SendEntries/SyncTree request, since a single commit can touch
// only one tree but a flush can coalesce several pending commits.
type queue struct {
	mu      sync.Mutex
	pending map[string][]*entry.Entry
}

func newQueue() *queue {
	return &queue{pending: make(map[string][]*entry.Entry)}
}

// push appends e to peerKey's pending list.
func (q *queue) push(peerKey string, e *entry.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[peerKey] = append(q.pending[peerKey], e)
}

// drain atomically removes and returns every peer's pending entries.
func (q *queue) drain() map[string][]*entry.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = make(map[string][]*entry.Entry)
	return out
}

// drainPeer atomically removes and returns one peer's pending entries.
func (q *queue) drainPeer(peerKey string) []*entry.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending[peerKey]
	delete(q.pending, peerKey)
	return out
}

// peers returns the public keys with at least one pending entry.
func (q *queue) peers() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.pending))
	for k := range q.pending {
		out = append(out, k)
	}
	return out
}
