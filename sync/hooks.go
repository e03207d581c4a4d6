package sync

import (
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// hookCollection implements transaction.Hooks: every commit across every
// database opened from this Instance is reported here, and enqueued for
// background delivery to whichever peers track that database (spec.md
// §4.9.7). Fire must never block the commit path or return an error to it.
type hookCollection struct {
	engine *Engine
}

// Fire is called synchronously, inline with the commit that produced e. It
// only enqueues; the background worker does the actual sync work.
func (h *hookCollection) Fire(treeID id.ID, e *entry.Entry, isRootEntry bool) {
	if h.engine == nil {
		return
	}
	h.engine.onCommit(treeID, e, isRootEntry)
}

// Hooks returns the transaction.Hooks implementation to install on every
// Database opened from the Instance backing this Engine (spec.md §4.9.7).
func (e *Engine) Hooks() *hookCollection {
	return &hookCollection{engine: e}
}
