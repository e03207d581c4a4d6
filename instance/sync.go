package instance

import (
	"fmt"
	stdsync "sync"

	esync "github.com/eidetica/eidetica/sync"
)

// syncState holds the lazily-enabled sync engine for an Instance. Kept
// separate from Instance's other fields since most Instances never call
// EnableSync (spec.md §4.8: sync is optional).
type syncState struct {
	mu     stdsync.Mutex
	engine *esync.Engine
}

// EnableSync constructs and attaches a sync engine to this Instance, wiring
// its hook collection into every subsequently-opened Database so commits
// get queued for peer delivery (spec.md §4.8's enable_sync, §4.9.7's
// commit-triggered hooks). Calling it twice returns ErrSyncAlreadyEnabled.
func (inst *Instance) EnableSync() (*esync.Engine, error) {
	inst.syncOnce.mu.Lock()
	defer inst.syncOnce.mu.Unlock()
	if inst.syncOnce.engine != nil {
		return nil, ErrSyncAlreadyEnabled
	}

	e, err := esync.New(inst)
	if err != nil {
		return nil, fmt.Errorf("instance: enable sync: %w", err)
	}
	inst.syncOnce.engine = e

	inst.hooksMu.Lock()
	inst.hooks = e.Hooks()
	inst.hooksMu.Unlock()

	return e, nil
}

// Sync returns the Instance's sync engine, or ErrSyncNotEnabled if
// EnableSync was never called.
func (inst *Instance) Sync() (*esync.Engine, error) {
	inst.syncOnce.mu.Lock()
	defer inst.syncOnce.mu.Unlock()
	if inst.syncOnce.engine == nil {
		return nil, ErrSyncNotEnabled
	}
	return inst.syncOnce.engine, nil
}
