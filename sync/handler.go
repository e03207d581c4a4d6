package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// bootstrapGuard serializes concurrent bootstrap responses for the same
// (peer, tree) pair, so two near-simultaneous SyncTree requests from the
// same peer don't race each other building the same ancestor snapshot
// (supplemented feature: spec.md §4.9.5 describes the algorithm but not
// concurrent-request safety).
type bootstrapGuard struct {
	locks sync.Map // string -> *sync.Mutex
}

func (g *bootstrapGuard) lockFor(key string) *sync.Mutex {
	v, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// handle dispatches one inbound SyncRequest to the matching server-side
// logic (spec.md §4.9.3's request/response pairing).
func (e *Engine) handle(ctx context.Context, req *SyncRequest) (*SyncResponse, error) {
	switch {
	case req.Handshake != nil:
		return e.answerHandshake(req.Handshake)
	case req.SyncTree != nil:
		return e.answerSyncTree(req.SyncTree)
	case req.SendEntries != nil:
		return e.answerSendEntries(req.SendEntries)
	default:
		return errorResponse(ErrUnexpectedResponse), nil
	}
}

// answerSyncTree implements the unified bootstrap/incremental server logic
// of spec.md §4.9.5.
func (e *Engine) answerSyncTree(req *SyncTreeRequest) (*SyncResponse, error) {
	root := id.ID(req.TreeID)
	ourTips, err := e.host.Backend().GetTips(root)
	if err != nil || len(ourTips) == 0 {
		return errorResponse(fmt.Errorf("%w: %s", ErrTreeNotFound, req.TreeID)), nil
	}

	if len(req.OurTips) == 0 {
		return e.answerBootstrap(root, ourTips, req)
	}
	return e.answerIncremental(root, ourTips, req)
}

func (e *Engine) answerBootstrap(root id.ID, ourTips id.Set, req *SyncTreeRequest) (*SyncResponse, error) {
	lock := e.bootstraps.lockFor(root.String() + "|" + req.RequestingKey)
	lock.Lock()
	defer lock.Unlock()

	ordered, err := e.host.Backend().GetTreeFromTips(root, ourTips)
	if err != nil {
		return nil, fmt.Errorf("sync: bootstrap: %w", err)
	}
	if len(ordered) == 0 {
		return errorResponse(ErrTreeNotFound), nil
	}

	all := make([]*entry.Entry, len(ordered))
	for i, eid := range ordered {
		ent, err := e.host.Backend().Get(eid)
		if err != nil {
			return nil, fmt.Errorf("sync: bootstrap: %w", err)
		}
		all[i] = ent
	}

	approved, granted := e.decideBootstrap(root, req)

	rootWire, err := json.Marshal(all[0])
	if err != nil {
		return nil, fmt.Errorf("sync: bootstrap: %w", err)
	}
	allWire, err := encodeEntries(all)
	if err != nil {
		return nil, fmt.Errorf("sync: bootstrap: %w", err)
	}

	var grantedWire *PermissionWire
	if approved {
		grantedWire = fromPermission(granted)
	}

	return &SyncResponse{Bootstrap: &BootstrapResponse{
		TreeID:            root.String(),
		RootEntry:         rootWire,
		AllEntries:        allWire,
		KeyApproved:       approved,
		GrantedPermission: grantedWire,
	}}, nil
}

func (e *Engine) answerIncremental(root id.ID, ourTips id.Set, req *SyncTreeRequest) (*SyncResponse, error) {
	peerTips := make(id.Set, len(req.OurTips))
	for i, t := range req.OurTips {
		peerTips[i] = id.ID(t)
	}

	missing, err := collectAncestorsToSend(e.host.Backend(), root, ourTips, peerTips)
	if err != nil {
		return nil, err
	}
	wire, err := encodeEntries(missing)
	if err != nil {
		return nil, err
	}

	return &SyncResponse{Incremental: &IncrementalResponse{
		TreeID:         root.String(),
		TheirTips:      ourTips.Strings(),
		MissingEntries: wire,
	}}, nil
}

func (e *Engine) answerSendEntries(req *SendEntriesRequest) (*SyncResponse, error) {
	entries, err := decodeEntries(req.Entries)
	if err != nil {
		return errorResponse(err), nil
	}
	missing, err := collectMissingAncestors(e.host.Backend(), entries)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return errorResponse(fmt.Errorf("%w: %v", ErrMissingParent, missing)), nil
	}

	for _, fe := range entries {
		root := fe.Root()
		if fe.IsRoot() {
			root = fe.ID()
		}
		if err := e.verifyAndStore(root, fe); err != nil {
			return errorResponse(err), nil
		}
	}
	n := len(entries)
	return &SyncResponse{Ack: true, Count: &n}, nil
}
