package sync

import (
	"context"
	"fmt"

	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// pushEntries sends entries for treeID directly to peerAddr via SendEntries
// (the push path spec.md §4.9.8 describes the worker using for a ready
// bundle of freshly committed entries).
func (e *Engine) pushEntries(ctx context.Context, peerAddr string, entries []*entry.Entry) error {
	wire, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	resp, err := e.transports.Send(ctx, peerAddr, &SyncRequest{SendEntries: &SendEntriesRequest{Entries: wire}})
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("sync: push entries: %s", resp.Error)
	}
	if !resp.Ack {
		return ErrUnexpectedResponse
	}
	return nil
}

// pullTree runs the client side of the unified bootstrap/incremental flow
// (spec.md §4.9.5) against peerAddr for root, persisting whatever the peer
// reports we're missing.
func (e *Engine) pullTree(ctx context.Context, peerAddr string, root id.ID) error {
	localTips, err := e.host.Backend().GetTips(root)
	if err != nil {
		localTips = nil // unknown locally: this is a bootstrap pull
	}

	req := &SyncRequest{SyncTree: &SyncTreeRequest{
		TreeID:  root.String(),
		OurTips: localTips.Strings(),
	}}
	resp, err := e.transports.Send(ctx, peerAddr, req)
	if err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("sync: pull tree: %s", resp.Error)
	}

	switch {
	case resp.Bootstrap != nil:
		return e.applyBootstrap(root, resp.Bootstrap)
	case resp.Incremental != nil:
		return e.applyIncremental(root, resp.Incremental)
	default:
		return ErrUnexpectedResponse
	}
}

// applyBootstrap persists a Bootstrap response: the root entry first, then
// every remaining ancestor in the topological order the server already
// sorted them into (spec.md §4.9.5's client behavior).
func (e *Engine) applyBootstrap(root id.ID, resp *BootstrapResponse) error {
	rootEntry, err := entry.UnmarshalEntry(resp.RootEntry)
	if err != nil {
		return fmt.Errorf("sync: bootstrap: decode root: %w", err)
	}
	treeRoot := rootEntry.ID()
	if err := e.verifyAndStore(treeRoot, rootEntry); err != nil {
		return err
	}

	all, err := decodeEntries(resp.AllEntries)
	if err != nil {
		return fmt.Errorf("sync: bootstrap: decode entries: %w", err)
	}
	for _, fe := range all {
		if fe.ID() == treeRoot {
			continue
		}
		if err := e.verifyAndStore(treeRoot, fe); err != nil {
			return err
		}
	}
	return nil
}

// applyIncremental persists an Incremental response's missing entries in
// the order received (spec.md §4.9.5).
func (e *Engine) applyIncremental(root id.ID, resp *IncrementalResponse) error {
	missing, err := decodeEntries(resp.MissingEntries)
	if err != nil {
		return fmt.Errorf("sync: incremental: decode entries: %w", err)
	}
	for _, fe := range missing {
		if err := e.verifyAndStore(root, fe); err != nil {
			return err
		}
	}
	return nil
}
