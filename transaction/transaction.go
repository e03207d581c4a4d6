// Package transaction implements staged writes against a database tip set
// and the commit algorithm that turns them into one signed, content-addressed
// Entry (spec.md §4.6).
package transaction

import (
	"fmt"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// Hooks is the narrow view of the sync layer a Transaction needs: fired
// after a successful commit, per spec.md §4.9.7. A hook failure must never
// roll back the commit; implementations are expected to log and recover on
// their own side. Transaction does not import the sync package to avoid a
// dependency cycle (sync depends on transaction/database).
type Hooks interface {
	Fire(treeID id.ID, e *entry.Entry, isRootEntry bool)
}

type storeEdit struct {
	kind    storeKind
	delta   *crdt.Doc  // for kindDoc
	ydoc    *crdt.YDoc // for kindYDoc
	parents id.Set     // store tips as of the transaction's main tips
}

type storeKind int

const (
	kindDoc storeKind = iota
	kindYDoc
)

// Transaction stages store mutations against a fixed main-tip set and
// produces exactly one signed Entry on Commit (spec.md §4.6).
type Transaction struct {
	backend  backend.Backend
	resolver *auth.Resolver
	mat      *Materializer

	root   id.ID
	isRoot bool
	tips   id.Set

	signKeyName string
	committed   bool

	stores map[string]*storeEdit
	hooks  Hooks
}

// New opens a Transaction against an existing database at an explicit main
// tip set. tips must be non-empty (spec.md §4.6, ErrEmptyTipsNotAllowed)
// and every member must already be stored (ErrInvalidTip).
func New(b backend.Backend, resolver *auth.Resolver, mat *Materializer, root id.ID, tips id.Set) (*Transaction, error) {
	if len(tips) == 0 {
		return nil, ErrEmptyTipsNotAllowed
	}
	for _, t := range tips {
		if _, err := b.Get(t); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTip, t)
		}
	}
	return &Transaction{
		backend:  b,
		resolver: resolver,
		mat:      mat,
		root:     root,
		tips:     id.NewSet(tips...),
		stores:   make(map[string]*storeEdit),
	}, nil
}

// NewRoot opens a Transaction that will create a brand-new database: its
// commit produces the database's root entry.
func NewRoot(b backend.Backend, resolver *auth.Resolver, mat *Materializer) *Transaction {
	return &Transaction{
		backend:  b,
		resolver: resolver,
		mat:      mat,
		isRoot:   true,
		stores:   make(map[string]*storeEdit),
	}
}

// SetHooks attaches the sync-hook collection fired after a successful
// commit.
func (tx *Transaction) SetHooks(h Hooks) { tx.hooks = h }

// SetSigningKey configures the named key (resolved from the backend's
// private key store at commit time) as the entry's signer.
func (tx *Transaction) SetSigningKey(name string) { tx.signKeyName = name }

// Tips returns the transaction's main tip set (empty for a not-yet-built
// root transaction).
func (tx *Transaction) Tips() id.Set { return tx.tips }

// Root returns the database root id this transaction belongs to (empty
// until a root transaction commits).
func (tx *Transaction) Root() id.ID { return tx.root }

// Base returns store's materialized historical state as of the
// transaction's main tips, not including this transaction's own staged
// edits.
func (tx *Transaction) Base(store string) (*crdt.Doc, error) {
	if tx.isRoot {
		return crdt.NewDoc(), nil
	}
	storeTips, err := tx.storeTips(store)
	if err != nil {
		return nil, err
	}
	return tx.mat.Doc(tx.root, store, storeTips)
}

// BaseYDoc returns a YDoc store's materialized historical state as of the
// transaction's main tips.
func (tx *Transaction) BaseYDoc(store string) (*crdt.YDoc, error) {
	if tx.isRoot {
		return crdt.NewYDoc(), nil
	}
	storeTips, err := tx.storeTips(store)
	if err != nil {
		return nil, err
	}
	return MaterializeYDoc(tx.backend, tx.root, store, storeTips)
}

// Delta returns the staged Doc delta for store, creating an empty one and
// recording the store's pre-transaction tips the first time it is touched.
func (tx *Transaction) Delta(store string) (*crdt.Doc, error) {
	if tx.committed {
		return nil, ErrAlreadyCommitted
	}
	edit, ok := tx.stores[store]
	if !ok {
		parents, err := tx.storeTips(store)
		if err != nil {
			return nil, err
		}
		edit = &storeEdit{kind: kindDoc, delta: crdt.NewDoc(), parents: parents}
		tx.stores[store] = edit
	}
	return edit.delta, nil
}

// DeltaYDoc returns the staged YDoc delta for store (the updates applied
// within this transaction only), creating it and recording pre-transaction
// store tips on first touch.
func (tx *Transaction) DeltaYDoc(store string) (*crdt.YDoc, error) {
	if tx.committed {
		return nil, ErrAlreadyCommitted
	}
	edit, ok := tx.stores[store]
	if !ok {
		parents, err := tx.storeTips(store)
		if err != nil {
			return nil, err
		}
		edit = &storeEdit{kind: kindYDoc, ydoc: crdt.NewYDoc(), parents: parents}
		tx.stores[store] = edit
	}
	return edit.ydoc, nil
}

// PeekDoc returns the staged Doc delta for store if one has already been
// touched via Delta, or nil otherwise. Unlike Delta, it never stages a new
// edit, so read-only store views can overlay uncommitted writes without
// forcing every read to become a staged (and eventually committed) store.
func (tx *Transaction) PeekDoc(store string) *crdt.Doc {
	edit, ok := tx.stores[store]
	if !ok || edit.kind != kindDoc {
		return nil
	}
	return edit.delta
}

// PeekYDoc is PeekDoc's YDoc-store counterpart.
func (tx *Transaction) PeekYDoc(store string) *crdt.YDoc {
	edit, ok := tx.stores[store]
	if !ok || edit.kind != kindYDoc {
		return nil
	}
	return edit.ydoc
}

// storeTips returns store's tips as of the transaction's main tips (empty
// for a root transaction, since nothing has been committed yet).
func (tx *Transaction) storeTips(store string) (id.Set, error) {
	if tx.isRoot || len(tx.tips) == 0 {
		return nil, nil
	}
	return storeTipsAsOf(tx.backend, tx.root, store, tx.tips)
}

// storeTipsAsOf returns the tips of store, restricted to the ancestry of
// mainTips: the maximal elements (no in-scope child) of store's ancestor
// set reachable from mainTips. Used both for per-store commit parents and
// for pinning _settings tips into an entry's metadata (spec.md §3.4, §4.6).
func storeTipsAsOf(b backend.Backend, root id.ID, store string, mainTips id.Set) (id.Set, error) {
	ancestors, err := b.GetStoreFromTips(root, store, mainTips)
	if err != nil {
		return nil, fmt.Errorf("transaction: store tips: %w", err)
	}
	if len(ancestors) == 0 {
		return nil, nil
	}
	scope := make(map[id.ID]struct{}, len(ancestors))
	for _, a := range ancestors {
		scope[a] = struct{}{}
	}
	hasChild := make(map[id.ID]struct{})
	for _, a := range ancestors {
		e, err := b.Get(a)
		if err != nil {
			return nil, fmt.Errorf("transaction: store tips: %w", err)
		}
		for _, p := range e.StoreParents(store) {
			if _, ok := scope[p]; ok {
				hasChild[p] = struct{}{}
			}
		}
	}
	var tips []id.ID
	for _, a := range ancestors {
		if _, ok := hasChild[a]; !ok {
			tips = append(tips, a)
		}
	}
	return id.NewSet(tips...), nil
}
