package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/database"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/store"
	"github.com/eidetica/eidetica/transaction"
)

// bookkeepingDBName tags the engine's own dogfooded database, so it can be
// rediscovered across restarts by scanning backend.AllRoots() for a root
// entry whose _root store carries this name (spec.md §4.9.1: tracking and
// peer state "stored in the sync engine's own database").
const bookkeepingDBName = "__eidetica_sync__"

// BootstrapPolicy decides whether to approve a bootstrap request for root,
// and at what permission. The default policy auto-grants Write(0) to any
// requester; callers needing an approval workflow (BootstrapPending) can
// install their own via Engine.SetBootstrapPolicy.
type BootstrapPolicy func(root id.ID, req *SyncTreeRequest) (approved bool, granted auth.Permission)

func defaultBootstrapPolicy(id.ID, *SyncTreeRequest) (bool, auth.Permission) {
	return true, auth.Write(0)
}

// Engine is the sync engine of spec.md §4.9: transport registry, handshake,
// bootstrap/incremental tree sync, a commit-triggered hook collection, and
// a background flush worker, with its own bookkeeping state dogfooded as a
// regular Eidetica database.
type Engine struct {
	host Host
	db   *database.Database

	transports *TransportManager
	bootstraps *bootstrapGuard
	queue      *queue
	worker     *worker

	policyMu sync.Mutex
	policy   BootstrapPolicy

	closeOnce sync.Once
}

// New constructs an Engine over host, opening (or creating, on first use)
// its own bookkeeping database.
func New(host Host) (*Engine, error) {
	e := &Engine{
		host:       host,
		transports: NewTransportManager(0),
		bootstraps: &bootstrapGuard{},
		queue:      newQueue(),
		policy:     defaultBootstrapPolicy,
	}

	db, err := e.openOrCreateBookkeepingDB()
	if err != nil {
		return nil, fmt.Errorf("sync: open bookkeeping database: %w", err)
	}
	e.db = db
	e.worker = newWorker(e, 10*time.Second)
	e.worker.start()
	return e, nil
}

func (e *Engine) openOrCreateBookkeepingDB() (*database.Database, error) {
	roots, err := e.host.Backend().AllRoots()
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		tips, err := e.host.Backend().GetTips(root)
		if err != nil || len(tips) == 0 {
			continue
		}
		doc, err := e.host.Materializer().Doc(root, entry.RootStore, tips)
		if err != nil {
			continue
		}
		if v, ok := doc.Get("name"); ok {
			if name, ok := v.AsText(); ok && name == bookkeepingDBName {
				return database.New(e.host, root), nil
			}
		}
	}

	tx := transaction.NewRoot(e.host.Backend(), e.host.Resolver(), e.host.Materializer())
	tx.SetSigningKey(e.host.DeviceSigningKeyName())

	rootStore, err := tx.Delta(entry.RootStore)
	if err != nil {
		return nil, err
	}
	rootStore.Set("name", crdt.Text(bookkeepingDBName))

	settings, err := tx.Delta(entry.SettingsStore)
	if err != nil {
		return nil, err
	}
	key, err := auth.ActiveAuthKey(e.host.DeviceID(), auth.Admin(0))
	if err != nil {
		return nil, err
	}
	auth.PutAuthKey(settings, "device", key)

	root, err := tx.Commit()
	if err != nil {
		return nil, err
	}
	return database.New(e.host, root), nil
}

// RegisterTransport adds t to the engine's transport registry.
func (e *Engine) RegisterTransport(t Transport) {
	e.transports.Register(t)
}

// StartServers binds a server for every transport named in listenAddrs.
func (e *Engine) StartServers(ctx context.Context, listenAddrs map[string]string) error {
	return e.transports.StartAll(ctx, listenAddrs, e.handle)
}

// StopServers shuts down every running transport server.
func (e *Engine) StopServers(ctx context.Context) error {
	return e.transports.StopAll(ctx)
}

// SetBootstrapPolicy overrides the default auto-approve-Write policy.
func (e *Engine) SetBootstrapPolicy(p BootstrapPolicy) {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	e.policy = p
}

func (e *Engine) decideBootstrap(root id.ID, req *SyncTreeRequest) (bool, auth.Permission) {
	e.policyMu.Lock()
	p := e.policy
	e.policyMu.Unlock()
	return p(root, req)
}

func peerTable(tx *transaction.Transaction) *store.Table[Peer] {
	return database.Table[Peer](tx, storePeers)
}

func trackTable(tx *transaction.Transaction) *store.Table[trackedDatabase] {
	return database.Table[trackedDatabase](tx, storeTrack)
}

func prefTable(tx *transaction.Transaction) *store.Table[preference] {
	return database.Table[preference](tx, storePrefs)
}

// upsertPeer records or refreshes a Peer entry, keyed by its public key.
func (e *Engine) upsertPeer(p *Peer) error {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return err
	}
	if err := peerTable(tx).Set(p.PublicKey, *p); err != nil {
		return err
	}
	tx.SetSigningKey(e.host.DeviceSigningKeyName())
	_, err = tx.Commit()
	return err
}

// Peer looks up a known peer by its wire-format public key.
func (e *Engine) Peer(pubkey string) (Peer, error) {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return Peer{}, err
	}
	p, err := peerTable(tx).Get(pubkey)
	if err != nil {
		return Peer{}, fmt.Errorf("%w: %s", ErrPeerNotFound, pubkey)
	}
	return p, nil
}

// Peers returns every known peer.
func (e *Engine) Peers() ([]Peer, error) {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return nil, err
	}
	records, err := peerTable(tx).Search(func(Peer) bool { return true })
	if err != nil {
		return nil, err
	}
	out := make([]Peer, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out, nil
}

// Track registers that databaseID should sync with peerKey, returning
// ErrAlreadyTracked if the pair is already registered.
func (e *Engine) Track(databaseID, peerKey string) error {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return err
	}
	key := trackKey(databaseID, peerKey)
	if _, err := trackTable(tx).Get(key); err == nil {
		return ErrAlreadyTracked
	}
	if err := trackTable(tx).Set(key, trackedDatabase{DatabaseID: databaseID, PeerKey: peerKey}); err != nil {
		return err
	}
	tx.SetSigningKey(e.host.DeviceSigningKeyName())
	_, err = tx.Commit()
	return err
}

// Untrack removes a (databaseID, peerKey) tracking registration.
func (e *Engine) Untrack(databaseID, peerKey string) error {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return err
	}
	key := trackKey(databaseID, peerKey)
	if _, err := trackTable(tx).Get(key); err != nil {
		return ErrNotTracked
	}
	if err := trackTable(tx).Delete(key); err != nil {
		return err
	}
	tx.SetSigningKey(e.host.DeviceSigningKeyName())
	_, err = tx.Commit()
	return err
}

// TrackedPeers returns every peer key tracking databaseID.
func (e *Engine) TrackedPeers(databaseID string) ([]string, error) {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return nil, err
	}
	records, err := trackTable(tx).Search(func(t trackedDatabase) bool { return t.DatabaseID == databaseID })
	if err != nil {
		return nil, err
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Value.PeerKey
	}
	return out, nil
}

// SetPreference records userID's sync preference for databaseID.
func (e *Engine) SetPreference(userID, databaseID string, syncEnabled, syncOnCommit bool, intervalSeconds int, props map[string]string) error {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return err
	}
	p := preference{
		UserID:          userID,
		DatabaseID:      databaseID,
		SyncEnabled:     syncEnabled,
		SyncOnCommit:    syncOnCommit,
		IntervalSeconds: intervalSeconds,
		Properties:      props,
	}
	if err := prefTable(tx).Set(prefKey(userID, databaseID), p); err != nil {
		return err
	}
	tx.SetSigningKey(e.host.DeviceSigningKeyName())
	_, err = tx.Commit()
	return err
}

// EffectivePreference recomputes databaseID's merged preference across
// every user tracking it (spec.md §4.9.9).
func (e *Engine) EffectivePreference(databaseID string) (EffectivePreference, error) {
	tx, err := e.db.NewTransaction()
	if err != nil {
		return EffectivePreference{}, err
	}
	records, err := prefTable(tx).Search(func(p preference) bool { return p.DatabaseID == databaseID })
	if err != nil {
		return EffectivePreference{}, err
	}
	prefs := make([]preference, len(records))
	for i, r := range records {
		prefs[i] = r.Value
	}
	return mergePreferences(databaseID, prefs), nil
}

// onCommit is the transaction.Hooks callback: enqueue e for delivery to
// every peer tracking treeID (spec.md §4.9.7). Must never block or fail
// the commit that triggered it.
func (e *Engine) onCommit(treeID id.ID, ent *entry.Entry, isRootEntry bool) {
	target := treeID
	if isRootEntry {
		target = ent.ID()
	}
	peers, err := e.TrackedPeers(target.String())
	if err != nil || len(peers) == 0 {
		return
	}
	for _, peerKey := range peers {
		e.queue.push(peerKey, ent)
	}
	e.worker.wake()
}

// deliverTo flushes peerKey's pending queue, grouping by tree and pushing
// each group via SendEntries (spec.md §4.9.8).
func (e *Engine) deliverTo(ctx context.Context, peerKey string) error {
	pending := e.queue.drainPeer(peerKey)
	if len(pending) == 0 {
		return nil
	}
	peer, err := e.Peer(peerKey)
	if err != nil || len(peer.Addresses) == 0 {
		return ErrPeerNotFound
	}
	addr := peer.Addresses[0].Address

	byTree := make(map[id.ID][]*entry.Entry)
	for _, ent := range pending {
		root := ent.Root()
		if ent.IsRoot() {
			root = ent.ID()
		}
		byTree[root] = append(byTree[root], ent)
	}

	for _, entries := range byTree {
		if err := e.pushEntries(ctx, addr, entries); err != nil {
			return err
		}
	}
	return nil
}

// Reconcile runs a client-side pullTree against every peer tracking
// databaseID, pulling whatever each peer reports we're missing (the
// periodic, DAG-comparison-based recovery spec.md §4.9.8 describes as the
// backstop for a dropped SendEntries push).
func (e *Engine) Reconcile(ctx context.Context, databaseID string) error {
	root := id.ID(databaseID)
	peers, err := e.TrackedPeers(databaseID)
	if err != nil {
		return err
	}
	for _, peerKey := range peers {
		peer, err := e.Peer(peerKey)
		if err != nil || len(peer.Addresses) == 0 {
			continue
		}
		_ = e.pullTree(ctx, peer.Addresses[0].Address, root)
	}
	return nil
}

// Close stops the background worker and every transport server, flushing
// best-effort first (spec.md §5's bounded-timeout graceful shutdown).
func (e *Engine) Close(ctx context.Context) error {
	var stopErr error
	e.closeOnce.Do(func() {
		e.worker.flushAll()
		e.worker.stopAndWait()
		stopErr = e.transports.StopAll(ctx)
	})
	return stopErr
}
