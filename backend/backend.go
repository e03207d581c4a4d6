// Package backend defines the storage contract every Eidetica backend
// implements: entry storage, DAG queries scoped to a database root, private
// key storage, and a CRDT materialization cache (spec.md §4.4).
package backend

import (
	"crypto/ed25519"

	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// VerificationStatus records whether an entry's signature has been checked
// against its settings snapshot.
type VerificationStatus string

const (
	// StatusUnverified is the initial state for an entry stored without
	// running signature validation (e.g. received but not yet checked).
	StatusUnverified VerificationStatus = "unverified"
	// StatusVerified means the entry's signature validated successfully.
	StatusVerified VerificationStatus = "verified"
	// StatusFailed means signature or authorization validation failed.
	StatusFailed VerificationStatus = "failed"
)

// Backend is the storage contract of spec.md §4.4. Implementations:
// backend/memory (versioned JSON file) and backend/sql (portable SQL
// schema). Every method may block on I/O; callers should treat all of them
// as suspension points (spec.md §5).
type Backend interface {
	// Entry operations.
	Get(id id.ID) (*entry.Entry, error)
	Put(status VerificationStatus, e *entry.Entry) error
	PutVerified(e *entry.Entry) error
	PutUnverified(e *entry.Entry) error
	UpdateVerificationStatus(id id.ID, status VerificationStatus) error
	GetEntriesByVerificationStatus(status VerificationStatus) (id.Set, error)

	// DAG queries, scoped to a database root id.
	GetTips(root id.ID) (id.Set, error)
	GetStoreTips(root id.ID, store string) (id.Set, error)
	GetTreeFromTips(root id.ID, tips id.Set) ([]id.ID, error)
	GetStoreFromTips(root id.ID, store string, tips id.Set) ([]id.ID, error)
	AllRoots() (id.Set, error)
	FindMergeBase(root id.ID, store string, entryIDs id.Set) (id.ID, error)
	CollectRootToTarget(root id.ID, store string, target id.ID) ([]id.ID, error)
	GetPathFromTo(root id.ID, store string, from, to id.ID) ([]id.ID, error)
	CalculateHeights(root id.ID, store string) (map[id.ID]uint64, error)
	SortEntriesByHeight(root id.ID, entries id.Set) ([]id.ID, error)

	// Private key storage.
	StorePrivateKey(name string, key ed25519.PrivateKey) error
	GetPrivateKey(name string) (ed25519.PrivateKey, error)

	// CRDT materialization cache, keyed by (entry id, store).
	GetCachedCRDTState(entryID id.ID, store string) (string, bool, error)
	CacheCRDTState(entryID id.ID, store string, state string) error
	ClearCRDTCache() error
}
