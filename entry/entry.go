// Package entry implements Eidetica's immutable DAG node type: the unit of
// persistence and of signature (spec.md §3.2, §4.2).
package entry

import "github.com/eidetica/eidetica/id"

// RootStore is the distinguished store name every root entry presents.
const RootStore = "_root"

// SettingsStore is the store name holding a database's auth/config settings.
const SettingsStore = "_settings"

// DelegationStep is one hop of a DelegationPath SigKey: either an
// intermediate step naming the delegated database and the tips it was
// claimed at, or the terminal step naming the key within that database's
// auth snapshot. Tree and Tips are empty on the terminal step; Key is empty
// on every non-terminal step.
type DelegationStep struct {
	Tree id.ID  `json:"tree,omitempty"`
	Tips id.Set `json:"tips,omitempty"`
	Key  string `json:"key,omitempty"`
}

// SigKey identifies the signing identity behind an entry: either a direct
// name in the database's own auth settings, or an ordered delegation path
// through other databases' auth settings (spec.md §3.2, §4.5).
type SigKey struct {
	// Direct holds the key name when this is a non-delegated reference.
	// Empty when Delegation is non-empty.
	Direct string `json:"direct,omitempty"`
	// Delegation holds the ordered path when this is a delegated reference.
	Delegation []DelegationStep `json:"delegation,omitempty"`
}

// IsDelegated reports whether this SigKey resolves through a delegation path.
func (k SigKey) IsDelegated() bool {
	return len(k.Delegation) > 0
}

// Sig is an entry's signature block.
type Sig struct {
	// Signature is the raw Ed25519 signature bytes, base64 on the wire.
	// Empty on an entry that hasn't been signed yet (a staged, uncommitted
	// entry never leaves the transaction package in this state).
	Signature []byte `json:"signature,omitempty"`
	Key       SigKey `json:"key"`
	// PubKey carries the signer's actual public key for the global "*" key
	// (spec.md §4.5 step 3); empty for named keys, which are resolved from
	// auth settings instead.
	PubKey string `json:"pubkey,omitempty"`
}

// StoreData is one store's contribution to an entry: its serialized CRDT
// delta plus the per-store DAG parents it was built on.
type StoreData struct {
	Data    string `json:"data"`
	Parents id.Set `json:"parents,omitempty"`
}

// Entry is an immutable DAG node. Construct one with RootBuilder or Builder;
// never mutate a built Entry.
type Entry struct {
	id       id.ID
	root     id.ID
	parents  id.Set
	stores   map[string]StoreData
	sig      Sig
	metadata string // canonical JSON, empty if absent
}

// ID returns the entry's content-addressed identifier.
func (e *Entry) ID() id.ID { return e.id }

// Root returns the database root id this entry belongs to; empty only for
// a root entry itself.
func (e *Entry) Root() id.ID { return e.root }

// Parents returns the main-tree parent set.
func (e *Entry) Parents() id.Set { return e.parents }

// IsRoot reports whether this entry is a database root entry.
func (e *Entry) IsRoot() bool { return e.root.IsEmpty() }

// Stores returns the set of store names this entry touches, in sorted order.
func (e *Entry) Stores() []string {
	out := make([]string, 0, len(e.stores))
	for name := range e.stores {
		out = append(out, name)
	}
	sortStrings(out)
	return out
}

// InStore reports whether the entry carries data for the named store.
func (e *Entry) InStore(store string) bool {
	_, ok := e.stores[store]
	return ok
}

// Data returns the named store's serialized delta, and whether it exists.
func (e *Entry) Data(store string) (string, bool) {
	sd, ok := e.stores[store]
	if !ok {
		return "", false
	}
	return sd.Data, true
}

// StoreParents returns the named store's per-store DAG parents.
func (e *Entry) StoreParents(store string) id.Set {
	return e.stores[store].Parents
}

// Sig returns the entry's signature block.
func (e *Entry) Sig() Sig { return e.sig }

// Metadata returns the entry's auxiliary canonical JSON metadata, and
// whether any was set.
func (e *Entry) Metadata() (string, bool) {
	return e.metadata, e.metadata != ""
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
