package entry

import (
	"strings"

	"github.com/eidetica/eidetica/id"
)

// Builder stages the fields of a new Entry. Obtain one with RootBuilder or
// Builder(root); call Build to finalize. Two builders fed identical inputs
// in any order produce identical IDs (spec.md §4.2 determinism).
type Builder struct {
	isRoot   bool
	root     id.ID
	parents  []id.ID
	stores   map[string]*stagedStore
	sig      Sig
	metadata string
}

type stagedStore struct {
	data    string
	hasData bool
	parents []id.ID
}

// RootBuilder starts building a database root entry. The caller must stage
// the "_root" store (directly, or implicitly by calling AddStoreParents/
// SetStoreData("_root", ...)) before Build, or Build fails with ErrEmptyEntry.
func RootBuilder() *Builder {
	return &Builder{
		isRoot: true,
		stores: make(map[string]*stagedStore),
	}
}

// NewBuilder starts building a non-root entry belonging to the database
// rooted at root.
func NewBuilder(root id.ID) *Builder {
	return &Builder{
		root:   root,
		stores: make(map[string]*stagedStore),
	}
}

func (b *Builder) store(name string) *stagedStore {
	s, ok := b.stores[name]
	if !ok {
		s = &stagedStore{}
		b.stores[name] = s
	}
	return s
}

// AddParents appends main-tree parent ids. Duplicates and ordering are
// normalized at Build time.
func (b *Builder) AddParents(ids ...id.ID) *Builder {
	b.parents = append(b.parents, ids...)
	return b
}

// SetStoreData stages the canonical-JSON delta for a store.
func (b *Builder) SetStoreData(name, data string) *Builder {
	s := b.store(name)
	s.data = data
	s.hasData = true
	return b
}

// AddStoreParents appends per-store DAG parents for a store.
func (b *Builder) AddStoreParents(name string, ids ...id.ID) *Builder {
	s := b.store(name)
	s.parents = append(s.parents, ids...)
	return b
}

// SetSigKey stages the signer reference. Signing (filling Signature) happens
// after Build, over the computed ID bytes.
func (b *Builder) SetSigKey(key SigKey) *Builder {
	b.sig.Key = key
	return b
}

// SetPubKey stages the signer's literal public key, required for the
// global "*" SigKey (spec.md §4.5 step 3).
func (b *Builder) SetPubKey(pubkey string) *Builder {
	b.sig.PubKey = pubkey
	return b
}

// SetMetadata stages auxiliary canonical JSON metadata (e.g. settings_tips).
func (b *Builder) SetMetadata(canonicalJSON string) *Builder {
	b.metadata = canonicalJSON
	return b
}

// Build finalizes the entry: drops empty stores, normalizes parent sets,
// computes the content ID, and validates the structural invariants of
// spec.md §3.2. The returned Entry has no signature yet; sign its ID bytes
// and attach the result via Entry values constructed by the transaction
// package, which owns the sign-then-freeze step.
func (b *Builder) Build() (*Entry, error) {
	if !b.isRoot && b.root.IsEmpty() {
		return nil, &Error{Op: "build", Err: ErrMissingRoot}
	}

	stores := make(map[string]StoreData)
	for name, s := range b.stores {
		if strings.TrimSpace(name) == "" {
			return nil, &Error{Op: "build", Err: ErrInvalidStoreName, Note: "empty store name"}
		}
		parents := id.NewSet(s.parents...)
		if !s.hasData && len(parents) == 0 {
			// Empty stores (no data and no parents) are dropped before id computation.
			continue
		}
		if s.hasData {
			if _, err := id.DecodeCanonical([]byte(emptyToObject(s.data))); err != nil {
				return nil, &Error{Op: "build", Err: ErrInvalidStoreData, Note: name}
			}
		}
		stores[name] = StoreData{Data: s.data, Parents: parents}
	}

	parents := id.NewSet(b.parents...)

	if b.isRoot {
		if _, ok := stores[RootStore]; !ok {
			return nil, &Error{Op: "build", Err: ErrEmptyEntry, Note: "root entry missing _root store"}
		}
	}
	if len(parents) == 0 && len(stores) == 0 {
		return nil, &Error{Op: "build", Err: ErrEmptyEntry}
	}

	e := &Entry{
		root:     b.root,
		parents:  parents,
		stores:   stores,
		sig:      b.sig,
		metadata: b.metadata,
	}
	e.id = computeID(e)
	return e, nil
}

func emptyToObject(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	return s
}
