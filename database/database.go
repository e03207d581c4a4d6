// Package database implements the Database handle: an Instance + root entry
// id, exposing transaction and store-view access scoped to one database
// (spec.md §4.7).
package database

import (
	"fmt"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/store"
	"github.com/eidetica/eidetica/transaction"
)

// Host is the narrow view of an Instance a Database needs. instance.Instance
// satisfies this structurally; database does not import instance, since
// instance must import database to construct and return Database handles
// (spec.md §4.7/§4.8's mutual dependency is broken this way).
//
// Alive reports whether the owning Instance is still open: the Go
// equivalent of spec.md §4.7's "weak reference" contract, since Go's GC
// model has no direct analogue of Rust's Weak<T>.
type Host interface {
	Backend() backend.Backend
	Resolver() *auth.Resolver
	Materializer() *transaction.Materializer
	Hooks() transaction.Hooks
	Alive() bool
}

// Database wraps a Host (effectively a weak reference to an Instance) and a
// database root id.
type Database struct {
	host Host
	root id.ID
}

// New returns a Database bound to root on host. Instance is the only
// intended caller.
func New(host Host, root id.ID) *Database {
	return &Database{host: host, root: root}
}

// RootID returns the database's root entry id.
func (d *Database) RootID() id.ID { return d.root }

func (d *Database) checkAlive() error {
	if !d.host.Alive() {
		return ErrInstanceDropped
	}
	return nil
}

// Tips returns the database's current main tips.
func (d *Database) Tips() (id.Set, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	tips, err := d.host.Backend().GetTips(d.root)
	if err != nil {
		return nil, fmt.Errorf("database: tips: %w", err)
	}
	return tips, nil
}

// GetEntry loads a single entry by id, regardless of which database it
// belongs to (the backend indexes entries globally).
func (d *Database) GetEntry(entryID id.ID) (*entry.Entry, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	e, err := d.host.Backend().Get(entryID)
	if err != nil {
		return nil, fmt.Errorf("database: get entry: %w", err)
	}
	return e, nil
}

// Settings materializes the database's current _settings snapshot.
func (d *Database) Settings() (*crdt.Doc, error) {
	tips, err := d.Tips()
	if err != nil {
		return nil, err
	}
	doc, err := d.host.Materializer().Doc(d.root, entry.SettingsStore, tips)
	if err != nil {
		return nil, fmt.Errorf("database: settings: %w", err)
	}
	return doc, nil
}

// NewTransaction opens a Transaction against the database's current tips.
func (d *Database) NewTransaction() (*transaction.Transaction, error) {
	tips, err := d.Tips()
	if err != nil {
		return nil, err
	}
	return d.NewTransactionWithTips(tips)
}

// NewTransactionWithTips opens a Transaction against an explicit tip set
// (e.g. to replay history or resolve a stale read).
func (d *Database) NewTransactionWithTips(tips id.Set) (*transaction.Transaction, error) {
	if err := d.checkAlive(); err != nil {
		return nil, err
	}
	tx, err := transaction.New(d.host.Backend(), d.host.Resolver(), d.host.Materializer(), d.root, tips)
	if err != nil {
		return nil, err
	}
	if h := d.host.Hooks(); h != nil {
		tx.SetHooks(h)
	}
	return tx, nil
}

// DocStore opens a Doc store view named name against tx.
func (d *Database) DocStore(tx *transaction.Transaction, name string) *store.DocStore {
	return store.NewDocStore(tx, name)
}

// YDocStore opens a YDoc store view named name against tx.
func (d *Database) YDocStore(tx *transaction.Transaction, name string) *store.YDoc {
	return store.NewYDoc(tx, name)
}

// Table opens a generic record Table[T] view named name against tx. Package-
// level rather than a Database method, since Go methods cannot introduce
// their own type parameters beyond the receiver's.
func Table[T any](tx *transaction.Transaction, name string) *store.Table[T] {
	return store.NewTable[T](tx, name)
}
