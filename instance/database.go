package instance

import (
	"fmt"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/database"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/transaction"
)

// PublicKeyFor returns u's named key in wire format.
func (inst *Instance) PublicKeyFor(u *User, keyName string) (string, error) {
	inst.usersMu.Lock()
	defer inst.usersMu.Unlock()
	sk, ok := u.keys[keyName]
	if !ok {
		return "", ErrKeyNotFound
	}
	return auth.FormatPublicKey(sk.pub), nil
}

// CreateDatabase creates a new database whose root entry grants u's named
// key Admin over its _settings, using that key to sign the root entry
// (spec.md §4.8: "keys own databases by holding an admin capability").
func (inst *Instance) CreateDatabase(name string, u *User, password, keyName string) (*database.Database, error) {
	inst.databasesMu.Lock()
	if _, exists := inst.databases[name]; exists {
		inst.databasesMu.Unlock()
		return nil, ErrDatabaseNameExists
	}
	inst.databasesMu.Unlock()

	if _, err := inst.Key(u, password, keyName); err != nil {
		return nil, err
	}
	pubkey, err := inst.PublicKeyFor(u, keyName)
	if err != nil {
		return nil, err
	}

	tx := transaction.NewRoot(inst.backend, inst.resolver, inst.mat)
	tx.SetSigningKey(inst.SigningKeyName(u, keyName))

	rootStore, err := tx.Delta(entry.RootStore)
	if err != nil {
		return nil, err
	}
	rootStore.Set("name", crdt.Text(name))

	settings, err := tx.Delta(entry.SettingsStore)
	if err != nil {
		return nil, err
	}
	key, err := auth.ActiveAuthKey(pubkey, auth.Admin(0))
	if err != nil {
		return nil, fmt.Errorf("instance: create database: %w", err)
	}
	auth.PutAuthKey(settings, keyName, key)

	root, err := tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("instance: create database: %w", err)
	}

	inst.databasesMu.Lock()
	inst.databases[name] = root
	inst.databasesMu.Unlock()

	return database.New(inst, root), nil
}

// FindDatabase looks up a database previously created or registered under
// name on this Instance.
func (inst *Instance) FindDatabase(name string) (*database.Database, error) {
	inst.databasesMu.Lock()
	root, ok := inst.databases[name]
	inst.databasesMu.Unlock()
	if !ok {
		return nil, ErrDatabaseNotFound
	}
	return database.New(inst, root), nil
}

// AllDatabases returns every database registered on this Instance.
func (inst *Instance) AllDatabases() []*database.Database {
	inst.databasesMu.Lock()
	defer inst.databasesMu.Unlock()
	out := make([]*database.Database, 0, len(inst.databases))
	for _, root := range inst.databases {
		out = append(out, database.New(inst, root))
	}
	return out
}

// RegisterDatabase adds an externally known root (e.g. one just learned
// about via sync bootstrap) to the local name registry.
func (inst *Instance) RegisterDatabase(name string, root id.ID) error {
	inst.databasesMu.Lock()
	defer inst.databasesMu.Unlock()
	if _, exists := inst.databases[name]; exists {
		return ErrDatabaseNameExists
	}
	inst.databases[name] = root
	return nil
}
