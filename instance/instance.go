// Package instance implements the top-level Instance handle: a Backend, a
// per-process users registry, an optional Sync engine, and the device
// identity used to authenticate sync handshakes (spec.md §4.8).
package instance

import (
	"crypto/ed25519"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/transaction"
)

// Instance owns a Backend handle, a users registry, and optionally a Sync
// engine. Users own keys; keys own databases by holding an admin capability
// in each database's auth settings (spec.md §4.8).
type Instance struct {
	backend  backend.Backend
	resolver *auth.Resolver
	mat      *transaction.Materializer

	devicePub  ed25519.PublicKey
	devicePriv ed25519.PrivateKey
	deviceID   string

	usersMu sync.Mutex
	users   map[string]*User

	databasesMu sync.Mutex
	databases   map[string]id.ID // name -> root, local registry (see DESIGN.md)

	hooksMu sync.Mutex
	hooks   transaction.Hooks

	syncOnce syncState

	alive atomic.Bool
}

// deviceSigningKeyName is the backend private-key-store name under which the
// device identity is stored, so it can be used as a transaction.SetSigningKey
// target (needed by the sync engine's own bookkeeping database, which is
// signed by the device rather than by any particular user).
const deviceSigningKeyName = "__device__"

// New constructs an Instance over b, generating a fresh device identity.
func New(b backend.Backend) (*Instance, error) {
	devicePub, devicePriv, err := auth.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("instance: generate device key: %w", err)
	}
	if err := b.StorePrivateKey(deviceSigningKeyName, devicePriv); err != nil {
		return nil, fmt.Errorf("instance: store device key: %w", err)
	}

	inst := &Instance{
		backend:    b,
		mat:        transaction.NewMaterializer(b),
		devicePub:  devicePub,
		devicePriv: devicePriv,
		deviceID:   auth.FormatPublicKey(devicePub),
		users:      make(map[string]*User),
		databases:  make(map[string]id.ID),
	}
	inst.resolver = auth.NewResolver(&treeLoader{backend: b, mat: inst.mat})
	inst.alive.Store(true)
	return inst, nil
}

// Backend satisfies database.Host.
func (inst *Instance) Backend() backend.Backend { return inst.backend }

// Resolver satisfies database.Host.
func (inst *Instance) Resolver() *auth.Resolver { return inst.resolver }

// Materializer satisfies database.Host.
func (inst *Instance) Materializer() *transaction.Materializer { return inst.mat }

// Hooks satisfies database.Host: the sync engine's hook collection, once
// EnableSync has been called, or nil.
func (inst *Instance) Hooks() transaction.Hooks {
	inst.hooksMu.Lock()
	defer inst.hooksMu.Unlock()
	return inst.hooks
}

// Alive satisfies database.Host: reports whether Close has not been called.
func (inst *Instance) Alive() bool { return inst.alive.Load() }

// DeviceID returns the device's public key in wire format
// ("ed25519:<base64url>"), used to identify this Instance in sync
// handshakes (spec.md §4.9.4).
func (inst *Instance) DeviceID() string { return inst.deviceID }

// DevicePublicKey returns the device's Ed25519 public key.
func (inst *Instance) DevicePublicKey() ed25519.PublicKey { return inst.devicePub }

// SignWithDeviceKey signs data with the device's private key (used to
// answer a sync handshake challenge).
func (inst *Instance) SignWithDeviceKey(data []byte) []byte {
	return auth.Sign(inst.devicePriv, data)
}

// DeviceSigningKeyName returns the backend private-key-store name for the
// device identity, for use with transaction.Transaction.SetSigningKey.
func (inst *Instance) DeviceSigningKeyName() string { return deviceSigningKeyName }

// Close marks the Instance dropped: every Database handle issued from it
// will subsequently fail with database.ErrInstanceDropped.
func (inst *Instance) Close() {
	inst.alive.Store(false)
}
