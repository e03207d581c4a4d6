package instance

import (
	"crypto/ed25519"
	"fmt"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/user/crypto"
)

// storedKey is one of a User's Ed25519 keys, encrypted at rest under the
// user's password-derived key (spec.md §3.6).
type storedKey struct {
	pub        ed25519.PublicKey
	ciphertext []byte
	nonce      []byte
}

// User is a per-process registry record: a name, a password hash, and the
// set of Ed25519 keys it owns. Keys, not users, hold database admin
// capabilities — a key owns a database by being granted Admin in that
// database's auth settings (spec.md §4.8).
type User struct {
	Name         string
	passwordHash string
	keys         map[string]storedKey
}

// CreateUser registers a new user with a freshly generated default signing
// key, returning the user record and the key's wire-format public key.
func (inst *Instance) CreateUser(name, password string) (*User, string, error) {
	inst.usersMu.Lock()
	defer inst.usersMu.Unlock()

	if _, exists := inst.users[name]; exists {
		return nil, "", ErrUserExists
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("instance: create user: %w", err)
	}

	u := &User{Name: name, passwordHash: hash, keys: make(map[string]storedKey)}
	inst.users[name] = u

	pubkey, err := inst.addKeyLocked(u, password, "default")
	if err != nil {
		delete(inst.users, name)
		return nil, "", err
	}
	return u, pubkey, nil
}

// LoginUser verifies password against the stored hash and returns the user
// record on success.
func (inst *Instance) LoginUser(name, password string) (*User, error) {
	inst.usersMu.Lock()
	defer inst.usersMu.Unlock()

	u, ok := inst.users[name]
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := crypto.VerifyPassword(password, u.passwordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Logout is a no-op: Instance keeps no server-side session state beyond the
// users registry itself, so logging out only matters to the caller holding
// the *User reference.
func (inst *Instance) Logout(*User) {}

// ListUsers returns every registered user name, in map iteration order.
func (inst *Instance) ListUsers() []string {
	inst.usersMu.Lock()
	defer inst.usersMu.Unlock()
	names := make([]string, 0, len(inst.users))
	for name := range inst.users {
		names = append(names, name)
	}
	return names
}

// AddKey generates a new Ed25519 key for u, encrypted under password, and
// returns its wire-format public key.
func (inst *Instance) AddKey(u *User, password, keyName string) (string, error) {
	inst.usersMu.Lock()
	defer inst.usersMu.Unlock()
	return inst.addKeyLocked(u, password, keyName)
}

func (inst *Instance) addKeyLocked(u *User, password, keyName string) (string, error) {
	pub, priv, err := auth.GenerateKeyPair()
	if err != nil {
		return "", fmt.Errorf("instance: generate key: %w", err)
	}
	encKey, err := crypto.DeriveEncryptionKey(password, u.passwordHash)
	if err != nil {
		return "", fmt.Errorf("instance: derive encryption key: %w", err)
	}
	ciphertext, nonce, err := crypto.EncryptPrivateKey(priv, encKey)
	if err != nil {
		return "", fmt.Errorf("instance: encrypt private key: %w", err)
	}
	u.keys[keyName] = storedKey{pub: pub, ciphertext: ciphertext, nonce: nonce}

	pubkey := auth.FormatPublicKey(pub)
	privName := u.Name + "/" + keyName
	if err := inst.backend.StorePrivateKey(privName, priv); err != nil {
		return "", fmt.Errorf("instance: store private key: %w", err)
	}
	return pubkey, nil
}

// Key decrypts and returns u's named private key, using password to derive
// the wrapping key.
func (inst *Instance) Key(u *User, password, keyName string) (ed25519.PrivateKey, error) {
	inst.usersMu.Lock()
	sk, ok := u.keys[keyName]
	inst.usersMu.Unlock()
	if !ok {
		return nil, ErrKeyNotFound
	}
	encKey, err := crypto.DeriveEncryptionKey(password, u.passwordHash)
	if err != nil {
		return nil, fmt.Errorf("instance: derive encryption key: %w", err)
	}
	return crypto.DecryptPrivateKey(sk.ciphertext, sk.nonce, encKey)
}

// SigningKeyName returns the backend private-key-store name used to sign
// with u's named key (the value transaction.SetSigningKey expects).
func (inst *Instance) SigningKeyName(u *User, keyName string) string {
	return u.Name + "/" + keyName
}
