package auth

import "fmt"

// KeyStatus is the lifecycle state of an auth key (spec.md §4.5).
type KeyStatus string

const (
	// StatusActive keys can sign new entries.
	StatusActive KeyStatus = "active"
	// StatusRevoked keys cannot sign new entries, but entries they
	// already signed remain valid and mergeable.
	StatusRevoked KeyStatus = "revoked"
)

// AuthKey is one entry of a database's _settings.auth map: a named key's
// public key, permission, and status.
type AuthKey struct {
	Pubkey      string
	Permissions Permission
	Status      KeyStatus
}

// NewAuthKey validates pubkey (unless it is the wildcard) and returns an
// AuthKey.
func NewAuthKey(pubkey string, permissions Permission, status KeyStatus) (AuthKey, error) {
	if pubkey != Wildcard {
		if _, err := ParsePublicKey(pubkey); err != nil {
			return AuthKey{}, err
		}
	}
	return AuthKey{Pubkey: pubkey, Permissions: permissions, Status: status}, nil
}

// ActiveAuthKey is a convenience for the common case of an active key.
func ActiveAuthKey(pubkey string, permissions Permission) (AuthKey, error) {
	return NewAuthKey(pubkey, permissions, StatusActive)
}

// ResolvedAuth is the outcome of resolving a SigKey against a settings
// snapshot: the concrete public key to verify against, its effective
// permission after any delegation clamping, and its current status.
type ResolvedAuth struct {
	PublicKey           string
	EffectivePermission Permission
	KeyStatus           KeyStatus
}

func (a AuthKey) String() string {
	return fmt.Sprintf("AuthKey{pubkey=%s, permissions=%s(%d), status=%s}", a.Pubkey, a.Permissions.Tier, a.Permissions.Priority, a.Status)
}
