package auth

import (
	"fmt"

	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
)

// Validate runs the 5-step entry authentication check (spec.md §4.5):
// resolve the signing key (direct or delegated) against settingsSnapshot,
// reject revoked keys, and verify the Ed25519 signature of e.ID() against
// the resolved public key. It returns the resolved auth info so the caller
// (typically transaction commit) can additionally check CanWrite/CanAdmin
// for the operation being authorized.
func (r *Resolver) Validate(e *entry.Entry, settingsSnapshot *crdt.Doc) (ResolvedAuth, error) {
	sig := e.Sig()

	resolved, err := r.Resolve(sig.Key, settingsSnapshot, sig.PubKey)
	if err != nil {
		return ResolvedAuth{}, err
	}

	if resolved.KeyStatus == StatusRevoked {
		return ResolvedAuth{}, fmt.Errorf("%w: key for %v", ErrKeyRevoked, sig.Key)
	}

	pub, err := ParsePublicKey(resolved.PublicKey)
	if err != nil {
		return ResolvedAuth{}, err
	}
	if !Verify(pub, []byte(e.ID().String()), sig.Signature) {
		return ResolvedAuth{}, ErrSignatureVerificationFailed
	}

	return resolved, nil
}

// RequireWrite validates e and additionally requires the resolved key to
// CanWrite.
func (r *Resolver) RequireWrite(e *entry.Entry, settingsSnapshot *crdt.Doc) (ResolvedAuth, error) {
	resolved, err := r.Validate(e, settingsSnapshot)
	if err != nil {
		return ResolvedAuth{}, err
	}
	if !resolved.EffectivePermission.CanWrite() {
		return ResolvedAuth{}, ErrInsufficientPermissions
	}
	return resolved, nil
}

// RequireAdmin validates e and additionally requires the resolved key to
// CanAdmin (entries touching _settings).
func (r *Resolver) RequireAdmin(e *entry.Entry, settingsSnapshot *crdt.Doc) (ResolvedAuth, error) {
	resolved, err := r.Validate(e, settingsSnapshot)
	if err != nil {
		return ResolvedAuth{}, err
	}
	if !resolved.EffectivePermission.CanAdmin() {
		return ResolvedAuth{}, ErrInsufficientPermissions
	}
	return resolved, nil
}
