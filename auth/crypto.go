package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// keyPrefix tags a public key string as Ed25519-encoded (spec.md §4.5:
// "ed25519:<base64-url-no-pad>"). Wildcard is the literal string "*".
const keyPrefix = "ed25519:"

// Wildcard is the special pubkey/key-name meaning "any signer, verified
// against sig.pubkey" (spec.md §4.5 step 3).
const Wildcard = "*"

var b64 = base64.URLEncoding.WithPadding(base64.NoPadding)

// GenerateKeyPair returns a new random Ed25519 key pair.
func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: generate keypair: %w", err)
	}
	return pub, priv, nil
}

// FormatPublicKey renders pub in the wire format "ed25519:<base64url>".
func FormatPublicKey(pub ed25519.PublicKey) string {
	return keyPrefix + b64.EncodeToString(pub)
}

// ParsePublicKey parses the wire format produced by FormatPublicKey. The
// wildcard string "*" is rejected here; callers that accept it check for
// it explicitly before calling ParsePublicKey.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(s, keyPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidPublicKey, keyPrefix)
	}
	raw, err := b64.DecodeString(strings.TrimPrefix(s, keyPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Sign signs data (typically an entry id's raw bytes) with priv.
func Sign(priv ed25519.PrivateKey, data []byte) []byte {
	return ed25519.Sign(priv, data)
}

// Verify reports whether sig is a valid Ed25519 signature of data under
// pub.
func Verify(pub ed25519.PublicKey, data, sig []byte) bool {
	return ed25519.Verify(pub, data, sig)
}
