package id

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hasher computes a content ID from canonical JSON bytes. It is an
// interface so tests can substitute a deterministic stub without linking
// the real digest.
type Hasher interface {
	Hash(canonicalJSON []byte) ID
}

// Blake3Hasher is the production Hasher: Blake3-256 over the input, hex
// encoded lowercase.
type Blake3Hasher struct{}

// Hash implements Hasher.
func (Blake3Hasher) Hash(canonicalJSON []byte) ID {
	sum := blake3.Sum256(canonicalJSON)
	return ID(hex.EncodeToString(sum[:]))
}

// Default is the Hasher used throughout the module unless a component is
// explicitly constructed with another one (tests only).
var Default Hasher = Blake3Hasher{}

// Hash is a package-level convenience wrapping Default.Hash.
func Hash(canonicalJSON []byte) ID {
	return Default.Hash(canonicalJSON)
}

// HashValue canonicalizes v and hashes the result in one step.
func HashValue(v any) (ID, error) {
	data, err := Canonicalize(v)
	if err != nil {
		return Empty, err
	}
	return Hash(data), nil
}
