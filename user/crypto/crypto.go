// Package crypto implements password hashing and private-key-at-rest
// encryption for the user system: Argon2id for password hashing/key
// derivation and AES-256-GCM for encrypting a user's Ed25519 private key
// (spec.md's supplemented user system, grounded on
// original_source/crates/lib/src/user/crypto.rs).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// SaltLength is the random salt size, in bytes.
const SaltLength = 16

// NonceLength is the AES-GCM nonce size, in bytes.
const NonceLength = 12

// KeyLength is the derived key size for AES-256, in bytes.
const KeyLength = 32

// argon2 tuning parameters (time, memory in KiB, parallelism), chosen for
// interactive login latency rather than maximum hardness.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var rawEncoding = base64.RawStdEncoding

// HashPassword hashes password with a fresh random salt, returning an
// encoded string of the form "argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<hash>"
// suitable for storage and later verification.
func HashPassword(password string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("user/crypto: generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, KeyLength)
	return encodePHC(salt, hash), nil
}

// VerifyPassword checks password against an encoded hash produced by
// HashPassword, in constant time.
func VerifyPassword(password, encoded string) error {
	salt, wantHash, err := decodePHC(encoded)
	if err != nil {
		return err
	}
	gotHash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, uint32(len(wantHash)))
	if subtle.ConstantTimeCompare(gotHash, wantHash) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

// DeriveEncryptionKey derives a 32-byte AES-256 key from password and the
// salt embedded in an encoded hash produced by HashPassword, so the same
// password+salt pair used for login also yields the private-key wrapping
// key.
func DeriveEncryptionKey(password, encodedHash string) ([]byte, error) {
	salt, _, err := decodePHC(encodedHash)
	if err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, KeyLength), nil
}

// EncryptPrivateKey seals keyBytes (an Ed25519 private key's raw 64 bytes)
// under encryptionKey with AES-256-GCM, returning ciphertext and the
// randomly generated nonce.
func EncryptPrivateKey(keyBytes, encryptionKey []byte) (ciphertext, nonce []byte, err error) {
	if len(encryptionKey) != KeyLength {
		return nil, nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidKeyLength, KeyLength, len(encryptionKey))
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("user/crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("user/crypto: new gcm: %w", err)
	}
	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("user/crypto: generate nonce: %w", err)
	}
	ciphertext = gcm.Seal(nil, nonce, keyBytes, nil)
	return ciphertext, nonce, nil
}

// DecryptPrivateKey reverses EncryptPrivateKey.
func DecryptPrivateKey(ciphertext, nonce, encryptionKey []byte) ([]byte, error) {
	if len(encryptionKey) != KeyLength {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidKeyLength, KeyLength, len(encryptionKey))
	}
	if len(nonce) != NonceLength {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidNonceLength, NonceLength, len(nonce))
	}
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("user/crypto: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("user/crypto: new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func encodePHC(salt, hash []byte) string {
	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		rawEncoding.EncodeToString(salt), rawEncoding.EncodeToString(hash))
}

func decodePHC(encoded string) (salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return nil, nil, fmt.Errorf("user/crypto: malformed encoded hash")
	}
	salt, err = rawEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, nil, fmt.Errorf("user/crypto: decode salt: %w", err)
	}
	if len(salt) != SaltLength {
		return nil, nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSaltLength, len(salt))
	}
	hash, err = rawEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, fmt.Errorf("user/crypto: decode hash: %w", err)
	}
	return salt, hash, nil
}
