package crypto

import "errors"

var (
	// ErrInvalidSaltLength is returned when a stored salt string isn't
	// SaltLength bytes.
	ErrInvalidSaltLength = errors.New("user/crypto: invalid salt length")
	// ErrInvalidNonceLength is returned when a stored nonce isn't
	// NonceLength bytes.
	ErrInvalidNonceLength = errors.New("user/crypto: invalid nonce length")
	// ErrInvalidKeyLength is returned when a derived/decrypted key isn't
	// the expected length.
	ErrInvalidKeyLength = errors.New("user/crypto: invalid key length")
	// ErrInvalidPassword is returned when a password fails verification
	// against its stored hash.
	ErrInvalidPassword = errors.New("user/crypto: invalid password")
	// ErrDecryptionFailed is returned when AES-GCM authentication fails
	// (wrong key, corrupted ciphertext, or tampering).
	ErrDecryptionFailed = errors.New("user/crypto: decryption failed")
)
