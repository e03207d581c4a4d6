package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyPassword_RoundTrip(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.NoError(t, VerifyPassword("correct horse battery staple", encoded))
	assert.ErrorIs(t, VerifyPassword("wrong password", encoded), ErrInvalidPassword)
}

func TestHashPassword_UniqueSaltPerCall(t *testing.T) {
	a, err := HashPassword("same password")
	require.NoError(t, err)
	b, err := HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each hash should use a fresh random salt")
	assert.NoError(t, VerifyPassword("same password", a))
	assert.NoError(t, VerifyPassword("same password", b))
}

func TestDeriveEncryptionKey_Deterministic(t *testing.T) {
	encoded, err := HashPassword("hunter2")
	require.NoError(t, err)

	k1, err := DeriveEncryptionKey("hunter2", encoded)
	require.NoError(t, err)
	k2, err := DeriveEncryptionKey("hunter2", encoded)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, KeyLength)
}

func TestEncryptDecryptPrivateKey_RoundTrip(t *testing.T) {
	encoded, err := HashPassword("my passphrase")
	require.NoError(t, err)
	key, err := DeriveEncryptionKey("my passphrase", encoded)
	require.NoError(t, err)

	plaintext := make([]byte, 64)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	ciphertext, nonce, err := EncryptPrivateKey(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := DecryptPrivateKey(ciphertext, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptPrivateKey_WrongKeyFails(t *testing.T) {
	encoded1, err := HashPassword("passphrase-one")
	require.NoError(t, err)
	key1, err := DeriveEncryptionKey("passphrase-one", encoded1)
	require.NoError(t, err)

	encoded2, err := HashPassword("passphrase-two")
	require.NoError(t, err)
	key2, err := DeriveEncryptionKey("passphrase-two", encoded2)
	require.NoError(t, err)

	plaintext := []byte("super secret ed25519 key material")
	ciphertext, nonce, err := EncryptPrivateKey(plaintext, key1)
	require.NoError(t, err)

	_, err = DecryptPrivateKey(ciphertext, nonce, key2)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptPrivateKey_NonceUniqueness(t *testing.T) {
	encoded, err := HashPassword("passphrase")
	require.NoError(t, err)
	key, err := DeriveEncryptionKey("passphrase", encoded)
	require.NoError(t, err)

	plaintext := []byte("plaintext payload")
	_, nonce1, err := EncryptPrivateKey(plaintext, key)
	require.NoError(t, err)
	_, nonce2, err := EncryptPrivateKey(plaintext, key)
	require.NoError(t, err)

	assert.NotEqual(t, nonce1, nonce2)
}

func TestEncryptPrivateKey_RejectsWrongKeyLength(t *testing.T) {
	_, _, err := EncryptPrivateKey([]byte("data"), []byte("too-short"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestDecryptPrivateKey_RejectsWrongNonceLength(t *testing.T) {
	key := make([]byte, KeyLength)
	_, err := DecryptPrivateKey([]byte("ciphertext"), []byte("short"), key)
	assert.ErrorIs(t, err, ErrInvalidNonceLength)
}

func TestVerifyPassword_RejectsMalformedEncoding(t *testing.T) {
	assert.Error(t, VerifyPassword("anything", "not-a-valid-encoded-hash"))
}
