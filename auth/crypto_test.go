package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParsePublicKey_RoundTrip(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	formatted := FormatPublicKey(pub)
	assert.Regexp(t, "^ed25519:", formatted)

	parsed, err := ParsePublicKey(formatted)
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)
}

func TestParsePublicKey_RejectsBadInput(t *testing.T) {
	_, err := ParsePublicKey("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = ParsePublicKey("ed25519:not-base64!!!")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestSignVerify(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	data := []byte("some entry id bytes")
	sig := Sign(priv, data)
	assert.True(t, Verify(pub, data, sig))
	assert.False(t, Verify(pub, []byte("tampered"), sig))
}
