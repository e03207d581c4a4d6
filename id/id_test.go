package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Valid(t *testing.T) {
	hashed, err := HashValue(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.True(t, hashed.Valid())
	assert.Len(t, string(hashed), Len)

	assert.False(t, ID("not-hex").Valid())
	assert.False(t, ID("").Valid())
	assert.True(t, Empty.IsEmpty())
}

func TestNewSet_DedupesAndSorts(t *testing.T) {
	s := NewSet("b", "a", "b", "c", "a")
	assert.Equal(t, Set{"a", "b", "c"}, s)
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("z"))
}

func TestHashValue_Stable(t *testing.T) {
	a, err := HashValue(map[string]any{"x": 1, "y": "hi"})
	require.NoError(t, err)
	b, err := HashValue(map[string]any{"y": "hi", "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b, "map key order must not affect the hash")
}

func TestHashValue_RejectsFloats(t *testing.T) {
	_, err := HashValue(map[string]any{"x": 1.5})
	assert.ErrorIs(t, err, ErrFloatNotAllowed)
}
