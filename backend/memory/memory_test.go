package memory

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

func buildRoot(t *testing.T) *entry.Entry {
	t.Helper()
	e, err := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).Build()
	require.NoError(t, err)
	return e
}

func TestBackend_PutGetRoundTrip(t *testing.T) {
	b := New()
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))

	got, err := b.Get(root.ID())
	require.NoError(t, err)
	assert.Equal(t, root.ID(), got.ID())
}

func TestBackend_OutOfOrderSync_TipsConverge(t *testing.T) {
	b := New()
	root := buildRoot(t)

	bEntry, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	cEntry, err := entry.NewBuilder(root.ID()).AddParents(bEntry.ID()).SetStoreData("data", `{"a":2}`).Build()
	require.NoError(t, err)

	// Receive C before B, and both before the root.
	require.NoError(t, b.PutVerified(cEntry))
	tips, err := b.GetTips(root.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(cEntry.ID())}, tips.Strings())

	// Now receive B: tips must still be {C}.
	require.NoError(t, b.PutVerified(bEntry))
	tips, err = b.GetTips(root.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(cEntry.ID())}, tips.Strings())

	// Finally receive the root: tips must still be {C}.
	require.NoError(t, b.PutVerified(root))
	tips, err = b.GetTips(root.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(cEntry.ID())}, tips.Strings())
}

func TestBackend_FindMergeBase(t *testing.T) {
	b := New()
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))

	left, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"x":1}`).Build()
	require.NoError(t, err)
	right, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"x":2}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(left))
	require.NoError(t, b.PutVerified(right))

	merged, err := entry.NewBuilder(root.ID()).AddParents(left.ID(), right.ID()).SetStoreData("data", `{"x":3}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(merged))

	base, err := b.FindMergeBase(root.ID(), "", id.NewSet(left.ID(), right.ID()))
	require.NoError(t, err)
	assert.Equal(t, root.ID(), base)
}

func TestBackend_VerificationStatusFiltering(t *testing.T) {
	b := New()
	root := buildRoot(t)
	require.NoError(t, b.Put(backend.StatusFailed, root))

	failed, err := b.GetEntriesByVerificationStatus(backend.StatusFailed)
	require.NoError(t, err)
	assert.Contains(t, failed, root.ID())

	verified, err := b.GetEntriesByVerificationStatus(backend.StatusVerified)
	require.NoError(t, err)
	assert.NotContains(t, verified, root.ID())
}

func TestBackend_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/db.json"

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	b := New()
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))
	require.NoError(t, b.StorePrivateKey("main", priv))
	require.NoError(t, b.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	got, err := loaded.Get(root.ID())
	require.NoError(t, err)
	assert.Equal(t, root.ID(), got.ID())

	_, err = loaded.GetPrivateKey("main")
	require.NoError(t, err)
}

func TestLoad_RejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/db.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"_v": 99, "entries": {}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.False(t, backend.IsNotFound(err))
}
