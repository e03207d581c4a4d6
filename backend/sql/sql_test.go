package sqlbackend

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

func openTest(t *testing.T) *Backend {
	t.Helper()
	b, err := Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func buildRoot(t *testing.T) *entry.Entry {
	t.Helper()
	e, err := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).Build()
	require.NoError(t, err)
	return e
}

func TestBackend_PutGetRoundTrip(t *testing.T) {
	b := openTest(t)
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))

	got, err := b.Get(root.ID())
	require.NoError(t, err)
	assert.Equal(t, root.ID(), got.ID())
}

func TestBackend_GetMissing_ReturnsNotFound(t *testing.T) {
	b := openTest(t)
	_, err := b.Get(id.ID("nonexistent"))
	require.Error(t, err)
	assert.True(t, backend.IsNotFound(err))
}

func TestBackend_OutOfOrderSync_TipsConverge(t *testing.T) {
	b := openTest(t)
	root := buildRoot(t)

	bEntry, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	cEntry, err := entry.NewBuilder(root.ID()).AddParents(bEntry.ID()).SetStoreData("data", `{"a":2}`).Build()
	require.NoError(t, err)

	require.NoError(t, b.PutVerified(cEntry))
	tips, err := b.GetTips(root.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(cEntry.ID())}, tips.Strings())

	require.NoError(t, b.PutVerified(bEntry))
	tips, err = b.GetTips(root.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(cEntry.ID())}, tips.Strings())

	require.NoError(t, b.PutVerified(root))
	tips, err = b.GetTips(root.ID())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(cEntry.ID())}, tips.Strings())
}

func TestBackend_FindMergeBase(t *testing.T) {
	b := openTest(t)
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
	b := openTest(t)
	root := buildRoot(t)
	require.NoError(t, b.Put(backend.StatusFailed, root))

	failed, err := b.GetEntriesByVerificationStatus(backend.StatusFailed)
	require.NoError(t, err)
	assert.Contains(t, failed, root.ID())

	verified, err := b.GetEntriesByVerificationStatus(backend.StatusVerified)
	require.NoError(t, err)
	assert.NotContains(t, verified, root.ID())
}

func TestBackend_PrivateKeyRoundTrip(t *testing.T) {
	b := openTest(t)
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	require.NoError(t, b.StorePrivateKey("main", priv))
	got, err := b.GetPrivateKey("main")
	require.NoError(t, err)
	assert.Equal(t, priv, got)

	_, err = b.GetPrivateKey("missing")
	require.Error(t, err)
	assert.True(t, backend.IsNotFound(err))
}

func TestBackend_CRDTCacheRoundTrip(t *testing.T) {
	b := openTest(t)
	root := buildRoot(t)

	_, ok, err := b.GetCachedCRDTState(root.ID(), "data")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.CacheCRDTState(root.ID(), "data", `{"a":1}`))
	state, ok, err := b.GetCachedCRDTState(root.ID(), "data")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, state)

	require.NoError(t, b.ClearCRDTCache())
	_, ok, err = b.GetCachedCRDTState(root.ID(), "data")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_CollectRootToTarget_And_PathFromTo(t *testing.T) {
	b := openTest(t)
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))

	mid, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(mid))

	tip, err := entry.NewBuilder(root.ID()).AddParents(mid.ID()).SetStoreData("data", `{"a":2}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(tip))

	chain, err := b.CollectRootToTarget(root.ID(), "", tip.ID())
	require.NoError(t, err)
	assert.Equal(t, []id.ID{root.ID(), mid.ID(), tip.ID()}, chain)

	path, err := b.GetPathFromTo(root.ID(), "", root.ID(), tip.ID())
	require.NoError(t, err)
	assert.Equal(t, []id.ID{root.ID(), mid.ID(), tip.ID()}, path)

	_, err = b.GetPathFromTo(root.ID(), "", tip.ID(), root.ID())
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrNoPath)
}

func TestBackend_CalculateHeights_And_SortEntriesByHeight(t *testing.T) {
	b := openTest(t)
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))

	child, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(child))

	heights, err := b.CalculateHeights(root.ID(), "")
	require.NoError(t, err)
	assert.Less(t, heights[root.ID()], heights[child.ID()])

	sorted, err := b.SortEntriesByHeight(root.ID(), id.NewSet(child.ID(), root.ID()))
	require.NoError(t, err)
	assert.Equal(t, []id.ID{root.ID(), child.ID()}, sorted)
}

func TestBackend_AllRoots(t *testing.T) {
	b := openTest(t)
	root := buildRoot(t)
	require.NoError(t, b.PutVerified(root))

	child, err := entry.NewBuilder(root.ID()).AddParents(root.ID()).SetStoreData("data", `{"a":1}`).Build()
	require.NoError(t, err)
	require.NoError(t, b.PutVerified(child))

	roots, err := b.AllRoots()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{string(root.ID())}, roots.Strings())
}

func TestBackend_SchemaVersion_RejectsFuture(t *testing.T) {
	b := openTest(t)
	_, err := b.db.Exec(`UPDATE schema_version SET version = ?`, SchemaVersion+1)
	require.NoError(t, err)

	_, err = New(b.db, DialectSQLite)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownSchemaVersion)
}
