package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/height"
)

func settingsWithKey(name string, key auth.AuthKey) *crdt.Doc {
	d := crdt.NewDoc()
	auth.PutAuthKey(d, name, key)
	return d
}

func TestMergeSettings_UnionsKeysFromBothSides(t *testing.T) {
	alicePub, _, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	bobPub, _, err := auth.GenerateKeyPair()
	require.NoError(t, err)

	alice, err := auth.ActiveAuthKey(auth.FormatPublicKey(alicePub), auth.Admin(0))
	require.NoError(t, err)
	bob, err := auth.ActiveAuthKey(auth.FormatPublicKey(bobPub), auth.Write(0))
	require.NoError(t, err)

	a := settingsWithKey("alice", alice)
	b := settingsWithKey("bob", bob)

	merged, err := MergeSettings(a, b)
	require.NoError(t, err)

	_, err = auth.LookupAuthKey(merged, "alice")
	assert.NoError(t, err)
	_, err = auth.LookupAuthKey(merged, "bob")
	assert.NoError(t, err)
}

func TestMergeSettings_DelegationsUnionByTreeID(t *testing.T) {
	a := crdt.NewDoc()
	auth.PutDelegation(a, "tree-a", auth.Bounds{Max: auth.Write(0)})
	b := crdt.NewDoc()
	auth.PutDelegation(b, "tree-b", auth.Bounds{Max: auth.Admin(0)})

	merged, err := MergeSettings(a, b)
	require.NoError(t, err)

	boundsA, err := auth.LookupDelegation(merged, "tree-a")
	require.NoError(t, err)
	assert.Equal(t, auth.Write(0), boundsA.Max)

	boundsB, err := auth.LookupDelegation(merged, "tree-b")
	require.NoError(t, err)
	assert.Equal(t, auth.Admin(0), boundsB.Max)
}

func TestResolvedHeightStrategy_DefaultsToIncremental(t *testing.T) {
	assert.Equal(t, height.Incremental, ResolvedHeightStrategy(crdt.NewDoc()))

	settings := crdt.NewDoc()
	settings.Set("height_strategy", crdt.Text(string(height.Timestamp)))
	assert.Equal(t, height.Timestamp, ResolvedHeightStrategy(settings))

	settings.Set("height_strategy", crdt.Text("nonsense"))
	assert.Equal(t, height.Incremental, ResolvedHeightStrategy(settings))
}
