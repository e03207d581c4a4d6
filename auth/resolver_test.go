package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

func settingsWithKey(t *testing.T, name string, pub string, perm Permission, status KeyStatus) *crdt.Doc {
	t.Helper()
	s := crdt.NewDoc()
	key, err := NewAuthKey(pub, perm, status)
	require.NoError(t, err)
	PutAuthKey(s, name, key)
	return s
}

func TestResolve_DirectActiveKey(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	formatted := FormatPublicKey(pub)
	settings := settingsWithKey(t, "laptop", formatted, Write(0), StatusActive)

	b := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).SetSigKey(entry.SigKey{Direct: "laptop"})
	e, err := b.Build()
	require.NoError(t, err)
	e = e.WithSignature(Sign(priv, []byte(e.ID().String())))

	r := NewResolver(nil)
	resolved, err := r.Validate(e, settings)
	require.NoError(t, err)
	assert.Equal(t, formatted, resolved.PublicKey)
	assert.True(t, resolved.EffectivePermission.CanWrite())
}

func TestResolve_RevokedKeyRejected(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	formatted := FormatPublicKey(pub)
	settings := settingsWithKey(t, "laptop", formatted, Write(0), StatusRevoked)

	b := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).SetSigKey(entry.SigKey{Direct: "laptop"})
	e, err := b.Build()
	require.NoError(t, err)
	e = e.WithSignature(Sign(priv, []byte(e.ID().String())))

	r := NewResolver(nil)
	_, err = r.Validate(e, settings)
	assert.ErrorIs(t, err, ErrKeyRevoked)
}

func TestResolve_WildcardRequiresPubkeyOverride(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	settings := settingsWithKey(t, Wildcard, Wildcard, Write(0), StatusActive)

	b := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).SetSigKey(entry.SigKey{Direct: Wildcard})
	e, err := b.Build()
	require.NoError(t, err)
	e = e.WithSignature(Sign(priv, []byte(e.ID().String())))

	r := NewResolver(nil)
	_, err = r.Validate(e, settings)
	assert.ErrorIs(t, err, ErrWildcardRequiresPubkey)

	b2 := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).SetSigKey(entry.SigKey{Direct: Wildcard}).SetPubKey(FormatPublicKey(pub))
	e2, err := b2.Build()
	require.NoError(t, err)
	e2 = e2.WithSignature(Sign(priv, []byte(e2.ID().String())))

	resolved, err := r.Validate(e2, settings)
	require.NoError(t, err)
	assert.Equal(t, FormatPublicKey(pub), resolved.PublicKey)
}

func TestResolve_BadSignatureRejected(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	formatted := FormatPublicKey(pub)
	settings := settingsWithKey(t, "laptop", formatted, Write(0), StatusActive)

	b := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).SetSigKey(entry.SigKey{Direct: "laptop"})
	e, err := b.Build()
	require.NoError(t, err)
	e = e.WithSignature([]byte("not a real signature"))

	r := NewResolver(nil)
	_, err = r.Validate(e, settings)
	assert.ErrorIs(t, err, ErrSignatureVerificationFailed)
}

// fakeLoader implements DelegatedTreeLoader over an in-memory map, for
// delegation resolution tests.
type fakeLoader struct {
	settings map[id.ID]*crdt.Doc
	tips     map[id.ID]id.Set
}

func (f *fakeLoader) SettingsAtTips(tree id.ID, tips id.Set) (*crdt.Doc, error) {
	return f.settings[tree], nil
}

func (f *fakeLoader) CurrentTips(tree id.ID) (id.Set, error) {
	return f.tips[tree], nil
}

func (f *fakeLoader) IsRelatedTips(tree id.ID, claimed, current id.Set) (bool, error) {
	return true, nil
}

func TestResolve_DelegationClampsPermission(t *testing.T) {
	delegatedTree := id.ID("delegated-tree-id")
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)
	delegatedSettings := settingsWithKey(t, "alice", FormatPublicKey(pub), Admin(0), StatusActive)

	mainSettings := crdt.NewDoc()
	writeOnly := Write(0)
	PutDelegation(mainSettings, delegatedTree, Bounds{Max: Write(0), Min: &writeOnly})

	loader := &fakeLoader{
		settings: map[id.ID]*crdt.Doc{delegatedTree: delegatedSettings},
		tips:     map[id.ID]id.Set{delegatedTree: id.NewSet("t1")},
	}
	r := NewResolver(loader)

	sigKey := entry.SigKey{Delegation: []entry.DelegationStep{
		{Tree: delegatedTree, Tips: id.NewSet("t1")},
		{Key: "alice"},
	}}
	b := entry.RootBuilder().SetStoreData(entry.RootStore, `{}`).SetSigKey(sigKey)
	e, err := b.Build()
	require.NoError(t, err)
	e = e.WithSignature(Sign(priv, []byte(e.ID().String())))

	resolved, err := r.Validate(e, mainSettings)
	require.NoError(t, err)
	// alice is an Admin in the delegated tree but the grant clamps to Write.
	assert.Equal(t, TierWrite, resolved.EffectivePermission.Tier)
	assert.True(t, resolved.EffectivePermission.CanWrite())
	assert.False(t, resolved.EffectivePermission.CanAdmin())
}

func TestResolve_DelegationCycleRejected(t *testing.T) {
	treeA := id.ID("tree-a")
	// tree-a delegates to itself, so the first step resolves and the walk
	// reaches the second visit of tree-a.
	selfDelegating := crdt.NewDoc()
	PutDelegation(selfDelegating, treeA, Bounds{Max: Write(0)})
	loader := &fakeLoader{
		settings: map[id.ID]*crdt.Doc{treeA: selfDelegating},
		tips:     map[id.ID]id.Set{},
	}
	r := NewResolver(loader)

	// A path that visits the same tree twice among its non-terminal steps.
	sigKey := entry.SigKey{Delegation: []entry.DelegationStep{
		{Tree: treeA, Tips: id.NewSet("t1")},
		{Tree: treeA, Tips: id.NewSet("t2")},
		{Key: "bob"},
	}}
	_, err := r.resolveDelegation(sigKey.Delegation, selfDelegating, "")
	assert.ErrorIs(t, err, ErrDelegationCycle)
}

func TestResolve_EmptyDelegationPathRejected(t *testing.T) {
	r := NewResolver(&fakeLoader{})
	_, err := r.resolveDelegation(nil, crdt.NewDoc(), "")
	assert.ErrorIs(t, err, ErrEmptyDelegationPath)
}
