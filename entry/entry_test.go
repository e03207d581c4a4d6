package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/id"
)

func TestBuilder_DeterministicID(t *testing.T) {
	root := id.ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	p1 := id.ID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	p2 := id.ID("cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")

	e1, err := NewBuilder(root).AddParents(p1, p2).SetStoreData("notes", `{"a":1}`).Build()
	require.NoError(t, err)

	e2, err := NewBuilder(root).AddParents(p2, p1).SetStoreData("notes", `{"a":1}`).Build()
	require.NoError(t, err)

	assert.Equal(t, e1.ID(), e2.ID(), "parent order must not affect id")
	assert.True(t, e1.ID().Valid())
}

func TestBuilder_MissingRootFails(t *testing.T) {
	_, err := NewBuilder(id.Empty).SetStoreData("x", `{}`).Build()
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestBuilder_EmptyEntryFails(t *testing.T) {
	root := id.ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	_, err := NewBuilder(root).Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyEntry)
}

func TestRootBuilder_RequiresRootStore(t *testing.T) {
	_, err := RootBuilder().Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyEntry)

	e, err := RootBuilder().SetStoreData(RootStore, `{}`).Build()
	require.NoError(t, err)
	assert.True(t, e.IsRoot())
	assert.Empty(t, e.Parents())
	assert.True(t, e.InStore(RootStore))
}

func TestBuilder_DropsEmptyStores(t *testing.T) {
	root := id.ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	e, err := NewBuilder(root).
		AddParents(id.ID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")).
		AddStoreParents("ghost"). // no parents added, no data: stays empty
		SetStoreData("real", `{"x":1}`).
		Build()
	require.NoError(t, err)
	assert.False(t, e.InStore("ghost"))
	assert.True(t, e.InStore("real"))
}

func TestEntry_WireRoundTrip(t *testing.T) {
	root := id.ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	e, err := NewBuilder(root).
		SetStoreData("notes", `{"a":1}`).
		SetSigKey(SigKey{Direct: "alice"}).
		SetMetadata(`{"settings_tips":[]}`).
		Build()
	require.NoError(t, err)
	e = e.WithSignature([]byte{1, 2, 3, 4})

	data, err := e.MarshalJSON()
	require.NoError(t, err)

	got, err := UnmarshalEntry(data)
	require.NoError(t, err)
	assert.Equal(t, e.ID(), got.ID())
	assert.Equal(t, e.Sig().Signature, got.Sig().Signature)
	assert.Equal(t, e.Sig().Key, got.Sig().Key)
}

func TestEntry_HashStability_FieldOrderIndependent(t *testing.T) {
	root := id.ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	e, err := NewBuilder(root).
		AddStoreParents("s1", id.ID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")).
		SetStoreData("s1", `{"x":1}`).
		SetStoreData("s2", `{"y":2}`).
		Build()
	require.NoError(t, err)

	data, err := e.MarshalJSON()
	require.NoError(t, err)
	got, err := UnmarshalEntry(data)
	require.NoError(t, err)
	assert.Equal(t, e.ID(), got.ID())
}
