package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoc_SetGetDelete(t *testing.T) {
	d := NewDoc()
	d.Set("a", Text("v"))
	v, ok := d.GetVisible("a")
	require.True(t, ok)
	s, _ := v.AsText()
	assert.Equal(t, "v", s)

	d.Delete("a")
	_, ok = d.GetVisible("a")
	assert.False(t, ok, "deleted key must not be publicly visible")
	assert.False(t, d.ContainsKey("a"))

	raw, ok := d.Get("a")
	require.True(t, ok)
	assert.True(t, raw.IsDeleted(), "tombstone must still be present internally")
}

func TestDoc_Merge_DiamondDeterministic(t *testing.T) {
	base := NewDoc()

	b := base.Clone()
	b.Set("x", Int(1))
	b.Set("y", Text("L"))

	c := base.Clone()
	c.Set("x", Int(2))
	c.Set("z", Text("R"))

	d1 := b.Merge(c)
	d2 := b.Merge(c)

	xv, _ := d1.GetVisible("x")
	x, _ := xv.AsInt()
	assert.Equal(t, int64(2), x, "other (c) wins the scalar conflict")
	yv, _ := d1.GetVisible("y")
	y, _ := yv.AsText()
	assert.Equal(t, "L", y)
	zv, _ := d1.GetVisible("z")
	z, _ := zv.AsText()
	assert.Equal(t, "R", z)

	xv2, _ := d2.GetVisible("x")
	x2, _ := xv2.AsInt()
	assert.Equal(t, x, x2, "merge must be deterministic across runs")
}

func TestDoc_Merge_TombstoneDominance(t *testing.T) {
	a := NewDoc()
	a.Set("k", Text("v"))
	a.Delete("k")

	peer := NewDoc()
	peer.Set("k", Text("v")) // peer never saw the delete

	merged := a.Merge(peer)
	assert.False(t, merged.ContainsKey("k"), "tombstone must win over a peer's stale value")
}

func TestDoc_Apply_ResurrectsAfterTombstone(t *testing.T) {
	state := NewDoc()
	state.Set("k", Text("v"))

	deleteDelta := NewDoc()
	deleteDelta.Delete("k")
	state = state.Apply(deleteDelta)
	assert.False(t, state.ContainsKey("k"))

	resurrectDelta := NewDoc()
	resurrectDelta.Set("k", Text("v2"))
	state = state.Apply(resurrectDelta)

	v, ok := state.GetVisible("k")
	require.True(t, ok, "a later explicit write must resurrect the key")
	s, _ := v.AsText()
	assert.Equal(t, "v2", s)
}

func TestDoc_Merge_Associative(t *testing.T) {
	a := NewDoc()
	a.Set("k1", Int(1))
	b := NewDoc()
	b.Set("k2", Int(2))
	c := NewDoc()
	c.Set("k3", Int(3))

	left := a.Merge(b).Merge(c)
	right := a.Merge(b.Merge(c))

	for _, k := range []string{"k1", "k2", "k3"} {
		lv, _ := left.GetVisible(k)
		rv, _ := right.GetVisible(k)
		li, _ := lv.AsInt()
		ri, _ := rv.AsInt()
		assert.Equal(t, li, ri)
	}
}

func TestDoc_NestedPathOps(t *testing.T) {
	d := NewDoc()
	require.NoError(t, d.SetPath([]string{"a", "b", "c"}, Int(42)))
	v, ok := d.GetPath([]string{"a", "b", "c"})
	require.True(t, ok)
	n, _ := v.AsInt()
	assert.Equal(t, int64(42), n)

	require.NoError(t, d.DeletePath([]string{"a", "b", "c"}))
	_, ok = d.GetPath([]string{"a", "b", "c"})
	assert.False(t, ok)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	d := NewDoc()
	d.Set("s", Text("hi"))
	d.Set("n", Int(7))
	d.Set("b", Bool(true))
	nested := NewDoc()
	nested.Set("inner", Bytes([]byte{1, 2, 3}))
	d.Set("nested", FromDoc(nested))
	l := NewList()
	l.InsertAfter("", Text("first"))
	d.Set("list", FromList(l))

	encoded, err := EncodeDoc(d)
	require.NoError(t, err)

	decoded, err := DecodeDoc(encoded)
	require.NoError(t, err)

	reencoded, err := EncodeDoc(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded, "canonical encoding must round-trip exactly")
}

func TestValueEditor_AutoVivifiesAndRejectsNonDocRoot(t *testing.T) {
	d := NewDoc()
	ed := NewValueEditor(d)
	require.NoError(t, ed.GetValueMut("a").GetValueMut("b").Set(Text("leaf")))

	v, ok := d.GetPath([]string{"a", "b"})
	require.True(t, ok)
	s, _ := v.AsText()
	assert.Equal(t, "leaf", s)

	err := ed.Set(Text("not a doc"))
	assert.ErrorIs(t, err, ErrRootNotDoc)
}
