package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList_InsertOrdering(t *testing.T) {
	l := NewList()
	first := l.InsertAfter("", Text("a"))
	second := l.InsertAfter(first.ID, Text("c"))
	l.InsertBefore(second.ID, Text("b")) // insert between a and c

	vis := l.Visible()
	require.Len(t, vis, 3)
	texts := make([]string, 3)
	for i, e := range vis {
		texts[i], _ = e.Value.AsText()
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts)
}

func TestList_RemoveTombstones(t *testing.T) {
	l := NewList()
	e := l.InsertAfter("", Text("only"))
	l.Remove(e.ID)
	assert.Empty(t, l.Visible())
	got, ok := l.Get(e.ID)
	require.True(t, ok)
	assert.True(t, got.Value.IsDeleted())
}

func TestList_MergeUnionsByUUID(t *testing.T) {
	base := NewList()
	a := base.Clone()
	ea := a.InsertAfter("", Text("from-a"))
	b := base.Clone()
	eb := b.InsertAfter("", Text("from-b"))

	merged := a.Merge(b)
	assert.Equal(t, 2, merged.Len())
	_, ok := merged.Get(ea.ID)
	assert.True(t, ok)
	_, ok = merged.Get(eb.ID)
	assert.True(t, ok)
}

func TestPosition_BetweenOrdering(t *testing.T) {
	l := StartBoundary
	r := EndBoundary
	p := Between(&l, &r)
	assert.Equal(t, -1, l.Compare(p))
	assert.Equal(t, -1, p.Compare(r))

	// Repeating Between never produces an already-used position: each call
	// narrows the interval further.
	p2 := Between(&l, &p)
	assert.Equal(t, -1, l.Compare(p2))
	assert.Equal(t, -1, p2.Compare(p))
	assert.NotEqual(t, 0, p.Compare(p2))
}

func TestPosition_CollisionIncreasesPrecision(t *testing.T) {
	l := NewList()
	// Force repeated inserts at the same logical "after start" position,
	// simulating two independently-generated elements racing to the same
	// mediant; the implementation must not silently collide positions.
	e1 := l.InsertAfter("", Text("1"))
	e2 := l.insertAt(e1.Position, Text("2"))
	assert.NotEqual(t, 0, e1.Position.Compare(e2.Position))
}
