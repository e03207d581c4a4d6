package height

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/clock"
	"github.com/eidetica/eidetica/id"
)

// diamond: root -> b, root -> c, both -> d
func diamondParents(root, b, c, d id.ID) ParentsFunc {
	graph := map[id.ID]id.Set{
		root: nil,
		b:    {root},
		c:    {root},
		d:    {b, c},
	}
	return func(e id.ID) (id.Set, error) {
		return graph[e], nil
	}
}

func TestCalculateAll_Diamond(t *testing.T) {
	root, b, c, d := id.ID("root"), id.ID("b"), id.ID("c"), id.ID("d")
	calc := NewCalculator(Incremental, clock.NewTest(0))

	heights, err := CalculateAll(calc, id.NewSet(d), diamondParents(root, b, c, d))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), heights[root])
	assert.Equal(t, uint64(1), heights[b])
	assert.Equal(t, uint64(1), heights[c])
	assert.Equal(t, uint64(2), heights[d])
}

func TestSortByHeight_StableAndDeterministic(t *testing.T) {
	heights := map[id.ID]uint64{"a": 2, "b": 1, "c": 1, "d": 0}
	entries := id.Set{"a", "b", "c", "d"}

	sorted := SortByHeight(heights, entries)
	assert.Equal(t, []id.ID{"d", "b", "c", "a"}, sorted)

	// Re-sorting must yield the same order regardless of input order.
	reordered := id.Set{"c", "a", "d", "b"}
	sorted2 := SortByHeight(heights, reordered)
	assert.Equal(t, sorted, sorted2)
}
