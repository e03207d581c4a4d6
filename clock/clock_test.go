package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_AutoAdvances(t *testing.T) {
	c := NewTest(1000)
	t1 := c.NowMillis()
	t2 := c.NowMillis()
	t3 := c.NowMillis()
	assert.Equal(t, uint64(1000), t1)
	assert.Greater(t, t2, t1)
	assert.Greater(t, t3, t2)
}

func TestTest_GetDoesNotAdvance(t *testing.T) {
	c := NewTest(1000)
	require.Equal(t, uint64(1000), c.Get())
	require.Equal(t, uint64(1000), c.Get())
	after := c.NowMillis()
	assert.Greater(t, c.Get(), uint64(1000))
	assert.Equal(t, uint64(1000), after)
}

func TestTest_HoldFreezes(t *testing.T) {
	c := NewTest(1000)
	release := c.Hold()
	v1 := c.NowMillis()
	v2 := c.NowMillis()
	release()
	assert.Equal(t, v1, v2)

	t1 := c.NowMillis()
	t2 := c.NowMillis()
	assert.Equal(t, v1, t1)
	assert.Greater(t, t2, t1)
}

func TestTest_AdvanceAndSet(t *testing.T) {
	c := NewTest(1000)
	c.Advance(500)
	assert.Equal(t, uint64(1500), c.Get())
	c.Set(5000)
	assert.Equal(t, uint64(5000), c.Get())
}

func TestTest_RFC3339(t *testing.T) {
	c := NewTest(1704067200000) // 2024-01-01T00:00:00Z
	release := c.Hold()
	defer release()
	assert.Contains(t, c.NowRFC3339(), "2024-01-01T00:00:00")
}
