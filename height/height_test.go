package height

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eidetica/eidetica/clock"
)

func TestIncremental_Root(t *testing.T) {
	c := NewCalculator(Incremental, clock.NewTest(1704067200000))
	assert.Equal(t, uint64(0), c.Calculate(0, false))
}

func TestIncremental_WithParent(t *testing.T) {
	c := NewCalculator(Incremental, clock.NewTest(1704067200000))
	assert.Equal(t, uint64(1), c.Calculate(0, true))
	assert.Equal(t, uint64(6), c.Calculate(5, true))
	assert.Equal(t, uint64(101), c.Calculate(100, true))
}

func TestTimestamp_Root(t *testing.T) {
	tc := clock.NewTest(1704067200000)
	release := tc.Hold()
	defer release()
	c := NewCalculator(Timestamp, tc)
	assert.Equal(t, uint64(1704067200000), c.Calculate(0, false))
}

func TestTimestamp_LowParentUsesClock(t *testing.T) {
	tc := clock.NewTest(1704067200000)
	release := tc.Hold()
	defer release()
	c := NewCalculator(Timestamp, tc)
	assert.Equal(t, uint64(1704067200000), c.Calculate(100, true))
}

func TestTimestamp_SkewedParentWins(t *testing.T) {
	tc := clock.NewTest(1704067200000)
	release := tc.Hold()
	defer release()
	c := NewCalculator(Timestamp, tc)
	future := uint64(1704067200000 + 1_000_000)
	assert.Greater(t, c.Calculate(future, true), future)
}

func TestUnknownStrategyFallsBackToIncremental(t *testing.T) {
	c := NewCalculator(Strategy("bogus"), clock.NewTest(0))
	assert.Equal(t, uint64(0), c.Calculate(0, false))
	assert.Equal(t, uint64(1), c.Calculate(0, true))
}
