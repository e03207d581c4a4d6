package auth

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermission_TierDominates(t *testing.T) {
	// An Admin with the lowest possible priority still outranks a Write
	// with the highest, and any Write outranks Read. This is the
	// resolution of spec.md §9's open question about the Rust source's
	// single-u64 packing of tier+priority: Permission.Compare never packs
	// the two into one integer, so there is no overflow path that could
	// make a Write rank above an Admin.
	assert.Equal(t, 1, Admin(math.MaxUint32).Compare(Write(0)))
	assert.Equal(t, 1, Write(0).Compare(Read()))
	assert.Equal(t, -1, Read().Compare(Write(math.MaxUint32)))
}

func TestPermission_PriorityWithinTier(t *testing.T) {
	// Lower priority number ranks higher within a tier.
	assert.Equal(t, 1, Write(1).Compare(Write(2)))
	assert.Equal(t, -1, Write(2).Compare(Write(1)))
	assert.Equal(t, 0, Write(5).Compare(Write(5)))
}

func TestPermission_CanWriteCanAdmin(t *testing.T) {
	assert.False(t, Read().CanWrite())
	assert.True(t, Write(0).CanWrite())
	assert.True(t, Admin(0).CanWrite())
	assert.False(t, Write(0).CanAdmin())
	assert.True(t, Admin(0).CanAdmin())
}

func TestPermission_ClampTo(t *testing.T) {
	assert.Equal(t, Write(0), Admin(0).ClampTo(Write(0)))
	assert.Equal(t, Read(), Read().ClampTo(Admin(0)))
}

func TestPermission_ClampWithBounds(t *testing.T) {
	min := Write(10)
	b := Bounds{Max: Write(0), Min: &min}

	assert.Equal(t, Write(0), Admin(0).Clamp(b), "above max clamps down")
	assert.Equal(t, Write(10), Read().Clamp(b), "below min clamps up")
	assert.Equal(t, Write(5), Write(5).Clamp(b), "within bounds is unchanged")
}

func TestNarrow_TightensAcrossSteps(t *testing.T) {
	outerMin := Write(20)
	outer := Bounds{Max: Admin(5), Min: &outerMin}
	innerMin := Write(10)
	inner := Bounds{Max: Write(0), Min: &innerMin}

	narrowed := Narrow(outer, inner)
	assert.Equal(t, Write(0), narrowed.Max, "tighter max wins")
	assert.Equal(t, Write(10), *narrowed.Min, "looser (higher-ranked) min wins")
}
