// Package height implements entry height calculation (spec.md §3.5):
// a pure function of the DAG used only for sort-stable traversal, cacheable
// by (entry_id, tree_id, store|"").
package height

import (
	"github.com/eidetica/eidetica/clock"
)

// Strategy selects how heights are derived from parent heights.
type Strategy string

const (
	// Incremental sets height = max(parent heights) + 1; roots are 0.
	Incremental Strategy = "incremental"
	// Timestamp sets height = max(now_millis, max(parent heights) + 1),
	// so heights roughly track wall-clock creation order across
	// reasonably synchronized peers.
	Timestamp Strategy = "timestamp"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == Incremental || s == Timestamp
}

// Calculator computes entry heights under a bound Strategy and Clock. The
// strategy is the serializable, `_settings`-persisted configuration; the
// Calculator pairs it with the runtime clock needed by Timestamp.
type Calculator struct {
	strategy Strategy
	clock    clock.Clock
}

// NewCalculator returns a Calculator for strategy, falling back to
// Incremental if strategy is unrecognized. A nil clock defaults to
// clock.System{}.
func NewCalculator(strategy Strategy, c clock.Clock) *Calculator {
	if !strategy.Valid() {
		strategy = Incremental
	}
	if c == nil {
		c = clock.System{}
	}
	return &Calculator{strategy: strategy, clock: c}
}

// Calculate returns the height for an entry given the maximum height among
// its parents (ok is false for a root entry with no parents).
func (c *Calculator) Calculate(maxParentHeight uint64, ok bool) uint64 {
	switch c.strategy {
	case Timestamp:
		var minHeight uint64
		if ok {
			minHeight = maxParentHeight + 1
		}
		now := c.clock.NowMillis()
		// Clock skew: a parent's implied time is ahead of ours. Fall back
		// to the monotonic floor rather than let height go backwards.
		if minHeight > now {
			return minHeight
		}
		return now
	default: // Incremental
		if !ok {
			return 0
		}
		return maxParentHeight + 1
	}
}
