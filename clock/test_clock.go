package clock

import (
	"sync"
	"time"
)

// Test is a Clock double with auto-advancing time: each unheld NowMillis
// call returns the current value and then advances by one millisecond, so
// sequential calls are always strictly increasing. Hold freezes the clock
// for tests needing stable timestamps.
type Test struct {
	mu     sync.Mutex
	millis uint64
	held   bool
}

// NewTest returns a Test clock starting at startMillis.
func NewTest(startMillis uint64) *Test {
	return &Test{millis: startMillis}
}

// Hold freezes t until the returned release func is called. Intended use:
//
//	release := t.Hold()
//	defer release()
func (t *Test) Hold() (release func()) {
	t.mu.Lock()
	t.held = true
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.held = false
		t.mu.Unlock()
	}
}

// Advance moves the clock forward by ms milliseconds, regardless of hold
// state.
func (t *Test) Advance(ms uint64) {
	t.mu.Lock()
	t.millis += ms
	t.mu.Unlock()
}

// Set pins the clock to an exact value, regardless of hold state.
func (t *Test) Set(ms uint64) {
	t.mu.Lock()
	t.millis = ms
	t.mu.Unlock()
}

// Get returns the current value without advancing, even when not held.
func (t *Test) Get() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.millis
}

// NowMillis returns the current value. If the clock is not held, it then
// advances by one millisecond.
func (t *Test) NowMillis() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.millis
	if !t.held {
		t.millis++
	}
	return v
}

// NowRFC3339 formats NowMillis as RFC 3339.
func (t *Test) NowRFC3339() string {
	ms := t.NowMillis()
	sec := int64(ms / 1000)
	nsec := int64(ms%1000) * int64(time.Millisecond)
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
}
