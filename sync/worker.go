package sync

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/eidetica/eidetica/internal/telemetry"
)

// connState tracks per-peer delivery backoff, so a single unreachable peer
// backs off independently instead of stalling flushes to every other peer
// (supplemented feature: spec.md's sync loop describes delivery but not
// retry pacing under a flaky peer).
type connState struct {
	mu      sync.Mutex
	backoff *backoff.ExponentialBackOff
	nextTry time.Time
}

func newConnState() *connState {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0 // never give up; the worker just retries on the next tick
	return &connState{backoff: b}
}

func (c *connState) ready(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.After(c.nextTry) || now.Equal(c.nextTry)
}

func (c *connState) recordFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextTry = now.Add(c.backoff.NextBackOff())
}

func (c *connState) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backoff.Reset()
	c.nextTry = time.Time{}
}

// worker periodically flushes the queue to every peer with pending entries,
// respecting each peer's backoff state, and can be woken early via kick
// (spec.md §4.9.7's commit-triggered sync).
type worker struct {
	engine   *Engine
	interval time.Duration

	kick chan struct{}
	stop chan struct{}
	done chan struct{}

	connMu sync.Mutex
	conns  map[string]*connState
}

func newWorker(e *Engine, interval time.Duration) *worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &worker{
		engine:   e,
		interval: interval,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		conns:    make(map[string]*connState),
	}
}

func (w *worker) connFor(peerKey string) *connState {
	w.connMu.Lock()
	defer w.connMu.Unlock()
	c, ok := w.conns[peerKey]
	if !ok {
		c = newConnState()
		w.conns[peerKey] = c
	}
	return c
}

// start runs the flush loop until stop is called. Safe to call once.
func (w *worker) start() {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.flushAll()
			case <-w.kick:
				w.flushAll()
			}
		}
	}()
}

// wake requests an out-of-cycle flush, coalescing with any already pending.
func (w *worker) wake() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *worker) stopAndWait() {
	close(w.stop)
	<-w.done
}

// flushAll delivers every peer's queued entries concurrently, skipping
// peers still in backoff.
func (w *worker) flushAll() {
	peers := w.engine.queue.peers()
	if len(peers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	ctx, span := telemetry.Tracer().Start(ctx, "sync.flush")
	span.SetAttributes(attribute.Int("sync.peer_count", len(peers)))
	defer span.End()

	queueDepth, _ := telemetry.Meter().Int64Gauge("sync.queue_depth")
	queueDepth.Record(ctx, int64(len(peers)))

	g, gctx := errgroup.WithContext(ctx)
	now := time.Now()
	for _, peerKey := range peers {
		peerKey := peerKey
		conn := w.connFor(peerKey)
		if !conn.ready(now) {
			continue
		}
		g.Go(func() error {
			if err := w.engine.deliverTo(gctx, peerKey); err != nil {
				conn.recordFailure(time.Now())
				return nil // one peer's failure must not cancel the others
			}
			conn.recordSuccess()
			return nil
		})
	}
	_ = g.Wait()
}
