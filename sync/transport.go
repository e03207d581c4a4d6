package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Handler processes one inbound SyncRequest on the server side and produces
// the SyncResponse to send back.
type Handler func(ctx context.Context, req *SyncRequest) (*SyncResponse, error)

// Transport carries sync wire messages between instances over a concrete
// medium (HTTP, QUIC, ...). Implementations register themselves on a
// TransportManager under a unique name (spec.md §4.9.2).
type Transport interface {
	// Name identifies this transport ("http", "quic", ...).
	Name() string
	// CanHandleAddress reports whether this transport recognizes addr's
	// format (e.g. a URL scheme or host:port shape).
	CanHandleAddress(addr string) bool
	// StartServer begins listening on addr, dispatching inbound requests to
	// handler. Non-blocking: returns once the listener is up.
	StartServer(ctx context.Context, addr string, handler Handler) error
	// StopServer shuts the listener down, if running.
	StopServer(ctx context.Context) error
	// IsServerRunning reports whether StartServer succeeded and StopServer
	// has not since been called.
	IsServerRunning() bool
	// GetServerAddress returns the address actually bound (useful when addr
	// passed to StartServer requested an ephemeral port).
	GetServerAddress() string
	// SendRequest delivers req to addr and returns the peer's response.
	SendRequest(ctx context.Context, addr string, req *SyncRequest) (*SyncResponse, error)
}

// TransportManager is a registry of named Transports, routing outbound
// requests to whichever registered transport claims an address and
// retrying transient failures with exponential backoff (supplemented
// feature: the teacher's RPC layer assumes a single always-on connection,
// but sync peers come and go, so every outbound call gets a bounded retry).
type TransportManager struct {
	mu         sync.RWMutex
	transports map[string]Transport
	maxRetry   time.Duration
}

// NewTransportManager constructs an empty registry. maxRetry bounds the
// total time SendRequest spends retrying before giving up; zero selects a
// 30 second default.
func NewTransportManager(maxRetry time.Duration) *TransportManager {
	if maxRetry <= 0 {
		maxRetry = 30 * time.Second
	}
	return &TransportManager{transports: make(map[string]Transport), maxRetry: maxRetry}
}

// Register adds t to the registry under t.Name(), replacing any prior
// registration of the same name.
func (m *TransportManager) Register(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transports[t.Name()] = t
}

// Transport returns the registered transport named name.
func (m *TransportManager) Transport(name string) (Transport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transports[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, name)
	}
	return t, nil
}

// resolve finds the transport willing to handle addr.
func (m *TransportManager) resolve(addr string) (Transport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.transports {
		if t.CanHandleAddress(addr) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTransportForAddress, addr)
}

// Send routes req to addr through whichever registered transport claims it,
// retrying with exponential backoff on transport-level errors (not on
// application-level Error responses, which are returned as-is).
func (m *TransportManager) Send(ctx context.Context, addr string, req *SyncRequest) (*SyncResponse, error) {
	t, err := m.resolve(addr)
	if err != nil {
		return nil, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = m.maxRetry
	bctx := backoff.WithContext(bo, ctx)

	var resp *SyncResponse
	op := func() error {
		var sendErr error
		resp, sendErr = t.SendRequest(ctx, addr, req)
		return sendErr
	}
	if err := backoff.Retry(op, bctx); err != nil {
		return nil, fmt.Errorf("sync: send to %s via %s: %w", addr, t.Name(), err)
	}
	return resp, nil
}

// StartAll starts a server for every registered transport whose name
// appears as a key in listenAddrs, binding it to the corresponding value.
func (m *TransportManager) StartAll(ctx context.Context, listenAddrs map[string]string, handler Handler) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, addr := range listenAddrs {
		t, ok := m.transports[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTransport, name)
		}
		if err := t.StartServer(ctx, addr, handler); err != nil {
			return fmt.Errorf("sync: start %s server: %w", name, err)
		}
	}
	return nil
}

// StopAll shuts down every running server across all registered transports.
func (m *TransportManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []string
	for name, t := range m.transports {
		if !t.IsServerRunning() {
			continue
		}
		if err := t.StopServer(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sync: stop servers: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Addresses returns the bound listen address of every running transport,
// keyed by transport name, suitable for advertising in a HandshakeRequest.
func (m *TransportManager) Addresses() []Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Address
	for name, t := range m.transports {
		if t.IsServerRunning() {
			out = append(out, Address{TransportType: name, Address: t.GetServerAddress()})
		}
	}
	return out
}
