// Package httptransport is a thin sync.Transport binding that carries
// sync.SyncRequest/sync.SyncResponse as JSON over plain HTTP POST, the way
// beads' internal/rpc layer speaks JSON over a single well-known handler
// path rather than a bespoke binary framing.
package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	esync "github.com/eidetica/eidetica/sync"
)

const defaultPath = "/eidetica/sync"

// Transport implements sync.Transport over HTTP: StartServer runs an
// http.Server whose only route POSTs a SyncRequest body and reads back a
// SyncResponse; SendRequest is a plain http.Client.Do.
type Transport struct {
	mu      sync.Mutex
	client  *http.Client
	server  *http.Server
	addr    string
	running bool
}

// New constructs an HTTP transport. A nil client gets a 30 second timeout
// default.
func New(client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Transport{client: client}
}

// Name identifies this transport in sync.TransportManager's registry.
func (t *Transport) Name() string { return "http" }

// CanHandleAddress accepts any http:// or https:// URL.
func (t *Transport) CanHandleAddress(addr string) bool {
	return strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://")
}

// StartServer binds an HTTP listener at addr and dispatches every POST to
// defaultPath through handler.
func (t *Transport) StartServer(ctx context.Context, addr string, handler esync.Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return fmt.Errorf("httptransport: server already running")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(defaultPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req esync.SyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := handler(r.Context(), &req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	ln, err := newListener(addr)
	if err != nil {
		return fmt.Errorf("httptransport: listen %s: %w", addr, err)
	}
	t.server = &http.Server{Handler: mux}
	t.addr = ln.Addr().String()
	t.running = true
	go t.server.Serve(ln)
	return nil
}

// StopServer shuts the HTTP server down gracefully.
func (t *Transport) StopServer(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return nil
	}
	t.running = false
	return t.server.Shutdown(ctx)
}

// IsServerRunning reports whether StartServer has succeeded without a
// matching StopServer.
func (t *Transport) IsServerRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// GetServerAddress returns the bound address, including any OS-assigned
// ephemeral port.
func (t *Transport) GetServerAddress() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return "http://" + t.addr
}

// SendRequest POSTs req as JSON to addr+defaultPath and decodes the
// response body as a SyncResponse.
func (t *Transport) SendRequest(ctx context.Context, addr string, req *esync.SyncRequest) (*esync.SyncResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("httptransport: marshal request: %w", err)
	}
	url := strings.TrimRight(addr, "/") + defaultPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httptransport: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httptransport: send to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httptransport: %s returned status %d", url, resp.StatusCode)
	}
	var out esync.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("httptransport: decode response: %w", err)
	}
	return &out, nil
}
