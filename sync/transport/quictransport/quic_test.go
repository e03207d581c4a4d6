package quictransport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	esync "github.com/eidetica/eidetica/sync"
)

func TestTransport_RoundTrip(t *testing.T) {
	srv, err := New(nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, req *esync.SyncRequest) (*esync.SyncResponse, error) {
		return &esync.SyncResponse{Ack: true}, nil
	}
	require.NoError(t, srv.StartServer(ctx, "quic://127.0.0.1:0", handler))
	defer srv.StopServer(context.Background())

	assert.True(t, srv.IsServerRunning())
	assert.True(t, srv.CanHandleAddress(srv.GetServerAddress()))

	client, err := New(nil)
	require.NoError(t, err)
	resp, err := client.SendRequest(ctx, srv.GetServerAddress(), &esync.SyncRequest{
		Handshake: &esync.HandshakeRequest{DeviceID: "d1", ProtocolVersion: 1},
	})
	require.NoError(t, err)
	assert.True(t, resp.Ack)

	require.NoError(t, srv.StopServer(context.Background()))
	assert.False(t, srv.IsServerRunning())
}
