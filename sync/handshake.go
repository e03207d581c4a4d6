package sync

import (
	"context"
	"crypto/rand"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/internal/telemetry"
)

const challengeSize = 32

// handshake performs the client side of the sync handshake over transport
// to addr (spec.md §4.9.4): send our identity and a random challenge, verify
// the peer signed it, and record/refresh the Peer entry on success.
func (e *Engine) handshake(ctx context.Context, addr string) (peer *Peer, retErr error) {
	ctx, span := telemetry.Tracer().Start(ctx, "sync.handshake",
		trace.WithAttributes(attribute.String("sync.peer_addr", addr)))
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		}
		span.End()
	}()

	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("sync: generate challenge: %w", err)
	}

	req := &SyncRequest{Handshake: &HandshakeRequest{
		DeviceID:        e.host.DeviceID(),
		PublicKey:       e.host.DeviceID(),
		ProtocolVersion: ProtocolVersion,
		Challenge:       challenge,
		ListenAddresses: e.transports.Addresses(),
	}}

	resp, err := e.transports.Send(ctx, addr, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("sync: handshake: %s", resp.Error)
	}
	hs := resp.Handshake
	if hs == nil {
		return nil, ErrUnexpectedResponse
	}
	if hs.ProtocolVersion != ProtocolVersion {
		return nil, fmt.Errorf("%w: local=%d remote=%d", ErrProtocolVersionMismatch, ProtocolVersion, hs.ProtocolVersion)
	}

	peerPub, err := auth.ParsePublicKey(hs.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("sync: handshake: %w", err)
	}
	if !auth.Verify(peerPub, challenge, hs.ChallengeResponse) {
		return nil, ErrHandshakeFailed
	}

	peer = &Peer{
		PublicKey:   hs.PublicKey,
		DisplayName: hs.DisplayName,
		Addresses:   []Address{{TransportType: "", Address: addr}},
		Status:      PeerActive,
	}
	if err := e.upsertPeer(peer); err != nil {
		return nil, err
	}
	return peer, nil
}

// answerHandshake builds the server-side HandshakeResponse to req: sign
// req.Challenge with the device key and issue a fresh challenge of our own
// (spec.md §4.9.4). The initiator never answers that new challenge, so the
// exchange proves the responder's key to the initiator only; the
// initiator's claimed public key is recorded as a peer without proof.
func (e *Engine) answerHandshake(req *HandshakeRequest) (*SyncResponse, error) {
	if req.ProtocolVersion != ProtocolVersion {
		return errorResponse(fmt.Errorf("%w: local=%d remote=%d", ErrProtocolVersionMismatch, ProtocolVersion, req.ProtocolVersion)), nil
	}
	if _, err := auth.ParsePublicKey(req.PublicKey); err != nil {
		return errorResponse(err), nil
	}

	newChallenge := make([]byte, challengeSize)
	if _, err := rand.Read(newChallenge); err != nil {
		return nil, fmt.Errorf("sync: generate challenge: %w", err)
	}

	peer := &Peer{
		PublicKey:   req.PublicKey,
		DisplayName: req.DisplayName,
		Addresses:   req.ListenAddresses,
		Status:      PeerActive,
	}
	if err := e.upsertPeer(peer); err != nil {
		return nil, err
	}

	return &SyncResponse{Handshake: &HandshakeResponse{
		DeviceID:          e.host.DeviceID(),
		PublicKey:         e.host.DeviceID(),
		ProtocolVersion:   ProtocolVersion,
		ChallengeResponse: e.host.SignWithDeviceKey(req.Challenge),
		NewChallenge:      newChallenge,
	}}, nil
}
