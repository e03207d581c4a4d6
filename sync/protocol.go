package sync

import (
	"encoding/json"
	"fmt"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/entry"
)

// PermissionWire is auth.Permission's wire representation (spec.md §6.5).
type PermissionWire struct {
	Tier     string `json:"tier"`
	Priority uint32 `json:"priority"`
}

func fromPermission(p auth.Permission) *PermissionWire {
	return &PermissionWire{Tier: p.Tier.String(), Priority: p.Priority}
}

func (w *PermissionWire) toPermission() (auth.Permission, error) {
	if w == nil {
		return auth.Permission{}, nil
	}
	switch w.Tier {
	case "read":
		return auth.Read(), nil
	case "write":
		return auth.Write(w.Priority), nil
	case "admin":
		return auth.Admin(w.Priority), nil
	default:
		return auth.Permission{}, fmt.Errorf("sync: unknown permission tier %q", w.Tier)
	}
}

// HandshakeRequest is SyncRequest's Handshake variant (spec.md §4.9.3).
type HandshakeRequest struct {
	DeviceID        string    `json:"device_id"`
	PublicKey       string    `json:"public_key"`
	DisplayName     string    `json:"display_name,omitempty"`
	ProtocolVersion int       `json:"protocol_version"`
	Challenge       []byte    `json:"challenge"`
	ListenAddresses []Address `json:"listen_addresses,omitempty"`
}

// SyncTreeRequest is SyncRequest's SyncTree variant.
type SyncTreeRequest struct {
	TreeID              string          `json:"tree_id"`
	OurTips             []string        `json:"our_tips"`
	PeerPubkey          string          `json:"peer_pubkey,omitempty"`
	RequestingKey       string          `json:"requesting_key,omitempty"`
	RequestingKeyName   string          `json:"requesting_key_name,omitempty"`
	RequestedPermission *PermissionWire `json:"requested_permission,omitempty"`
}

// SendEntriesRequest is SyncRequest's SendEntries variant: a back-compat
// direct push of already-built entries.
type SendEntriesRequest struct {
	Entries []json.RawMessage `json:"entries"`
}

// SyncRequest is the externally tagged sum type of spec.md §4.9.3: exactly
// one field is populated per message.
type SyncRequest struct {
	Handshake   *HandshakeRequest   `json:"Handshake,omitempty"`
	SyncTree    *SyncTreeRequest    `json:"SyncTree,omitempty"`
	SendEntries *SendEntriesRequest `json:"SendEntries,omitempty"`
}

// HandshakeResponse is SyncResponse's Handshake variant.
type HandshakeResponse struct {
	DeviceID          string `json:"device_id"`
	PublicKey         string `json:"public_key"`
	DisplayName       string `json:"display_name,omitempty"`
	ProtocolVersion   int    `json:"protocol_version"`
	ChallengeResponse []byte `json:"challenge_response"`
	NewChallenge      []byte `json:"new_challenge"`
}

// BootstrapResponse is SyncResponse's Bootstrap variant.
type BootstrapResponse struct {
	TreeID             string            `json:"tree_id"`
	RootEntry          json.RawMessage   `json:"root_entry"`
	AllEntries         []json.RawMessage `json:"all_entries"`
	KeyApproved        bool              `json:"key_approved"`
	GrantedPermission  *PermissionWire   `json:"granted_permission,omitempty"`
}

// IncrementalResponse is SyncResponse's Incremental variant.
type IncrementalResponse struct {
	TreeID         string            `json:"tree_id"`
	TheirTips      []string          `json:"their_tips"`
	MissingEntries []json.RawMessage `json:"missing_entries"`
}

// BootstrapPendingResponse is SyncResponse's BootstrapPending variant: the
// server has deferred an approval decision to an out-of-band process.
type BootstrapPendingResponse struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message,omitempty"`
}

// SyncResponse is the externally tagged sum type of spec.md §4.9.3.
type SyncResponse struct {
	Handshake        *HandshakeResponse        `json:"Handshake,omitempty"`
	Bootstrap        *BootstrapResponse        `json:"Bootstrap,omitempty"`
	Incremental      *IncrementalResponse      `json:"Incremental,omitempty"`
	BootstrapPending *BootstrapPendingResponse `json:"BootstrapPending,omitempty"`
	Ack              bool                      `json:"Ack,omitempty"`
	Count            *int                      `json:"Count,omitempty"`
	Error            string                    `json:"Error,omitempty"`
}

// errorResponse builds an Error variant response from err.
func errorResponse(err error) *SyncResponse {
	return &SyncResponse{Error: err.Error()}
}

// encodeEntries marshals entries into their wire JSON form. entry.Entry
// implements json.Marshaler directly, so this is a thin helper for building
// the []json.RawMessage slices the protocol types carry.
func encodeEntries(entries []*entry.Entry) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("sync: encode entry: %w", err)
		}
		out[i] = data
	}
	return out, nil
}

// decodeEntries parses wire JSON entries. entry.Entry has no UnmarshalJSON
// (its id is derived, never trusted from the wire), so each message is
// routed through entry.UnmarshalEntry individually.
func decodeEntries(raw []json.RawMessage) ([]*entry.Entry, error) {
	out := make([]*entry.Entry, len(raw))
	for i, r := range raw {
		e, err := entry.UnmarshalEntry(r)
		if err != nil {
			return nil, fmt.Errorf("sync: decode entry %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}
