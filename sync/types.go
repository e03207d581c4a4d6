// Package sync implements Eidetica's peer-to-peer sync engine: transport
// abstraction, handshake, bootstrap/incremental tree sync, DAG gap-fill, a
// commit-triggered hook collection, and a background flush worker (spec.md
// §4.9). The engine dogfoods the core: its own peer/tracking/preferences
// bookkeeping lives in a regular Eidetica database, the same way beads'
// daemon keeps its own state as ordinary beads issues.
package sync

// ProtocolVersion is the single integer sync protocol version (spec.md
// §4.9.3); requests carrying a different value are rejected.
const ProtocolVersion = 1

// Bookkeeping store names within the engine's own Database.
const (
	storePeers = "peers"
	storeTrack = "tracked"
	storePrefs = "preferences"
)

// PeerStatus records whether a peer has been reachable recently.
type PeerStatus string

const (
	PeerActive      PeerStatus = "active"
	PeerUnavailable PeerStatus = "unavailable"
)

// Address is a tagged (transport name, transport-specific address) pair
// (spec.md §4.9.1).
type Address struct {
	TransportType string `json:"transport_type"`
	Address       string `json:"address"`
}

// Peer is a remote Eidetica instance identified by its device Ed25519
// public key (spec.md §4.9.1).
type Peer struct {
	PublicKey   string    `json:"public_key"`
	DisplayName string    `json:"display_name,omitempty"`
	Addresses   []Address `json:"addresses,omitempty"`
	Status      PeerStatus `json:"status"`
}

// trackedDatabase records that the local instance should sync a database
// with a peer (spec.md §4.9.1). Stored keyed by databaseID+"|"+peer.
type trackedDatabase struct {
	DatabaseID string `json:"database_id"`
	PeerKey    string `json:"peer_key"`
}

func trackKey(databaseID, peerKey string) string {
	return databaseID + "|" + peerKey
}

// preference is a per-(user, database) sync setting, merged across users
// tracking the same database via a most-aggressive policy (spec.md §4.9.9).
type preference struct {
	UserID          string            `json:"user_id"`
	DatabaseID      string            `json:"database_id"`
	SyncEnabled     bool              `json:"sync_enabled"`
	SyncOnCommit    bool              `json:"sync_on_commit"`
	IntervalSeconds int               `json:"interval_seconds"`
	Properties      map[string]string `json:"properties,omitempty"`
}

func prefKey(userID, databaseID string) string {
	return userID + "|" + databaseID
}

// EffectivePreference is the recomputed, merged sync setting for a database
// across every user tracking it (spec.md §4.9.9).
type EffectivePreference struct {
	DatabaseID      string
	SyncEnabled     bool
	SyncOnCommit    bool
	IntervalSeconds int
	Properties      map[string]string
}
