package sync

import (
	"crypto/ed25519"

	"github.com/eidetica/eidetica/database"
)

// Host is the view of an Instance the sync engine needs: everything
// database.Host already provides, plus the device identity used to sign
// handshakes and the engine's own bookkeeping commits. instance.Instance
// satisfies this structurally, so sync never imports instance (mirroring
// how database.Host avoids database importing instance).
type Host interface {
	database.Host

	DeviceID() string
	DevicePublicKey() ed25519.PublicKey
	SignWithDeviceKey(data []byte) []byte
	DeviceSigningKeyName() string
}
