package memory

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/eidetica/eidetica/backend"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

// CurrentSaveVersion is the "_v" value this build writes. Version 0 saves
// omit private_keys_bytes/tips (pre-key-storage format); version 1 is the
// current format. Loading rejects any other value (spec.md §6.2).
const CurrentSaveVersion = 1

type saveFile struct {
	Version          int                        `json:"_v"`
	Entries          map[string]json.RawMessage `json:"entries"`
	VerificationStat map[string]string          `json:"verification_status"`
	PrivateKeysBytes map[string]string          `json:"private_keys_bytes"`
	Tips             map[string][]string        `json:"tips"`
}

// Save writes b's full state as a versioned canonical-JSON save file to
// path (spec.md §6.2). Tips are recomputed and written as a redundant
// cache; they are never trusted on load, only tips derived from the entry
// set are (spec.md §4.4's "tips are recomputed from the stored entry set").
func (b *Backend) Save(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sf := saveFile{
		Version:          CurrentSaveVersion,
		Entries:          make(map[string]json.RawMessage, len(b.entries)),
		VerificationStat: make(map[string]string, len(b.verification)),
		PrivateKeysBytes: make(map[string]string, len(b.privateKeys)),
		Tips:             make(map[string][]string),
	}
	for eid, e := range b.entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("backend/memory: save: marshal entry %s: %w", eid, err)
		}
		sf.Entries[string(eid)] = raw
	}
	for eid, st := range b.verification {
		sf.VerificationStat[string(eid)] = string(st)
	}
	for name, key := range b.privateKeys {
		sf.PrivateKeysBytes[name] = base64.StdEncoding.EncodeToString(key)
	}

	roots := make(map[id.ID]struct{})
	for eid, e := range b.entries {
		if e.IsRoot() {
			roots[eid] = struct{}{}
		} else {
			roots[e.Root()] = struct{}{}
		}
	}
	for root := range roots {
		tree := b.treeEntries(root)
		tips := computeTips(tree, treeParents(tree))
		sf.Tips[string(root)] = tips.Strings()
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("backend/memory: save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("backend/memory: save: write %s: %w", path, err)
	}
	return nil
}

// Load reads a save file produced by Save into a fresh Backend. Unknown "_v"
// values are rejected (spec.md §6.2).
func Load(path string) (*Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backend/memory: load: read %s: %w", path, err)
	}
	var sf saveFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("backend/memory: load: %w", err)
	}
	if sf.Version != 0 && sf.Version != CurrentSaveVersion {
		return nil, fmt.Errorf("%w: got %d, want 0 or %d", backend.ErrUnknownSchemaVersion, sf.Version, CurrentSaveVersion)
	}

	b := New()
	for eidStr, raw := range sf.Entries {
		e, err := entry.UnmarshalEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("backend/memory: load: entry %s: %w", eidStr, err)
		}
		if string(e.ID()) != eidStr {
			return nil, fmt.Errorf("backend/memory: load: entry %s has recomputed id %s", eidStr, e.ID())
		}
		b.entries[e.ID()] = e
	}
	for eidStr, st := range sf.VerificationStat {
		b.verification[id.ID(eidStr)] = backend.VerificationStatus(st)
	}
	for name, enc := range sf.PrivateKeysBytes {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, fmt.Errorf("backend/memory: load: private key %q: %w", name, err)
		}
		b.privateKeys[name] = ed25519.PrivateKey(raw)
	}
	// sf.Tips is intentionally not used to seed state: it is a redundant
	// cache on write, and tips are always recomputed from stored entries.
	return b, nil
}
