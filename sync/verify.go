package sync

import (
	"encoding/json"
	"fmt"

	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
)

type entryMetadata struct {
	SettingsTips []string `json:"settings_tips"`
}

func settingsTipsOf(e *entry.Entry) (id.Set, error) {
	raw, ok := e.Metadata()
	if !ok {
		return nil, nil
	}
	var m entryMetadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("sync: decode entry metadata: %w", err)
	}
	tips := make(id.Set, len(m.SettingsTips))
	for i, s := range m.SettingsTips {
		tips[i] = id.ID(s)
	}
	return tips, nil
}

// verifyAndStore validates a foreign entry's signature against the settings
// snapshot its metadata pins, then persists it with the matching
// verification status (spec.md §4.9.6's "verify before merge"). Every
// direct parent must already be stored; callers gap-fill first.
func (e *Engine) verifyAndStore(root id.ID, fe *entry.Entry) error {
	for _, p := range fe.Parents() {
		if _, err := e.host.Backend().Get(p); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingParent, p)
		}
	}

	settingsTips, err := settingsTipsOf(fe)
	if err != nil {
		return err
	}

	if len(settingsTips) == 0 {
		if err := e.host.Backend().PutUnverified(fe); err != nil {
			return fmt.Errorf("sync: store entry: %w", err)
		}
		return nil
	}

	settingsRoot := root
	if fe.IsRoot() {
		settingsRoot = fe.ID()
	}
	settingsDoc, err := e.host.Materializer().Doc(settingsRoot, entry.SettingsStore, settingsTips)
	if err != nil {
		return fmt.Errorf("sync: load settings snapshot: %w", err)
	}

	var resolveErr error
	if fe.InStore(entry.SettingsStore) {
		_, resolveErr = e.host.Resolver().RequireAdmin(fe, settingsDoc)
	} else {
		_, resolveErr = e.host.Resolver().RequireWrite(fe, settingsDoc)
	}
	if resolveErr != nil {
		_ = e.host.Backend().PutUnverified(fe)
		return fmt.Errorf("sync: verify entry %s: %w", fe.ID(), resolveErr)
	}

	if err := e.host.Backend().PutVerified(fe); err != nil {
		return fmt.Errorf("sync: store entry: %w", err)
	}
	return nil
}
