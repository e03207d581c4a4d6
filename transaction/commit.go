package transaction

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/eidetica/eidetica/auth"
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/entry"
	"github.com/eidetica/eidetica/id"
	"github.com/eidetica/eidetica/internal/telemetry"
)

// Commit runs the commit algorithm of spec.md §4.6: computes per-store
// parents, serializes every staged delta, builds and signs the Entry,
// validates it against the matching settings snapshot, persists it, and
// fires sync hooks. It returns the new entry's id.
//
// Commit has no caller-supplied context (the surrounding API is
// synchronous), so it opens a root span the same way beads' fire-and-forget
// hook runner opens one for hook execution.
func (tx *Transaction) Commit() (eid id.ID, retErr error) {
	_, span := telemetry.Tracer().Start(context.Background(), "transaction.commit")
	defer func() {
		if retErr != nil {
			span.RecordError(retErr)
			span.SetStatus(codes.Error, retErr.Error())
		} else {
			span.SetAttributes(attribute.String("entry.id", string(eid)))
		}
		span.End()
	}()

	if tx.committed {
		return id.Empty, ErrAlreadyCommitted
	}
	if len(tx.stores) == 0 {
		return id.Empty, ErrNoStoresTouched
	}
	if tx.signKeyName == "" {
		return id.Empty, ErrAuthenticationRequired
	}

	settingsTips, err := tx.preCommitSettingsTips()
	if err != nil {
		return id.Empty, err
	}

	builder := tx.newBuilder()
	for name, edit := range tx.stores {
		data, err := encodeStoreEdit(edit)
		if err != nil {
			return id.Empty, fmt.Errorf("%w: store %q: %v", ErrEntryConstructionFailed, name, err)
		}
		builder.SetStoreData(name, data)
		builder.AddStoreParents(name, edit.parents...)
	}
	builder.SetSigKey(entry.SigKey{Direct: tx.signKeyName})
	if len(settingsTips) > 0 {
		metaJSON, err := encodeMetadata(settingsTips)
		if err != nil {
			return id.Empty, fmt.Errorf("%w: metadata: %v", ErrEntryConstructionFailed, err)
		}
		builder.SetMetadata(metaJSON)
	}

	e, err := builder.Build()
	if err != nil {
		return id.Empty, fmt.Errorf("%w: %v", ErrEntryConstructionFailed, err)
	}

	priv, err := tx.backend.GetPrivateKey(tx.signKeyName)
	if err != nil {
		return id.Empty, fmt.Errorf("%w: %s", ErrSigningKeyNotFound, tx.signKeyName)
	}
	sig := auth.Sign(priv, []byte(e.ID().String()))
	e = e.WithSignature(sig)

	if err := tx.authorize(e, settingsTips); err != nil {
		return id.Empty, err
	}

	if err := tx.backend.PutVerified(e); err != nil {
		return id.Empty, fmt.Errorf("transaction: commit: persist: %w", err)
	}

	tx.mat.Invalidate()

	if tx.hooks != nil {
		tx.hooks.Fire(e.Root(), e, e.IsRoot())
	}

	tx.committed = true
	tx.root = e.ID()
	if !e.IsRoot() {
		tx.root = e.Root()
	}
	tx.tips = id.Set{e.ID()}
	return e.ID(), nil
}

func (tx *Transaction) newBuilder() *entry.Builder {
	if tx.isRoot {
		return entry.RootBuilder()
	}
	b := entry.NewBuilder(tx.root)
	b.AddParents(tx.tips...)
	return b
}

// preCommitSettingsTips returns the _settings store's tips as of the
// transaction's main tips, i.e. the snapshot that was current *before* this
// commit -- used for metadata even when this very transaction also writes
// _settings (spec.md §4.6 step 5).
func (tx *Transaction) preCommitSettingsTips() (id.Set, error) {
	if tx.isRoot || len(tx.tips) == 0 {
		return nil, nil
	}
	return storeTipsAsOf(tx.backend, tx.root, entry.SettingsStore, tx.tips)
}

// authorize re-resolves e's signing key against the settings snapshot
// pinned by settingsTips and requires can_write (or can_admin, for entries
// touching _settings). An empty settingsTips means no auth has been
// established yet for this database (only possible for the entry that
// creates it), so the check is skipped (spec.md §4.5's bootstrap case).
func (tx *Transaction) authorize(e *entry.Entry, settingsTips id.Set) error {
	if len(settingsTips) == 0 {
		return nil
	}
	settingsDoc, err := tx.mat.Doc(tx.rootForAuth(e), entry.SettingsStore, settingsTips)
	if err != nil {
		return fmt.Errorf("transaction: commit: load settings snapshot: %w", err)
	}

	var resolveErr error
	if e.InStore(entry.SettingsStore) {
		_, resolveErr = tx.resolver.RequireAdmin(e, settingsDoc)
	} else {
		_, resolveErr = tx.resolver.RequireWrite(e, settingsDoc)
	}
	if resolveErr == nil {
		return nil
	}
	switch {
	case errors.Is(resolveErr, auth.ErrInsufficientPermissions):
		return fmt.Errorf("%w: %v", ErrInsufficientPermissions, resolveErr)
	case errors.Is(resolveErr, auth.ErrNoAuthConfiguration):
		return fmt.Errorf("%w: %v", ErrNoAuthConfiguration, resolveErr)
	default:
		return fmt.Errorf("%w: %v", ErrSignatureVerificationFailed, resolveErr)
	}
}

func (tx *Transaction) rootForAuth(e *entry.Entry) id.ID {
	if tx.isRoot {
		return e.ID()
	}
	return tx.root
}

func encodeStoreEdit(edit *storeEdit) (string, error) {
	switch edit.kind {
	case kindYDoc:
		return crdt.Encode(crdt.FromYDoc(edit.ydoc))
	default:
		return crdt.EncodeDoc(edit.delta)
	}
}

func encodeMetadata(settingsTips id.Set) (string, error) {
	data, err := id.Canonicalize(map[string]any{"settings_tips": settingsTips.Strings()})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
