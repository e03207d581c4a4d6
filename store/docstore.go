// Package store implements the typed store views that sit on top of a
// Transaction: DocStore, the generic Table[T], and a YDoc log view
// (spec.md §4.6).
package store

import (
	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/transaction"
)

// DocStore exposes get/set/delete/path-op access to one Doc-kind store
// within a Transaction. Reads fold the store's committed history with the
// transaction's own staged delta, so a transaction sees its own uncommitted
// writes but never another transaction's (spec.md §4.6).
type DocStore struct {
	tx   *transaction.Transaction
	name string
}

// NewDocStore opens a DocStore view named name against tx.
func NewDocStore(tx *transaction.Transaction, name string) *DocStore {
	return &DocStore{tx: tx, name: name}
}

// Name returns the underlying store's name.
func (s *DocStore) Name() string { return s.name }

func (s *DocStore) view() (*crdt.Doc, error) {
	base, err := s.tx.Base(s.name)
	if err != nil {
		return nil, err
	}
	if delta := s.tx.PeekDoc(s.name); delta != nil {
		return base.Apply(delta), nil
	}
	return base, nil
}

func (s *DocStore) delta() (*crdt.Doc, error) {
	d, err := s.tx.Delta(s.name)
	if err == nil && d == nil {
		return nil, ErrNotAYDocStore
	}
	return d, err
}

// Get returns the value at key, treating tombstones as absent.
func (s *DocStore) Get(key string) (crdt.Value, error) {
	v, err := s.view()
	if err != nil {
		return crdt.Value{}, err
	}
	val, ok := v.GetVisible(key)
	if !ok {
		return crdt.Value{}, ErrKeyNotFound
	}
	return val, nil
}

// Set stages key = value in the transaction's delta for this store.
func (s *DocStore) Set(key string, value crdt.Value) error {
	delta, err := s.delta()
	if err != nil {
		return err
	}
	delta.Set(key, value)
	return nil
}

// Delete stages a tombstone for key.
func (s *DocStore) Delete(key string) error {
	delta, err := s.delta()
	if err != nil {
		return err
	}
	delta.Delete(key)
	return nil
}

// Keys returns the visible (non-tombstoned) top-level keys, sorted.
func (s *DocStore) Keys() ([]string, error) {
	v, err := s.view()
	if err != nil {
		return nil, err
	}
	all := v.Keys()
	out := make([]string, 0, len(all))
	for _, k := range all {
		if v.ContainsKey(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// GetPath walks a dotted key path through nested Docs.
func (s *DocStore) GetPath(path ...string) (crdt.Value, error) {
	v, err := s.view()
	if err != nil {
		return crdt.Value{}, err
	}
	val, ok := v.GetPath(path)
	if !ok || val.IsDeleted() {
		return crdt.Value{}, ErrKeyNotFound
	}
	return val, nil
}

// SetPath walks/creates nested Docs along path and sets the final key.
func (s *DocStore) SetPath(value crdt.Value, path ...string) error {
	delta, err := s.delta()
	if err != nil {
		return err
	}
	return delta.SetPath(path, value)
}

// DeletePath tombstones the value at the end of path.
func (s *DocStore) DeletePath(path ...string) error {
	delta, err := s.delta()
	if err != nil {
		return err
	}
	return delta.DeletePath(path)
}
