package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/eidetica/eidetica/crdt"
	"github.com/eidetica/eidetica/transaction"
)

// Table is the generic record store of spec.md §4.6's Table<T>: each record
// JSON-encodes as a top-level key in the underlying Doc, keyed by an
// auto-generated UUID primary key.
type Table[T any] struct {
	ds *DocStore
}

// NewTable opens a Table[T] view named name against tx.
func NewTable[T any](tx *transaction.Transaction, name string) *Table[T] {
	return &Table[T]{ds: NewDocStore(tx, name)}
}

// Insert JSON-encodes v and stages it under a freshly generated UUID key,
// returning that key.
func (t *Table[T]) Insert(v T) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: table insert: %w", err)
	}
	id := uuid.NewString()
	if err := t.ds.Set(id, crdt.Bytes(data)); err != nil {
		return "", err
	}
	return id, nil
}

// Get decodes the record stored at id.
func (t *Table[T]) Get(id string) (T, error) {
	var zero T
	val, err := t.ds.Get(id)
	if err != nil {
		return zero, err
	}
	data, ok := val.AsBytes()
	if !ok {
		return zero, fmt.Errorf("%w: table record %s", ErrWrongKind, id)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("store: table get: %w", err)
	}
	return v, nil
}

// Set overwrites the record stored at id.
func (t *Table[T]) Set(id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: table set: %w", err)
	}
	return t.ds.Set(id, crdt.Bytes(data))
}

// Delete tombstones the record at id.
func (t *Table[T]) Delete(id string) error {
	return t.ds.Delete(id)
}

// Record pairs a Table's primary key with its decoded value.
type Record[T any] struct {
	ID    string
	Value T
}

// Search decodes every visible record and returns those matching predicate,
// in key order.
func (t *Table[T]) Search(predicate func(T) bool) ([]Record[T], error) {
	keys, err := t.ds.Keys()
	if err != nil {
		return nil, err
	}
	var out []Record[T]
	for _, id := range keys {
		v, err := t.Get(id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if predicate(v) {
			out = append(out, Record[T]{ID: id, Value: v})
		}
	}
	return out, nil
}
