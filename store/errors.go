package store

import "errors"

// Sentinel errors for typed store views (spec.md §4.6).
var (
	// ErrKeyNotFound is returned by Get/Table.Get when the key has no
	// visible value (absent or tombstoned).
	ErrKeyNotFound = errors.New("store: key not found")
	// ErrWrongKind is returned when a key's stored value is not the shape
	// the accessor expects (e.g. Table.Get on a non-Bytes value).
	ErrWrongKind = errors.New("store: value has the wrong kind")
	// ErrNotAYDocStore is returned when a transaction has already staged a
	// store as Doc data and the store is then written through a YDoc view,
	// or vice versa. Only the transaction's own staged edits are checked,
	// not the kind of data in the store's committed history.
	ErrNotAYDocStore = errors.New("store: not a ydoc store")
)

// IsNotFound reports whether err indicates an absent key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
