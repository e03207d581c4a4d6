package backend

import "errors"

var (
	// ErrNotFound is returned by Get and private-key lookups when the id or
	// name has no stored entry.
	ErrNotFound = errors.New("backend: not found")
	// ErrMergeBaseNotFound is returned by FindMergeBase when the given
	// entries share no common ancestor.
	ErrMergeBaseNotFound = errors.New("backend: no common ancestor")
	// ErrNoPath is returned by GetPathFromTo when to is not reachable from
	// from within the named store's DAG.
	ErrNoPath = errors.New("backend: no path between entries")
	// ErrUnknownSchemaVersion is returned by persistence layers when a save
	// file or database declares a schema version this build doesn't know
	// how to read or migrate from.
	ErrUnknownSchemaVersion = errors.New("backend: unknown schema version")
)

// IsNotFound reports whether err is (or wraps) ErrNotFound, matching
// spec.md §7's is_not_found predicate family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
