package crdt

import "errors"

var (
	// ErrNotADoc is returned when a path operation expects a Doc at some
	// level but finds a different kind of Value there.
	ErrNotADoc = errors.New("crdt: value is not a Doc")
	// ErrNotAList is returned when a list operation targets a non-List value.
	ErrNotAList = errors.New("crdt: value is not a List")
	// ErrNotAYDoc is returned when ApplyUpdate targets a non-YDoc value.
	ErrNotAYDoc = errors.New("crdt: value is not a YDoc")
	// ErrElementNotFound is returned when a list element id has no match.
	ErrElementNotFound = errors.New("crdt: list element not found")
	// ErrEmptyPath is returned by path operations given a zero-length path.
	ErrEmptyPath = errors.New("crdt: path must have at least one key")
	// ErrRootNotDoc is returned when ValueEditor.Set is called at the root
	// with a non-Doc value (spec.md §4.3: "Setting a non-Doc at the root is
	// rejected").
	ErrRootNotDoc = errors.New("crdt: root value must be a Doc")
)

// IsValidationError reports whether err is one of this package's structural
// sentinels, matching spec.md §7's predicate-preserving error family.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNotADoc) ||
		errors.Is(err, ErrNotAList) ||
		errors.Is(err, ErrNotAYDoc) ||
		errors.Is(err, ErrElementNotFound) ||
		errors.Is(err, ErrEmptyPath) ||
		errors.Is(err, ErrRootNotDoc)
}
