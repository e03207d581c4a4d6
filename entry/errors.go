package entry

import "errors"

// Sentinel errors returned by Builder.Build. Wrap with fmt.Errorf("...: %w")
// at call sites that need more context; callers that only care about the
// category should use errors.Is against these.
var (
	// ErrMissingRoot is returned when a non-root entry has no Root set.
	ErrMissingRoot = errors.New("entry: non-root entry requires a root id")
	// ErrInvalidStoreName is returned for an empty or reserved-but-misused store name.
	ErrInvalidStoreName = errors.New("entry: invalid store name")
	// ErrInvalidStoreData is returned when store data fails canonicalization.
	ErrInvalidStoreData = errors.New("entry: invalid store data")
	// ErrEmptyEntry is returned when a root entry is built without the
	// distinguished _root store, or any entry has no main parents and no stores.
	ErrEmptyEntry = errors.New("entry: entry has no parents and no stores")
)

// Error wraps a sentinel with positional context while staying
// errors.Is-compatible with the sentinel.
type Error struct {
	Op   string
	Err  error
	Note string
}

func (e *Error) Error() string {
	if e.Note == "" {
		return "entry: " + e.Op + ": " + e.Err.Error()
	}
	return "entry: " + e.Op + ": " + e.Err.Error() + " (" + e.Note + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// IsValidationError reports whether err is any of the Build-time sentinels
// above, matching spec.md §7's is_validation_error predicate family.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingRoot) ||
		errors.Is(err, ErrInvalidStoreName) ||
		errors.Is(err, ErrInvalidStoreData) ||
		errors.Is(err, ErrEmptyEntry)
}
