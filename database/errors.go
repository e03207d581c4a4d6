package database

import "errors"

// Sentinel errors for the Database handle (spec.md §4.7).
var (
	// ErrInstanceDropped is returned by the Database methods that reach the
	// owning Instance (Tips, GetEntry, Settings, NewTransaction and
	// NewTransactionWithTips) once it has been closed.
	ErrInstanceDropped = errors.New("database: owning instance has been dropped")
)

// IsInstanceDropped reports whether err indicates a dropped owning Instance.
func IsInstanceDropped(err error) bool {
	return errors.Is(err, ErrInstanceDropped)
}
