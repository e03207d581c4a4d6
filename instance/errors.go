package instance

import "errors"

// Sentinel errors for the Instance and its users registry (spec.md §4.8).
var (
	ErrUserExists          = errors.New("instance: user already exists")
	ErrUserNotFound        = errors.New("instance: user not found")
	ErrInvalidCredentials  = errors.New("instance: invalid credentials")
	ErrKeyNotFound         = errors.New("instance: key not found")
	ErrDatabaseNotFound    = errors.New("instance: database not found")
	ErrDatabaseNameExists  = errors.New("instance: database name already registered")
	ErrSyncAlreadyEnabled  = errors.New("instance: sync is already enabled")
	ErrSyncNotEnabled      = errors.New("instance: sync is not enabled")
)

// IsNotFound reports whether err indicates a missing user, key, or database.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrDatabaseNotFound)
}

// IsAlreadyExists reports whether err indicates a duplicate user or
// database name.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrUserExists) || errors.Is(err, ErrDatabaseNameExists)
}
