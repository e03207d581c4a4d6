package transaction

import "errors"

// Sentinel errors for transaction staging and commit (spec.md §4.6).
var (
	// ErrAlreadyCommitted is returned by Commit, Delta and DeltaYDoc once
	// Commit has already succeeded.
	ErrAlreadyCommitted = errors.New("transaction: already committed")
	// ErrEmptyTipsNotAllowed is returned when a Transaction is opened with
	// an explicit, empty tip set for a non-root database.
	ErrEmptyTipsNotAllowed = errors.New("transaction: empty tips not allowed")
	// ErrInvalidTip is returned when an explicit tip set references an id
	// the backend does not have.
	ErrInvalidTip = errors.New("transaction: invalid tip")
	// ErrEntryConstructionFailed is returned when the staged writes fail to
	// build into a valid Entry.
	ErrEntryConstructionFailed = errors.New("transaction: entry construction failed")
	// ErrSigningKeyNotFound is returned when the configured signing key
	// name has no corresponding private key in the backend.
	ErrSigningKeyNotFound = errors.New("transaction: signing key not found")
	// ErrAuthenticationRequired is returned when committing a transaction
	// that was never given a signing key.
	ErrAuthenticationRequired = errors.New("transaction: authentication required")
	// ErrNoAuthConfiguration is returned when the database's _settings has
	// no auth section at all.
	ErrNoAuthConfiguration = errors.New("transaction: no auth configuration")
	// ErrInsufficientPermissions is returned when the resolved signing key
	// does not have the permission the operation requires.
	ErrInsufficientPermissions = errors.New("transaction: insufficient permissions")
	// ErrSignatureVerificationFailed is returned when the new entry's
	// signing key fails to resolve or verify against the pinned settings for
	// any reason other than insufficient permissions or a missing auth
	// section (for example an unknown or revoked key name).
	ErrSignatureVerificationFailed = errors.New("transaction: signature verification failed")
	// ErrNoStoresTouched is returned by Commit when no store was staged.
	ErrNoStoresTouched = errors.New("transaction: no stores touched")
)

// IsNotFound reports whether err indicates a missing tip or signing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvalidTip) || errors.Is(err, ErrSigningKeyNotFound)
}

// IsPermissionDenied reports whether err indicates an authorization
// failure, matching spec.md §7's is_permission_denied predicate family.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrInsufficientPermissions) ||
		errors.Is(err, ErrAuthenticationRequired) ||
		errors.Is(err, ErrNoAuthConfiguration)
}

// IsValidationError reports whether err indicates malformed input rather
// than an I/O or authorization failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyTipsNotAllowed) ||
		errors.Is(err, ErrEntryConstructionFailed) ||
		errors.Is(err, ErrNoStoresTouched)
}
