package auth

import "errors"

var (
	// ErrNoAuthConfiguration is returned when a settings snapshot has no
	// "auth" section at all.
	ErrNoAuthConfiguration = errors.New("auth: no auth configuration in settings")
	// ErrInvalidAuthConfiguration is returned when the auth section exists
	// but is shaped wrong (not a Doc, or a key entry doesn't parse).
	ErrInvalidAuthConfiguration = errors.New("auth: invalid auth configuration")
	// ErrKeyNotFound is returned when a named key is absent from auth
	// settings.
	ErrKeyNotFound = errors.New("auth: key not found")
	// ErrKeyRevoked is returned when a resolved key's status is Revoked.
	ErrKeyRevoked = errors.New("auth: key is revoked")
	// ErrDelegationDepthExceeded is returned when a delegation path nests
	// deeper than MaxDelegationDepth.
	ErrDelegationDepthExceeded = errors.New("auth: delegation depth exceeded")
	// ErrDelegationCycle is returned when a delegation path revisits a
	// tree id already on the current resolution chain.
	ErrDelegationCycle = errors.New("auth: delegation path contains a cycle")
	// ErrEmptyDelegationPath is returned for a DelegationPath with no
	// steps.
	ErrEmptyDelegationPath = errors.New("auth: empty delegation path")
	// ErrDelegatedTreeLoaderRequired is returned when resolving a
	// DelegationPath sig key without a DelegatedTreeLoader.
	ErrDelegatedTreeLoaderRequired = errors.New("auth: delegated tree resolution requires a loader")
	// ErrTipsNotAncestor is returned when a delegation step's claimed tips
	// are not ancestor-or-equal-or-descendant of the delegated tree's
	// current tips.
	ErrTipsNotAncestor = errors.New("auth: delegation step tips are not related to the delegated tree's current tips")
	// ErrInvalidPublicKey is returned for a malformed "ed25519:..." string.
	ErrInvalidPublicKey = errors.New("auth: invalid public key format")
	// ErrWildcardRequiresPubkey is returned when a SigKey resolves to the
	// "*" auth entry but sig.pubkey was not provided.
	ErrWildcardRequiresPubkey = errors.New("auth: wildcard key requires an explicit signer pubkey")
	// ErrSignatureVerificationFailed is returned when an Ed25519 signature
	// does not verify against the resolved public key.
	ErrSignatureVerificationFailed = errors.New("auth: signature verification failed")
	// ErrInsufficientPermissions is returned when a resolved key's
	// effective permission does not meet the operation's requirement.
	ErrInsufficientPermissions = errors.New("auth: insufficient permissions")
)
