package sqlbackend

import "github.com/eidetica/eidetica/backend"

// Re-exported so callers of this package don't need to import backend
// separately just to compare errors returned from it.
var (
	ErrNotFound             = backend.ErrNotFound
	ErrMergeBaseNotFound    = backend.ErrMergeBaseNotFound
	ErrNoPath               = backend.ErrNoPath
	ErrUnknownSchemaVersion = backend.ErrUnknownSchemaVersion
)
