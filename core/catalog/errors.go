package catalog

import "errors"

// Sentinel errors returned by the catalog service. Per-track resolution
// failures inside listings are degraded in place and never surface as an
// error of the whole call.
var (
	// ErrUnauthenticated means the caller presented no valid identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidArgument means a required text field was blank after trimming.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound means the referenced track does not exist.
	ErrNotFound = errors.New("track not found")
)
