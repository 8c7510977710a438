package providerstatus

import "errors"

var (
	// ErrUnknownProvider indicates the provider is not configured.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNotFound indicates no status row exists for the provider.
	ErrNotFound = errors.New("provider status not found")
)
