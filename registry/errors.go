package registry

import "errors"

// Sentinel errors for session lookup and routing.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoStream        = errors.New("no stream bound for destination")
)
