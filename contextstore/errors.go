package contextstore

import "errors"

// Sentinel errors for context validation.
var (
	ErrNegativeKeep   = errors.New("keep_recent must not be negative")
	ErrUnknownSection = errors.New("unknown context section")
)
