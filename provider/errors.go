package provider

import (
	"errors"
	"fmt"
)

// ErrModelNotFound is returned by Resolve when no configured model matches
// the requested key (after default substitution).
var ErrModelNotFound = errors.New("model not found")

// BackendError carries a non-2xx provider response. The body is kept as
// detail so the worker sees what the backend actually said.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}
