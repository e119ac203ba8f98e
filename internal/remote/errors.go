package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized marks authentication failures that survived a token
	// refresh attempt. Terminal until the user re-authenticates.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks entries removed remotely; callers treat it as cache
	// invalidation for that id.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks network trouble and server-side errors worth
	// retrying.
	ErrTransient = errors.New("transient remote failure")
)

// Wrap tags err with marker while keeping operation context.
func Wrap(marker error, operation string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}
	return fmt.Errorf("%w: %s", marker, operation)
}

// Retryable reports whether the sync coordinator should retry after err.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
