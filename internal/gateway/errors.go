package gateway

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport failures and non-2xx statuses.
	ErrNetwork = errors.New("gateway: network error")
	// ErrMissingContext is returned when a locator lacks the link needed to
	// address the remote endpoint.
	ErrMissingContext = errors.New("gateway: locator has no link")
	// ErrCancelled is returned when the caller's context ended first.
	ErrCancelled = errors.New("gateway: cancelled")
	// ErrDecode is returned when a comment payload is not valid JSON.
	ErrDecode = errors.New("gateway: decode error")
)

// StatusError carries an unexpected HTTP status. It unwraps to ErrNetwork.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: %s returned status %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrNetwork }

func transportError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, ErrCancelled)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
}
