package llm

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks a failed call to the completion capability:
// transport errors, provider API errors, timeouts, and empty responses.
var ErrUnavailable = errors.New("llm: capability unavailable")

// ErrEmptyResponse is returned by adapters when the provider answered
// without any text. It is always wrapped together with ErrUnavailable.
var ErrEmptyResponse = errors.New("llm: empty response")

// Unavailable wraps err as a capability failure for provider. The cause
// stays reachable through errors.Is, so context.Canceled and
// context.DeadlineExceeded can still be detected.
func Unavailable(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrUnavailable, err)
}

// IsUnavailable reports whether err is a capability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
