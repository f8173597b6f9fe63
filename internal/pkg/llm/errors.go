package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no completion API key is available.
var ErrNotConfigured = errors.New("llm: completion API key is not configured")

// ProviderError is a typed upstream failure. Status carries the provider's
// HTTP status for error responses, or 502 for transport-level failures
// (timeouts, connection resets) and responses we cannot make sense of.
type ProviderError struct {
	Status int
	Detail string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Detail)
}

func transportError(err error) *ProviderError {
	return &ProviderError{Status: 502, Detail: err.Error()}
}

func shapeError(detail string) *ProviderError {
	return &ProviderError{Status: 502, Detail: "unexpected response shape: " + detail}
}
