package models

import (
	"errors"
	"fmt"
)

// SendResult is the uniform outcome of one provider call. It is never
// persisted; it only drives outbox entry transitions.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Err       string `json:"error,omitempty"`
}

// ProviderError is the only error type a provider adapter may surface.
// The Retriable flag is load-bearing: it decides whether the delivery worker
// schedules another attempt or lets the entry head for dead-letter.
type ProviderError struct {
	Provider  ProviderName
	Message   string
	Retriable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// NewProviderError builds a classified provider failure.
func NewProviderError(provider ProviderName, retriable bool, format string, args ...interface{}) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Message:   fmt.Sprintf(format, args...),
		Retriable: retriable,
	}
}

// IsRetriable reports whether err should lead to another delivery attempt.
// Unknown error types default to retriable: a crash mid-delivery is treated
// like a transient fault rather than silently dropping the entry.
func IsRetriable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retriable
	}
	return true
}
