package domain

import (
	"errors"
)

var (
	// ErrInvalidInput signals empty or oversize text, or a malformed entity.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEntityNotFound signals a missing entity.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexUnavailable signals that the vector store cannot serve requests.
	ErrIndexUnavailable = errors.New("lore index unavailable")
	// ErrQueueFull signals indexing backpressure: the caller should retry later.
	ErrQueueFull = errors.New("indexing queue full")
)

// ProviderError wraps an embedding provider failure and records whether the
// call is worth retrying (timeouts, rate limits, 5xx) or not (rejected
// input, malformed response).
type ProviderError struct {
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Retryable {
		return "embedding provider error (retryable): " + e.Err.Error()
	}
	return "embedding provider error: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err as a provider failure.
func NewProviderError(retryable bool, err error) error {
	return &ProviderError{Retryable: retryable, Err: err}
}

// AsProviderError reports whether err is a provider failure, returning it.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether err is transient: a retryable provider error
// or an unavailable index.
func IsRetryable(err error) bool {
	if pe, ok := AsProviderError(err); ok {
		return pe.Retryable
	}
	return errors.Is(err, ErrIndexUnavailable)
}
