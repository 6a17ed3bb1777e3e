package llm

import "errors"

// The client sorts call failures into two classes. Transient failures
// (network errors, rate limits, 5xx) are retried with backoff and then
// handed to the next model in the capability's fallback chain. Fatal
// failures (bad credentials, malformed requests, unparseable structured
// output) stop the chain immediately: no model further down can do
// better with the same input.

// TransientError marks a failure worth retrying.
type TransientError struct {
	err error
}

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// FatalError marks a failure that retrying cannot fix.
type FatalError struct {
	err error
}

// NewFatalError wraps err as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsFatal reports whether err should stop the fallback chain.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
