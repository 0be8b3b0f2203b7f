package reqcache

import "fmt"

// SentinelError is an error.
type SentinelError string

const (
	// ErrTransportFailure indicates upstream call did not complete successfully.
	ErrTransportFailure = SentinelError("transport failure")

	// ErrNoTransport indicates missing Config.Transport.
	ErrNoTransport = SentinelError("transport is not configured")

	// ErrNothingToInvalidate indicates no caches were added to Invalidator.
	ErrNothingToInvalidate = SentinelError("nothing to invalidate")

	// ErrAlreadyInvalidated indicates recent invalidation.
	ErrAlreadyInvalidated = SentinelError("already invalidated")
)

// Error implements error.
func (e SentinelError) Error() string {
	return string(e)
}

// TransportError is delivered to every caller of a failed upstream round.
type TransportError struct {
	Key   string
	URL   string
	Round string
	Err   error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransportFailure, e.URL, e.Err)
}

// Unwrap returns the error of transport.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransportFailure.
func (e *TransportError) Is(err error) bool {
	return err == ErrTransportFailure
}
