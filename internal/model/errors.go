package model

import (
	"errors"
	"fmt"
)

// Error kinds returned by AnalysisService implementations.
var (
	// ErrUnreachable covers transport failures and timeouts.
	ErrUnreachable = errors.New("analysis service unreachable")
	// ErrRejected means the service answered with a non-success status.
	ErrRejected = errors.New("analysis service rejected request")
	// ErrMalformed means the response did not decode into the expected shape.
	ErrMalformed = errors.New("malformed analysis service response")
	// ErrNotReady marks a command refused locally because its precondition failed.
	ErrNotReady = errors.New("command not available")
)

// ServiceError describes one failed call to the analysis service.
type ServiceError struct {
	Kind       error  // one of ErrUnreachable, ErrRejected, ErrMalformed
	Op         string // endpoint or operation name
	StatusCode int    // HTTP status for rejected calls
	Message    string // server-supplied error text, if any
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s (%d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorKind classifies err into one of the service error kinds.
// Errors that carry no kind are treated as unreachable.
func ErrorKind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRejected):
		return ErrRejected
	case errors.Is(err, ErrMalformed):
		return ErrMalformed
	case errors.Is(err, ErrNotReady):
		return ErrNotReady
	default:
		return ErrUnreachable
	}
}
