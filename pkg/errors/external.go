package errors

import (
	"errors"
	"fmt"
)

// ExternalServiceError represents a failure talking to an external
// collaborator (weather provider, predictor, language model). Recoverable:
// callers retry and then fall back, they never surface this as fatal.
type ExternalServiceError struct {
	Service   string
	Op        string
	Message   string
	Timeout   bool
	Retryable bool
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Service, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Service, e.Op, e.Message)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// NewExternalTimeout builds a timeout-flavoured service error.
func NewExternalTimeout(service, op string, err error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:   service,
		Op:        op,
		Message:   "request timed out",
		Timeout:   true,
		Retryable: true,
		Err:       err,
	}
}

// IsRetryable reports whether err is an external service error worth retrying.
func IsRetryable(err error) bool {
	var svcErr *ExternalServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable
	}
	return false
}

// IsTimeout reports whether err is an external service timeout.
func IsTimeout(err error) bool {
	var svcErr *ExternalServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Timeout
	}
	return false
}

// ValidationError indicates a stage produced output violating its own
// invariants. Treated as a bug: fatal, logged with full context.
type ValidationError struct {
	Stage   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed in %s: %s", e.Stage, e.Message)
}
