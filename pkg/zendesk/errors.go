package zendesk

import (
	"errors"
	"fmt"
)

// ValidationError reports bad caller input before any request is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// APIError is a non-retryable (or retry-exhausted) HTTP error from the
// Zendesk API. StatusCode is 0 when the failure happened before a status
// line was read.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("zendesk api error: %s", e.Body)
	}
	return fmt.Sprintf("zendesk api error: status %d: %s", e.StatusCode, e.Body)
}

// NotFound reports whether the error is a 404.
func (e *APIError) NotFound() bool { return e.StatusCode == 404 }

// RateLimited reports whether the error is a 429.
func (e *APIError) RateLimited() bool { return e.StatusCode == 429 }

// NetworkError wraps a connection-level failure (DNS, refused, reset).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("zendesk network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// MaxRetriesError is returned when every retry attempt has been consumed.
// Cause holds the error from the final attempt.
type MaxRetriesError struct {
	Cause error
}

func (e *MaxRetriesError) Error() string { return fmt.Sprintf("max retries exceeded: %v", e.Cause) }
func (e *MaxRetriesError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is (or wraps) a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// IsRateLimited reports whether err is (or wraps) a 429 APIError.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
