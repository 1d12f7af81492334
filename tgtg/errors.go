package tgtg

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid tgtg configuration")
	// ErrInvalidOptions indicates request options failed validation
	ErrInvalidOptions = errors.New("invalid request options")
	// ErrNoSession is returned when an authenticated call is made before logging in
	ErrNoSession = errors.New("there is no active session, call AuthByEmail first")
	// ErrAlreadyAuthenticated is returned when logging in with a session already active
	ErrAlreadyAuthenticated = errors.New("there is already a session active")
	// ErrEmailNotRegistered indicates the email has no account and must sign up first
	ErrEmailNotRegistered = errors.New("email is not linked to an account")
	// ErrTimeout matches any request that hit the configured timeout
	ErrTimeout = errors.New("request timed out")
)

const tooManyRequestsMessage = "Too many requests. Try again later."

// APIError represents a failed API call. StatusCode is the HTTP status; for
// calls that returned 200 with a non-success application state, State holds
// that state.
type APIError struct {
	StatusCode int
	State      string
	Message    string
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("tgtg API error: status %d: state %s: %s", e.StatusCode, e.State, e.Message)
	}
	return fmt.Sprintf("tgtg API error: status %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether the server answered 429
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func newAPIError(resp *Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(resp.Body),
	}
}

func newRateLimitError(resp *Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    tooManyRequestsMessage,
		Body:       string(resp.Body),
	}
}

// LoginError is returned when the login flow fails for a reason other than
// rate limiting.
type LoginError struct {
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *LoginError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tgtg login error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("tgtg login error: status %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

func newLoginError(resp *Response) *LoginError {
	return &LoginError{
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
	}
}

// PollingTimeoutError is returned when the user did not confirm the login
// email within the polling budget.
type PollingTimeoutError struct {
	Attempts int
	Waited   time.Duration
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("max retries (%d attempts, %s) reached, try again", e.Attempts, e.Waited)
}

// TimeoutError is returned when a request exceeded the configured timeout.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("POST %s: no response within %s", e.Path, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTimeout) match
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
