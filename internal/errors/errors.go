package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the auth client. An *AuthError unwraps to one of these
// so callers can branch with errors.Is.
var (
	// Raised locally before any request is sent
	ErrValidation = errors.New("validation error")

	// Backend rejections
	ErrAuthentication = errors.New("authentication failed")
	ErrRegistration   = errors.New("registration failed")
	ErrRefresh        = errors.New("refresh failed")
	ErrReset          = errors.New("password reset failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrServer         = errors.New("server error")

	// Transport
	ErrNetwork = errors.New("network error")

	// Client state
	ErrNoAccessToken        = errors.New("no access token available")
	ErrNoRefreshToken       = errors.New("no refresh token available")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrUnsupported          = errors.New("unsupported operation")
)

// AuthError is the error value produced for failed auth and API calls.
// Status is zero when no response was received.
type AuthError struct {
	Kind    error
	Message string
	Status  int
	Details any
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Kind
}

// New creates an AuthError of the given kind with no status attached.
func New(kind error, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// FromStatus builds an AuthError for a non-2xx response. An empty message falls
// back to the HTTP status text.
func FromStatus(kind error, status int, message string, details any) *AuthError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("Request failed with status %d", status)
	}
	return &AuthError{Kind: kind, Message: message, Status: status, Details: details}
}

// Network wraps a transport failure. No status is attached.
func Network(err error) *AuthError {
	return &AuthError{Kind: ErrNetwork, Message: err.Error(), Details: err}
}

// Message returns the human readable message of err, preferring the AuthError
// message over the wrapped chain.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
