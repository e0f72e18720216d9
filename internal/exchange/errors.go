package exchange

import (
	"errors"
	"fmt"
)

// TransientError represents a retryable transport failure (timeouts, 5xx)
type TransientError struct {
	Message string
	Cause   error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient exchange error: %s", e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// PermanentError represents a non-retryable failure (4xx, bad configuration)
type PermanentError struct {
	Message    string
	StatusCode int
	Cause      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent exchange error: %s (status: %d)", e.Message, e.StatusCode)
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// AuthenticationError represents an authentication or app key failure
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *TransientError {
	return &TransientError{Message: message, Cause: cause}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, statusCode int, cause error) *PermanentError {
	return &PermanentError{Message: message, StatusCode: statusCode, Cause: cause}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, cause error) *AuthenticationError {
	return &AuthenticationError{Message: message, Cause: cause}
}

// IsTransient reports whether the error is worth retrying on a later cycle
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}
