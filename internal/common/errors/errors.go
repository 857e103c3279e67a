// Package errors provides the standardized error taxonomy for the
// application lifecycle engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeExternalIntegration ErrorCode = "EXTERNAL_INTEGRATION_FAILURE"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeTokenFetchFailed    ErrorCode = "TOKEN_FETCH_FAILED"
)

// DomainError represents a structured engine error.
type DomainError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    []string               `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *DomainError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("DomainError[%s]: %s (%s)", e.Code, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("DomainError[%s]: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewNotFound reports a missing Job, Application or Declaration.
func NewNotFound(resource, id string) *DomainError {
	return &DomainError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransition reports an attempted transition out of a terminal
// application state.
func NewInvalidTransition(from, to string) *DomainError {
	return &DomainError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("application is already %s", from),
		Details:   fmt.Sprintf("cannot transition from %s to %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailed reports a domain validation failure with the offending
// fields, e.g. an incomplete worker profile blocking approval.
func NewValidationFailed(message string, fields ...string) *DomainError {
	return &DomainError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalIntegrationFailure wraps a fault from an external system. These
// never block the local state transition that triggered them.
func NewExternalIntegrationFailure(service string, err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeExternalIntegration,
		Message:   fmt.Sprintf("external service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTokenFetchFailed reports a failure obtaining a short-lived bearer
// assertion. Kept distinct from declaration-processing failures because the
// two are retried differently.
func NewTokenFetchFailed(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeTokenFetchFailed,
		Message:   "failed to obtain access token",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewConcurrencyConflict reports transaction or lock contention that exhausted
// its retry budget.
func NewConcurrencyConflict(err error) *DomainError {
	return &DomainError{
		Code:      ErrCodeConcurrencyConflict,
		Message:   "storage conflict during state transition",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf returns the error code of err, or an empty code when err is not a
// DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsNotFound(err error) bool          { return CodeOf(err) == ErrCodeNotFound }
func IsInvalidTransition(err error) bool { return CodeOf(err) == ErrCodeInvalidTransition }
func IsValidationFailed(err error) bool  { return CodeOf(err) == ErrCodeValidationFailed }
func IsConcurrencyConflict(err error) bool {
	return CodeOf(err) == ErrCodeConcurrencyConflict
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}
