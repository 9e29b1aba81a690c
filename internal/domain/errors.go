package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Payment request errors
	ErrorCodeInvalidAmount ErrorCode = "INVALID_AMOUNT"

	// Processor result errors
	ErrorCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"
	ErrorCodeAmountMismatch   ErrorCode = "AMOUNT_MISMATCH"

	// Order errors
	ErrorCodeOrderNotFound     ErrorCode = "ORDER_NOT_FOUND"
	ErrorCodeAlreadyProcessed  ErrorCode = "ALREADY_PROCESSED"
	ErrorCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// Side effects that run after a committed payment write
	ErrorCodeSideEffectFailure ErrorCode = "SIDE_EFFECT_FAILURE"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so errors.Is(err, ErrOrderNotFound)
// holds for errors built with WrapError as well
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// WithDetail returns a copy of the error with a detail field added.
// The package-level sentinels are shared, so they are never mutated.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Err:     e.Err,
		Details: details,
		Code:    e.Code,
		Message: e.Message,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

var (
	ErrInvalidAmount     = NewDomainError(ErrorCodeInvalidAmount, "order total must be greater than zero")
	ErrSignatureInvalid  = NewDomainError(ErrorCodeSignatureInvalid, "processor signature does not match")
	ErrAmountMismatch    = NewDomainError(ErrorCodeAmountMismatch, "notified amount does not match order total")
	ErrOrderNotFound     = NewDomainError(ErrorCodeOrderNotFound, "order not found")
	ErrAlreadyProcessed  = NewDomainError(ErrorCodeAlreadyProcessed, "order payment already processed")
	ErrInvalidTransition = NewDomainError(ErrorCodeInvalidTransition, "payment status transition not allowed")
	ErrSideEffectFailure = NewDomainError(ErrorCodeSideEffectFailure, "post-payment side effect failed")
	ErrValidationFailed  = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrInternalError     = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError     = NewDomainError(ErrorCodeDatabaseError, "database error")
)
