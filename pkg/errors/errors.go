package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a processor result for handling
type ErrorCategory string

const (
	CategoryApproved          ErrorCategory = "approved"
	CategoryCancelled         ErrorCategory = "cancelled"
	CategoryDeclined          ErrorCategory = "declined"
	CategoryInsufficientFunds ErrorCategory = "insufficient_funds"
	CategoryAuthentication    ErrorCategory = "authentication"
	CategoryExpired           ErrorCategory = "expired"
	CategorySuspected         ErrorCategory = "suspected_fraud"
	CategoryBankUnavailable   ErrorCategory = "bank_unavailable"
	CategorySystemError       ErrorCategory = "system_error"
)

// PaymentError represents a failed payment attempt reported by the processor
type PaymentError struct {
	Code             string
	Message          string
	ProcessorMessage string
	IsRetriable      bool
	Category         ErrorCategory
	Details          map[string]interface{}
}

func (e *PaymentError) Error() string {
	if e.ProcessorMessage != "" {
		return fmt.Sprintf("%s: %s (processor: %s)", e.Code, e.Message, e.ProcessorMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, category ErrorCategory, retriable bool) *PaymentError {
	return &PaymentError{
		Code:        code,
		Message:     message,
		Category:    category,
		IsRetriable: retriable,
		Details:     make(map[string]interface{}),
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
