package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid case input or config
	ErrCatModel      ErrorCategory = "model"      // Model invocation failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatRateLimit  ErrorCategory = "rate_limit" // Provider rate limited
	ErrCatParse      ErrorCategory = "parse"      // Unusable model output
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatState      ErrorCategory = "state"      // Store or protocol state conflict
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on category and code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{Category: ErrCatValidation, Code: code, Message: message}
}

// ErrModel creates a model invocation error. Model failures are retryable
// unless the caller marks them otherwise.
func ErrModel(code, message string) *DomainError {
	return &DomainError{Category: ErrCatModel, Code: code, Message: message, Retryable: true}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{Category: ErrCatTimeout, Code: "TIMEOUT", Message: message, Retryable: true}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{Category: ErrCatRateLimit, Code: "RATE_LIMITED", Message: message, Retryable: true}
}

// ErrParse creates a parse error.
func ErrParse(code, message string) *DomainError {
	return &DomainError{Category: ErrCatParse, Code: code, Message: message}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{Category: ErrCatState, Code: code, Message: message}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrInterrupted converts a context error: an expired deadline becomes a
// timeout, any other cancellation a state error.
func ErrInterrupted(err error) *DomainError {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout("case deadline exceeded").WithCause(err)
	}
	return ErrState(CodeCaseCancelled, "case cancelled").WithCause(err)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Error codes used across packages.
const (
	CodeEmptyQuestion   = "EMPTY_QUESTION"
	CodeInvalidOptions  = "INVALID_OPTIONS"
	CodeInvalidTier     = "INVALID_TIER"
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeUnknownModel    = "UNKNOWN_MODEL"
	CodeEmptyResponse   = "EMPTY_RESPONSE"
	CodeModelFailed     = "MODEL_FAILED"
	CodeModelStatus     = "MODEL_HTTP_STATUS"
	CodeUnknownTemplate = "UNKNOWN_TEMPLATE"
	CodeStoreFailed     = "STORE_FAILED"
	CodeCaseCancelled   = "CASE_CANCELLED"
	CodeSchemaVersion   = "SCHEMA_VERSION"
)
