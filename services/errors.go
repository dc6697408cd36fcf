package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation errors, rejected at the ledger boundary
	ErrInvalidRecord    = NewDomainError(ErrorTypeValidation, "invalid usage record", nil)
	ErrMissingFeature   = NewDomainError(ErrorTypeValidation, "feature is required", nil)
	ErrMissingModel     = NewDomainError(ErrorTypeValidation, "model is required", nil)
	ErrNegativeTokens   = NewDomainError(ErrorTypeValidation, "token counts cannot be negative", nil)
	ErrTokenSumMismatch = NewDomainError(ErrorTypeValidation, "total tokens must equal prompt plus completion tokens", nil)
	ErrNegativeCost     = NewDomainError(ErrorTypeValidation, "estimated cost cannot be negative", nil)
	ErrNegativeRetries  = NewDomainError(ErrorTypeValidation, "retry count cannot be negative", nil)
	ErrUnsupportedModel = NewDomainError(ErrorTypeValidation, "unsupported model", nil)

	// Configuration errors, surfaced at policy-load time
	ErrInvalidPolicyConfig = NewDomainError(ErrorTypeConfiguration, "invalid policy configuration", nil)
	ErrUnknownPolicyKind   = NewDomainError(ErrorTypeConfiguration, "unknown policy kind", nil)
	ErrUnknownPolicyAction = NewDomainError(ErrorTypeConfiguration, "unknown policy action", nil)
	ErrUnknownAnomalyKind  = NewDomainError(ErrorTypeConfiguration, "unknown anomaly kind", nil)
	ErrNegativeThreshold   = NewDomainError(ErrorTypeConfiguration, "policy threshold must be positive", nil)

	// Not found errors
	ErrRecordNotFound = NewDomainError(ErrorTypeNotFound, "usage record not found", nil)

	// Internal errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeValidation
	}
	return false
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeConfiguration
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeNotFound
	}
	return false
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == ErrorTypeInternal
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapConfiguration wraps an error as a configuration error
func WrapConfiguration(message string, err error) error {
	return NewDomainError(ErrorTypeConfiguration, message, err)
}
