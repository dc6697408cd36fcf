package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	t.Run("without wrapped error", func(t *testing.T) {
		err := NewDomainError(ErrorTypeValidation, "bad input", nil)
		assert.Equal(t, "validation: bad input", err.Error())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		inner := errors.New("boom")
		err := NewDomainError(ErrorTypeInternal, "query failed", inner)
		assert.Equal(t, "internal: query failed (boom)", err.Error())
	})
}

func TestDomainError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewDomainError(ErrorTypeInternal, "query failed", inner)
	assert.Equal(t, inner, errors.Unwrap(err))
}

func TestDomainError_Is(t *testing.T) {
	wrapped := fmt.Errorf("appending record: %w", ErrTokenSumMismatch)
	assert.True(t, errors.Is(wrapped, ErrTokenSumMismatch))
	assert.False(t, errors.Is(wrapped, ErrNegativeCost))
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "bad input", nil).
		WithDetail("field", "total_tokens").
		WithDetail("expected", 1200)

	details := GetErrorDetails(err)
	assert.Equal(t, "total_tokens", details["field"])
	assert.Equal(t, 1200, details["expected"])
}

func TestErrorTypeCheckers(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"validation error", ErrTokenSumMismatch, IsValidationError, true},
		{"wrapped validation error", fmt.Errorf("append: %w", ErrNegativeCost), IsValidationError, true},
		{"configuration error", ErrUnknownPolicyKind, IsConfigurationError, true},
		{"not found error", ErrRecordNotFound, IsNotFoundError, true},
		{"internal error", ErrDatabaseError, IsInternalError, true},
		{"plain error is nothing", errors.New("boom"), IsValidationError, false},
		{"validation is not configuration", ErrNegativeTokens, IsConfigurationError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.checker(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeValidation, GetErrorType(ErrInvalidRecord))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("boom")))
}
