package contextutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "error with details",
			appError: &AppError{
				Code:     ErrorCodeInvalidInput,
				Severity: SeverityError,
				Message:  "Invalid input",
				Details:  "Field 'email' is required",
			},
			expected: "INVALID_INPUT: Invalid input - Field 'email' is required",
		},
		{
			name: "error without details",
			appError: &AppError{
				Code:     ErrorCodeRecordNotFound,
				Severity: SeverityInfo,
				Message:  "Record not found",
			},
			expected: "RECORD_NOT_FOUND: Record not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appError.Error())
		})
	}
}

func TestAppError_Is(t *testing.T) {
	err1 := &AppError{Code: ErrorCodeInvalidInput}
	err2 := &AppError{Code: ErrorCodeInvalidInput}
	err3 := &AppError{Code: ErrorCodeRecordNotFound}

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(errors.New("regular error")))
}

func TestNewAppErrorWithCause(t *testing.T) {
	cause := errors.New("database error")
	err := NewAppErrorWithCause(ErrorCodeDatabaseConnection, SeverityError, "DB connection failed", "Connection timeout", cause)

	assert.Equal(t, ErrorCodeDatabaseConnection, err.Code)
	assert.Equal(t, SeverityError, err.Severity)
	assert.Equal(t, "Connection timeout", err.Details)
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrapError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Nil(t, WrapError(nil, "context"))
	})

	t.Run("AppError keeps its code", func(t *testing.T) {
		wrapped := WrapError(ErrPerformanceNotFound, "question row for pupil@example.com")

		var appErr *AppError
		require.True(t, errors.As(wrapped, &appErr))
		assert.Equal(t, ErrorCodePerformanceNotFound, appErr.Code)
		assert.Equal(t, "question row for pupil@example.com", appErr.Message)
		assert.Contains(t, appErr.Details, "Performance record missing")
		assert.True(t, errors.Is(wrapped, ErrPerformanceNotFound))
	})

	t.Run("regular error becomes internal", func(t *testing.T) {
		original := errors.New("database error")
		wrapped := WrapError(original, "context")

		var appErr *AppError
		require.True(t, errors.As(wrapped, &appErr))
		assert.Equal(t, ErrorCodeInternalError, appErr.Code)
		assert.Equal(t, "database error", appErr.Details)
		assert.ErrorIs(t, wrapped, original)
	})

	t.Run("code survives a fmt wrap in between", func(t *testing.T) {
		inner := fmt.Errorf("store: %w", ErrDatabaseQuery)
		wrapped := WrapError(inner, "reading topics")
		assert.Equal(t, ErrorCodeDatabaseQuery, GetErrorCode(wrapped))
	})
}

func TestWrapErrorf(t *testing.T) {
	original := errors.New("database error")
	wrapped := WrapErrorf(original, "failed to read performance for %s", "pupil@example.com")

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrorCodeInternalError, appErr.Code)
	assert.Equal(t, "failed to read performance for pupil@example.com", appErr.Message)
	assert.Equal(t, "database error", appErr.Details)

	withVerb := WrapErrorf(ErrDatabaseQuery, "topic band query: %w", ErrDatabaseQuery)
	assert.Equal(t, ErrorCodeDatabaseQuery, GetErrorCode(withVerb))
	assert.True(t, errors.Is(withVerb, ErrDatabaseQuery))
}

func TestErrorWithContextf(t *testing.T) {
	err := ErrorWithContextf("question %d has %d answers", 4, 3)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrorCodeInternalError, appErr.Code)
	assert.Equal(t, "question 4 has 3 answers", appErr.Message)
}

func TestIsError(t *testing.T) {
	err := &AppError{Code: ErrorCodeInvalidInput}

	assert.True(t, IsError(err, ErrInvalidInput))
	assert.False(t, IsError(err, ErrRecordNotFound))
	assert.False(t, IsError(errors.New("regular error"), ErrInvalidInput))
}

func TestGetErrorSeverity(t *testing.T) {
	assert.Equal(t, SeverityWarn, GetErrorSeverity(&AppError{Severity: SeverityWarn}))
	assert.Equal(t, SeverityError, GetErrorSeverity(errors.New("regular error")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"service unavailable", &AppError{Code: ErrorCodeServiceUnavailable, Severity: SeverityError}, true},
		{"database connection", &AppError{Code: ErrorCodeDatabaseConnection, Severity: SeverityError}, true},
		{"transaction", &AppError{Code: ErrorCodeDatabaseTransaction, Severity: SeverityError}, true},
		{"partial update", ErrPartialUpdate, true},
		{"missing performance row", ErrPerformanceNotFound, false},
		{"validation", &AppError{Code: ErrorCodeInvalidInput, Severity: SeverityWarn}, false},
		{"fatal", &AppError{Code: ErrorCodeDatabaseConnection, Severity: SeverityFatal}, false},
		{"regular error", errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := &AppError{
		Code:     ErrorCodePartialUpdate,
		Severity: SeverityError,
		Message:  "Performance was only partially recorded",
		Details:  "topic row failed",
	}

	json := err.ToJSON()

	assert.Equal(t, "PARTIAL_UPDATE", json["code"])
	assert.Equal(t, "error", json["severity"])
	assert.Equal(t, "topic row failed", json["details"])
	assert.Equal(t, true, json["retryable"])
}
