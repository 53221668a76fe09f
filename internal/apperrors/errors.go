package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodeUnrecognizedColumns = "UNRECOGNIZED_COLUMNS"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeUnsupportedFormat   = "UNSUPPORTED_FORMAT"
	CodeDecodeFailed        = "DECODE_FAILED"
	CodeNotConfigured       = "NOT_CONFIGURED"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is the error type returned across package boundaries.
type AppError struct {
	Code       string
	Message    string
	StatusCode int // same rule as HTTP status codes
	Err        error
	Details    map[string]interface{}
}

// Error returns a string representation of the error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return t.Code == e.Code
	}
	return false
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is checks.
var (
	ErrUnrecognizedColumns = &AppError{Code: CodeUnrecognizedColumns}
	ErrInvalidArgument     = &AppError{Code: CodeInvalidArgument}
	ErrUnsupportedFormat   = &AppError{Code: CodeUnsupportedFormat}
	ErrDecodeFailed        = &AppError{Code: CodeDecodeFailed}
	ErrNotConfigured       = &AppError{Code: CodeNotConfigured}
)

func NewUnrecognizedColumnsError(message string) *AppError {
	return &AppError{
		Code:       CodeUnrecognizedColumns,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewInvalidArgumentError(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidArgument,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnsupportedFormatError(message string) *AppError {
	return &AppError{
		Code:       CodeUnsupportedFormat,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewDecodeError(message string, err error) *AppError {
	return &AppError{
		Code:       CodeDecodeFailed,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewNotConfiguredError(message string) *AppError {
	return &AppError{
		Code:       CodeNotConfigured,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// StatusCode maps any error to the HTTP status it should produce.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Code returns the AppError code of err, or CodeInternal.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
