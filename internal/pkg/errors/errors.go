package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeInternal        = "INTERNAL_ERROR"
	CodeBinding         = "BINDING_ERROR"
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeSinkFailure     = "SINK_FAILURE"
	CodeUnitConflict    = "UNIT_CONFLICT"
)

// AppError represents an engine error with context
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithError wraps an underlying error
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Internal creates an internal error
func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

// Binding creates a binding error
func Binding(message string) *AppError {
	return New(CodeBinding, message)
}

// Bindingf creates a binding error with a formatted message
func Bindingf(format string, args ...any) *AppError {
	return New(CodeBinding, fmt.Sprintf(format, args...))
}

// MethodNotFound creates an error for a method missing from its class
func MethodNotFound(class, method string) *AppError {
	return New(CodeMethodNotFound, fmt.Sprintf("%s has no method %q", class, method)).
		WithDetail("class", class).
		WithDetail("method", method)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *AppError {
	return New(CodeInvalidArgument, message)
}

// SinkFailure creates a sink failure error
func SinkFailure(sink string, err error) *AppError {
	return New(CodeSinkFailure, fmt.Sprintf("sink %s rejected record", sink)).
		WithDetail("sink", sink).
		WithError(err)
}

// SinkPanic creates a sink failure error for a sink that panicked
func SinkPanic(sink string, v any) *AppError {
	return New(CodeSinkFailure, fmt.Sprintf("sink %s panicked: %v", sink, v)).
		WithDetail("sink", sink)
}

// UnitConflict creates an error for a unit already claimed by another class
// of the same name
func UnitConflict(class, method string) *AppError {
	return New(CodeUnitConflict, fmt.Sprintf("%s.%s is instrumented on another class with the same name", class, method)).
		WithDetail("class", class).
		WithDetail("method", method)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error if present
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsBinding checks if the error is a binding error
func IsBinding(err error) bool {
	return hasCode(err, CodeBinding)
}

// IsMethodNotFound checks if the error is a method not found error
func IsMethodNotFound(err error) bool {
	return hasCode(err, CodeMethodNotFound)
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

// IsSinkFailure checks if the error is a sink failure
func IsSinkFailure(err error) bool {
	return hasCode(err, CodeSinkFailure)
}

// IsUnitConflict checks if the error is a unit conflict
func IsUnitConflict(err error) bool {
	return hasCode(err, CodeUnitConflict)
}

func hasCode(err error, code string) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Code == code
	}
	return false
}
