// Package errors provides unified error handling with structured error codes
// shared across the detection pipeline.
package errors

import "fmt"

// Code identifies an error class for logging and retry decisions.
type Code string

// Error codes used across the pipeline.
const (
	Unknown          Code = "UNKNOWN"
	Internal         Code = "INTERNAL"
	Timeout          Code = "TIMEOUT"
	Unavailable      Code = "UNAVAILABLE"
	ConfigMissing    Code = "CONFIG_MISSING"
	ConfigInvalid    Code = "CONFIG_INVALID"
	StoreUnavailable Code = "STORE_UNAVAILABLE"
	AlarmRejected    Code = "ALARM_REJECTED"
	CaptureFailed    Code = "CAPTURE_FAILED"
	TranscribeFailed Code = "TRANSCRIBE_FAILED"
	LLMAPIError      Code = "LLM_API_ERROR"
	LLMRateLimited   Code = "LLM_RATE_LIMITED"
	LLMInvalidOutput Code = "LLM_INVALID_RESPONSE"
	DeliveryFailed   Code = "DELIVERY_FAILED"
)

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, LLMRateLimited:
		return true
	default:
		return false
	}
}
