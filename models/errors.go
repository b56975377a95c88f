package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeParse           = "PARSE_FAILED"
	ErrCodeUpstream        = "UPSTREAM_FAILED"
	ErrCodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeNotReady        = "JOB_NOT_FINISHED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type APIError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError.
func NewAPIError(code, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *APIError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// ParseError reports a fragment that was not a "no data" response but did
// not have the structure its category requires. Geocode is filled in by the
// record aggregator; extractors leave it empty.
type ParseError struct {
	Category Category
	Geocode  string
	Msg      string
	Err      error
}

func (e *ParseError) Error() string {
	where := string(e.Category)
	if e.Geocode != "" {
		where = fmt.Sprintf("%s (geocode %s)", e.Category, e.Geocode)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", where, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", where, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConversionError is the cause of an appraisal ParseError when a numeric
// cell does not parse.
type ConversionError struct {
	Field string
	Value string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("field %q: cannot convert %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is, or wraps, a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
