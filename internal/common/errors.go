package common

import "errors"

// AppError carries an error code and HTTP status alongside the underlying
// cause so handlers can render a canonical error payload.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// Rejection is an expected, user-facing rule rejection: the rule was looked
// at and turned down for a stated reason. It is never treated as a system
// fault.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface with the user-facing reason.
func (r *Rejection) Error() string {
	if r == nil {
		return ""
	}
	return r.Message
}

// AsRejection extracts a Rejection from an error chain.
func AsRejection(err error) (*Rejection, bool) {
	var target *Rejection
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
