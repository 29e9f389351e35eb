// Package apperrors defines the categorical error type shared by the CLI
// and the daemon.
package apperrors

import (
	"fmt"
	"net/http"
)

// AppError is a categorical error: a stable HTTP-style code, a
// user-facing message, the operation that raised it, and the
// underlying cause (if any).
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Op: op, Err: err}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Op: op, Err: err}
}

func Internal(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: message, Op: op, Err: err}
}

// Unavailable represents a provider access rejection (401/403/404 from a
// vendor) or an unreachable daemon.
func Unavailable(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusServiceUnavailable, Message: message, Op: op, Err: err}
}

// Conflict represents contention a caller did not want to wait out, such
// as a slides directory already locked by another extraction.
func Conflict(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusConflict, Message: message, Op: op, Err: err}
}

// TooLarge represents an input whose estimated token count exceeds the
// selected model's configured cap.
func TooLarge(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusRequestEntityTooLarge, Message: message, Op: op, Err: err}
}

// Code returns the AppError code for err, or 500 if err is not (or does
// not wrap) an *AppError.
func Code(err error) int {
	var appErr *AppError
	for err != nil {
		if e, ok := err.(*AppError); ok {
			appErr = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if appErr == nil {
		return http.StatusInternalServerError
	}
	return appErr.Code
}

// Message returns the AppError message for err, or a generic message.
func Message(err error) string {
	var appErr *AppError
	for e := err; e != nil; {
		if ae, ok := e.(*AppError); ok {
			appErr = ae
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if appErr == nil {
		return "internal server error"
	}
	return appErr.Message
}
