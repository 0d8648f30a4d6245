package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Canonical error codes rendered in the API error envelope.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeSubmissionFailed = "SUBMISSION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeInternal         = "INTERNAL"
	CodeRateLimited      = "RATE_LIMITED"
)

// AppError represents an error with an attached code and HTTP status.
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

// ValidationError reports the first field that violated an input constraint.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: violates %s", e.Field, e.Constraint)
}

// Invalid wraps a ValidationError for the given field into an AppError.
func Invalid(field, constraint string) *AppError {
	return AsAppError(&ValidationError{Field: field, Constraint: constraint})
}

// AsAppError converts a ValidationError into the canonical 400 response shape.
func AsAppError(v *ValidationError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    v.Error(),
		HTTPStatus: http.StatusBadRequest,
		Err:        v,
		Details: map[string]any{
			"field":      v.Field,
			"constraint": v.Constraint,
		},
	}
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NotFound wraps a NotFoundError into the canonical 404 response shape.
func NotFound(resource, id string) *AppError {
	nf := &NotFoundError{Resource: resource, ID: id}
	return &AppError{
		Code:       CodeNotFound,
		Message:    nf.Error(),
		HTTPStatus: http.StatusNotFound,
		Err:        nf,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}
