// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer
// maps them to status codes and machine-readable codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates records that break domain rules.
	KindValidation
	// KindSchema indicates an upstream payload with an unexpected structure.
	KindSchema
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindUpstream indicates the external data source could not be reached or failed.
	KindUpstream
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindForbidden indicates the action is not allowed for the caller.
	KindForbidden
	// KindTooManyRequests indicates the caller exceeded a rate limit.
	KindTooManyRequests
	// KindInternal indicates an unexpected internal or storage error.
	KindInternal
)

var kindCodes = map[Kind]string{
	KindUnknown:         "unknown",
	KindNotFound:        "not_found",
	KindValidation:      "validation_failed",
	KindSchema:          "invalid_upstream_payload",
	KindBadRequest:      "bad_request",
	KindUpstream:        "upstream_unavailable",
	KindUnauthorized:    "unauthorized",
	KindForbidden:       "forbidden",
	KindTooManyRequests: "rate_limited",
	KindInternal:        "internal_error",
}

// String returns the stable code for the kind.
func (k Kind) String() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknown]
}

// Retryable reports whether a later attempt may succeed without changing the input.
func (k Kind) Retryable() bool {
	return k == KindUpstream || k == KindInternal
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable code of the error kind.
func (e *Error) Code() string {
	return e.Kind.String()
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindSchema:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets the response details and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a domain validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Schema creates an upstream payload structure error.
func Schema(message string) *Error {
	return New(KindSchema, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Upstream wraps a failure of the external data source.
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// TooManyRequests creates a rate limit error.
func TooManyRequests(message string) *Error {
	return New(KindTooManyRequests, message)
}

// Internal wraps an unexpected internal or storage error.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err carries an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
