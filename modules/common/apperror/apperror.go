package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind - category of a failure, decided once where the failure happens
type Kind string

const (
	KindConfiguration   Kind = "CONFIGURATION"
	KindValidation      Kind = "VALIDATION"
	KindEncoding        Kind = "ENCODING"
	KindUpstreamTimeout Kind = "UPSTREAM_TIMEOUT"
	KindUpstreamAuth    Kind = "UPSTREAM_AUTH"
	KindUpstreamQuota   Kind = "UPSTREAM_QUOTA"
	KindEmptyResponse   Kind = "EMPTY_RESPONSE"
	KindSchemaViolation Kind = "SCHEMA_VIOLATION"
	KindUnknownUpstream Kind = "UNKNOWN_UPSTREAM"
	KindConflict        Kind = "CONFLICT"
	KindNotFound        Kind = "NOT_FOUND"
)

// Error - typed error carried from the failure site to the HTTP layer
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New - error of the given kind
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func MissingCredential() *Error {
	return New(KindConfiguration, "API key not configured on server", nil)
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...), nil)
}

func Encoding(err error) *Error {
	return New(KindEncoding, "failed to read image", err)
}

func EmptyResponse() *Error {
	return New(KindEmptyResponse, "no response from AI", nil)
}

func SchemaViolation(err error) *Error {
	return New(KindSchemaViolation, "AI response did not match the expected schema", err)
}

func Conflict(message string) *Error {
	return New(KindConflict, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

// KindOf - kind of the first *Error in the chain, KindUnknownUpstream otherwise
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknownUpstream
}

// MessageOf - user facing message of the first *Error in the chain
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An unexpected error occurred."
}

// HTTPStatus - response status for a kind
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindEncoding:
		return http.StatusBadRequest
	case KindUpstreamAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamQuota:
		return http.StatusTooManyRequests
	case KindEmptyResponse, KindSchemaViolation:
		return http.StatusBadGateway
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
