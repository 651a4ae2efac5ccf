// Package apierror classifies failures into the HTTP-facing error taxonomy.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates error classes.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindUnprocessableEntity Kind = "unprocessable_entity"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindInternal            Kind = "internal"
)

// APIError is an error that is safe to show to clients.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Details any
	cause   error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// As extracts an *APIError from the chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewErrValidation(details any) *APIError {
	return &APIError{Kind: KindValidation, Status: http.StatusBadRequest, Message: "validation error", Details: details}
}

func NewErrUnprocessableEntity(message string) *APIError {
	return &APIError{Kind: KindUnprocessableEntity, Status: http.StatusUnprocessableEntity, Message: message}
}

func NewErrUnauthorized(message string) *APIError {
	return &APIError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: message}
}

func NewErrForbidden(message string) *APIError {
	return &APIError{Kind: KindForbidden, Status: http.StatusForbidden, Message: message}
}

// NewErrNotFound reports a missing resource by name, e.g. "user" or "secret key".
func NewErrNotFound(resource string) *APIError {
	return &APIError{Kind: KindNotFound, Status: http.StatusNotFound, Message: resource + " not found"}
}

func NewErrEmailIsTaken(email string) *APIError {
	return &APIError{Kind: KindConflict, Status: http.StatusConflict, Message: fmt.Sprintf("email %s is already taken", email)}
}

// NewErrInternalServerError hides cause behind a generic message.
func NewErrInternalServerError(cause error) *APIError {
	return &APIError{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "internal server error", cause: cause}
}

// Common unauthorized messages.
const (
	MsgMissingAuthorization = "missing or invalid authorization header"
	MsgInvalidToken         = "invalid token"
	MsgTokenExpired         = "token expired"
	MsgInvalidRefreshToken  = "invalid refresh token"
	MsgRefreshTokenExpired  = "refresh token expired"
	MsgInvalidCredentials   = "password is incorrect"
)
