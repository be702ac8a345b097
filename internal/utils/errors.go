package utils

import (
	"errors"
	"strings"
)

// Common application errors used across services.
var (
	ErrValidation           = errors.New("VALIDATION_ERROR")
	ErrOrganizationNotFound = errors.New("ORGANIZATION_NOT_FOUND")
	ErrGatewayNotFound      = errors.New("GATEWAY_NOT_FOUND")
	ErrTokenNotFound        = errors.New("TOKEN_NOT_FOUND")
	ErrGatewayNameExists    = errors.New("GATEWAY_NAME_EXISTS")
	ErrTooManyActiveTokens  = errors.New("TOO_MANY_ACTIVE_TOKENS")
	ErrInvalidToken         = errors.New("INVALID_TOKEN")
	ErrTokenRevoked         = errors.New("TOKEN_REVOKED")
	ErrTokenGatewayNotFound = errors.New("TOKEN_GATEWAY_NOT_FOUND")
	ErrUnauthorized         = errors.New("UNAUTHORIZED")
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries the field-level reasons a request was rejected.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds at least one field error, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsAuthFailure reports whether err is one of the verification failures that
// must be surfaced to callers as a uniform INVALID_TOKEN.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrTokenGatewayNotFound)
}
