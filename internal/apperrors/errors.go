// Package apperrors defines the failure kinds shared by services, repositories and
// handlers. Every specific error wraps exactly one kind so callers can branch with
// errors.Is on either the kind or the specific failure.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kinds
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrForbidden       = errors.New("forbidden")
	ErrDependency      = errors.New("dependency failure")
)

// Validation family
var (
	ErrUnknownOrInactiveProduct     = kind(ErrValidation, "unknown or inactive product")
	ErrInvalidSelection             = kind(ErrValidation, "invalid selection")
	ErrMissingRequiredCustomization = kind(ErrValidation, "missing required customization")
	ErrInvalidStatus                = kind(ErrValidation, "invalid status")
	ErrTotalMismatch                = kind(ErrValidation, "total amount mismatch")
)

// Conflict family
var (
	ErrAlreadyRefunded      = kind(ErrConflict, "order already refunded")
	ErrEmailTaken           = kind(ErrConflict, "email already registered")
	ErrAdminExists          = kind(ErrConflict, "admin already exists")
	ErrDuplicateOrderNumber = kind(ErrConflict, "duplicate order number")
)

type kindError struct {
	kind error
	msg  string
}

func kind(k error, msg string) error {
	return &kindError{kind: k, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// ValidationError carries the offending field so the caller can correct the request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// Invalid builds a ValidationError of the given specific kind.
func Invalid(specific error, field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: specific}
}

// AsValidation unwraps a ValidationError if err carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// TotalMismatchError reports a disagreement between the client total and the
// server-computed total.
type TotalMismatchError struct {
	Expected decimal.Decimal `json:"expected"`
	Received decimal.Decimal `json:"received"`
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total amount mismatch: expected %s, received %s",
		e.Expected.StringFixed(2), e.Received.StringFixed(2))
}

func (e *TotalMismatchError) Unwrap() error { return ErrTotalMismatch }

// AsTotalMismatch unwraps a TotalMismatchError if err carries one.
func AsTotalMismatch(err error) (*TotalMismatchError, bool) {
	var tm *TotalMismatchError
	if errors.As(err, &tm) {
		return tm, true
	}
	return nil, false
}

// NotFound wraps ErrNotFound with the entity name.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}

// Dependency marks err as a datastore or downstream failure.
func Dependency(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDependency, err)
}

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownOrInactiveProduct):
		return "UNKNOWN_OR_INACTIVE_PRODUCT"
	case errors.Is(err, ErrInvalidSelection):
		return "INVALID_SELECTION"
	case errors.Is(err, ErrMissingRequiredCustomization):
		return "MISSING_REQUIRED_CUSTOMIZATION"
	case errors.Is(err, ErrInvalidStatus):
		return "INVALID_STATUS"
	case errors.Is(err, ErrTotalMismatch):
		return "TOTAL_MISMATCH"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyRefunded):
		return "ALREADY_REFUNDED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrInvalidToken):
		return "INVALID_TOKEN"
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrDependency):
		return "DEPENDENCY_FAILURE"
	default:
		return "INTERNAL"
	}
}
