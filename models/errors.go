package models

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Error taxonomy shared by the storage, service and transport layers.
// Match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPersistence  = errors.New("persistence error")
)

// NotFound reports a missing record of the named kind.
func NotFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// Invalid reports malformed or missing input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Persistence wraps a storage fault. The cause stays reachable through
// errors.Is/As and carries a stack trace for %+v logging.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, pkgerrors.Wrap(err, op))
}

// PublicMessage is the text safe to return to a client for err.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrPersistence):
		return "internal server error"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
