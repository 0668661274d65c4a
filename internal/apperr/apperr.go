// Package apperr classifies failures into the three kinds the API surfaces:
// validation (400), not found (404) and store (500).
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store failure")
)

// Error is a classified failure. Message is safe to return to callers.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == ErrStore && e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a validation error wrapping cause.
func Validation(cause error, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NotFound returns a not-found error wrapping cause.
func NotFound(cause error, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...), Err: cause}
}

// Store wraps a persistence failure. Errors that are already classified pass through.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStore, Message: op, Err: err}
}

// Kind reports the classification of err, defaulting to ErrStore for unclassified errors.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	default:
		return ErrStore
	}
}
