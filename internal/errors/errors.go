// Package errors wraps errors with stack traces and collects multiple failures into one error.
package errors

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// New creates an error carrying the caller's stack trace.
func New(message string) error {
	return goerrors.Wrap(errors.New(message), 1)
}

// Errorf formats a message like fmt.Errorf (including %w) and attaches a stack trace.
func Errorf(format string, args ...any) error {
	return goerrors.Wrap(fmt.Errorf(format, args...), 1)
}

// WithStackTrace attaches a stack trace to err. A nil err stays nil.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}

	return goerrors.Wrap(err, 1)
}

// StackTrace returns the recorded call stack of err, or an empty string when none was recorded.
func StackTrace(err error) string {
	var goErr *goerrors.Error
	if errors.As(err, &goErr) {
		return string(goErr.Stack())
	}

	return ""
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
