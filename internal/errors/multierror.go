package errors

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// MultiError collects the errors of independent steps that all run before failing.
type MultiError struct {
	inner *multierror.Error
}

// Append returns a MultiError holding the receiver's errors plus errs. Nil errors are skipped.
func (m *MultiError) Append(errs ...error) *MultiError {
	var inner *multierror.Error
	if m != nil {
		inner = m.inner
	}

	return &MultiError{inner: multierror.Append(inner, errs...)}
}

// ErrorOrNil returns nil when no error was appended.
func (m *MultiError) ErrorOrNil() error {
	if m == nil || m.inner == nil || len(m.inner.Errors) == 0 {
		return nil
	}

	return m
}

// WrappedErrors returns the collected errors.
func (m *MultiError) WrappedErrors() []error {
	if m == nil || m.inner == nil {
		return nil
	}

	return m.inner.WrappedErrors()
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (m *MultiError) Unwrap() []error {
	return m.WrappedErrors()
}

func (m *MultiError) Error() string {
	errs := m.WrappedErrors()
	if len(errs) == 1 {
		return errs[0].Error()
	}

	lines := make([]string, 0, len(errs))
	for _, err := range errs {
		lines = append(lines, "* "+strings.ReplaceAll(err.Error(), "\n", "\n  "))
	}

	return fmt.Sprintf("%d errors occurred:\n%s", len(errs), strings.Join(lines, "\n"))
}
