package deploy

import (
	"fmt"
	"strings"

	"apexci/internal/coverage"
	"apexci/internal/domain"
)

// DeployFailedError is a deploy the service finished without success.
type DeployFailedError struct {
	ID              string
	Status          string
	Message         string
	ComponentErrors int
	TestFailures    int
}

func (e *DeployFailedError) Error() string {
	msg := fmt.Sprintf("deploy %s %s with %d component error(s) and %d test failure(s)",
		e.ID, strings.ToLower(e.Status), e.ComponentErrors, e.TestFailures)
	if e.Message != "" {
		msg += ": " + e.Message
	}

	return msg
}

func newDeployFailedError(r *domain.DeployResult) *DeployFailedError {
	err := &DeployFailedError{
		ID:              r.ID,
		Status:          r.Status,
		Message:         r.ErrorMessage,
		ComponentErrors: r.NumberComponentErrors,
	}
	if t := r.Details.RunTestResult; t != nil {
		err.TestFailures = t.NumFailures
	}

	return err
}

// CoverageError lists the classes and triggers below the minimum coverage.
type CoverageError struct {
	Min     float64
	Classes []domain.CoverageResult
}

func (e *CoverageError) Error() string {
	names := make([]string, 0, len(e.Classes))
	for _, c := range e.Classes {
		names = append(names, fmt.Sprintf("%s (%.2f%%)", c.QualifiedName(), coverage.Percentage(c)))
	}

	return fmt.Sprintf("%d class(es) below %.2f%% coverage: %s", len(e.Classes), e.Min, strings.Join(names, ", "))
}

// CleanupError is a failed removal of the generated test class. It is only logged.
type CleanupError struct {
	ClassName string
	Endpoint  string
	Err       error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("could not remove test class %s from %s, delete it manually: %v", e.ClassName, e.Endpoint, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
