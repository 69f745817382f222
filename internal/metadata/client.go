// Package metadata talks to the Salesforce metadata deploy service through the sf CLI.
package metadata

import (
	"context"
	"fmt"

	"apexci/internal/domain"
)

// Client submits metadata deploys and reports on them.
type Client interface {
	Deploy(ctx context.Context, zip []byte, opts DeployOptions) (*AsyncResult, error)
	CheckDeployStatus(ctx context.Context, id string, includeDetails bool) (*domain.DeployResult, error)
}

// DeployOptions are the deploy settings sent with a package.
type DeployOptions struct {
	TestLevel      string
	RunTests       []string
	CheckOnly      bool
	SinglePackage  bool
	IgnoreWarnings bool
}

// AsyncResult identifies a submitted deploy.
type AsyncResult struct {
	ID     string
	Done   bool
	Status string
}

// RemoteServiceError is a failed call to the deploy service.
type RemoteServiceError struct {
	Op      string
	Name    string
	Message string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Name, msg)
	}

	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}
