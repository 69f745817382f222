package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"apexci/internal/config"
	"apexci/internal/domain"
	"apexci/internal/errors"
)

// SFClient drives `sf project deploy` with --json output.
type SFClient struct {
	Path      string
	TargetOrg string
	// Dir is the working directory of the CLI.
	Dir    string
	FS     afero.Fs
	Runner Runner
	Log    *logrus.Entry
}

// NewSFClient creates a client for the configured CLI and org.
func NewSFClient(cfg *config.Config, fs afero.Fs, log *logrus.Entry) *SFClient {
	return &SFClient{
		Path:      cfg.SFPath,
		TargetOrg: cfg.TargetOrg,
		Dir:       cfg.ProjectPath,
		FS:        fs,
		Runner:    &ExecRunner{},
		Log:       log,
	}
}

type startResult struct {
	ID     flexString `json:"id"`
	Done   flexBool   `json:"done"`
	Status flexString `json:"status"`
}

// Deploy writes zip to a temporary file, submits it asynchronously and removes the file again.
func (c *SFClient) Deploy(ctx context.Context, zip []byte, opts DeployOptions) (*AsyncResult, error) {
	const op = "sf project deploy start"

	tmp, err := afero.TempFile(c.FS, "", "apexci-*.zip")
	if err != nil {
		return nil, errors.WithStackTrace(err)
	}
	path := tmp.Name()
	defer func() {
		if err := c.FS.Remove(path); err != nil && !os.IsNotExist(err) {
			c.Log.Debugf("Could not remove %s: %v", path, err)
		}
	}()

	if _, err := tmp.Write(zip); err != nil {
		tmp.Close()
		return nil, errors.WithStackTrace(err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.WithStackTrace(err)
	}

	args := []string{"project", "deploy", "start", "--metadata-dir", path, "--async", "--json"}
	if opts.TestLevel != "" {
		args = append(args, "--test-level", opts.TestLevel)
	}
	for _, test := range opts.RunTests {
		args = append(args, "--tests", test)
	}
	if opts.CheckOnly {
		args = append(args, "--dry-run")
	}
	if opts.SinglePackage {
		args = append(args, "--single-package")
	}
	if opts.IgnoreWarnings {
		args = append(args, "--ignore-warnings")
	}

	env, err := c.run(ctx, op, args...)
	if err != nil {
		return nil, err
	}

	var res startResult
	if err := json.Unmarshal(env.Result, &res); err != nil {
		return nil, &RemoteServiceError{Op: op, Message: "unreadable deploy id", Err: err}
	}
	if res.ID == "" {
		return nil, &RemoteServiceError{Op: op, Message: "no deploy id returned"}
	}
	c.Log.Debugf("Deploy %s submitted", res.ID)

	return &AsyncResult{ID: string(res.ID), Done: bool(res.Done), Status: string(res.Status)}, nil
}

// CheckDeployStatus reports on a deploy. Without includeDetails the component failures and the
// test run are dropped.
func (c *SFClient) CheckDeployStatus(ctx context.Context, id string, includeDetails bool) (*domain.DeployResult, error) {
	const op = "sf project deploy report"

	env, err := c.run(ctx, op, "project", "deploy", "report", "--job-id", id, "--json")
	if err != nil {
		return nil, err
	}

	result, err := parseDeployResult(env.Result)
	if err != nil {
		return nil, &RemoteServiceError{Op: op, Message: "unreadable deploy status", Err: err}
	}
	if !includeDetails {
		result.Details = domain.DeployDetails{}
	}

	return result, nil
}

func (c *SFClient) run(ctx context.Context, op string, args ...string) (*Envelope, error) {
	if c.TargetOrg != "" {
		args = append(args, "--target-org", c.TargetOrg)
	}
	c.Log.Debugf("Running %s %v", c.Path, args)

	out, runErr := c.Runner.Run(ctx, c.Dir, c.Path, args...)
	if len(bytes.TrimSpace(out)) == 0 {
		if runErr == nil {
			runErr = errors.New("no output")
		}
		return nil, &RemoteServiceError{Op: op, Err: runErr}
	}

	env, err := Decode(bytes.NewReader(out), op)
	if err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, &RemoteServiceError{Op: op, Message: env.Message, Err: runErr}
	}
	for _, w := range env.Warnings {
		c.Log.Warn(w)
	}

	return env, nil
}
