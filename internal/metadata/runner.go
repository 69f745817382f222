package metadata

import (
	"context"
	"os"
	"os/exec"
)

// Runner runs a command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Env is appended to the current environment.
	Env []string
}

// Run executes name in dir. The sf CLI reports failures as JSON on stdout with a non-zero exit
// code, so stdout is returned together with the error.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Dir = dir

	return cmd.Output()
}
