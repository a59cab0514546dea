package git

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// Runner executes a git subcommand in dir and reports its stderr and exit
// code. exitCode is -1 when the process could not be started.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, args ...string) (stderr string, exitCode int, err error)
}

// ExecRunner runs the real git binary.
type ExecRunner struct {
	Binary string // defaults to "git"
}

// Run implements Runner. It blocks until git exits.
func (r ExecRunner) Run(ctx context.Context, dir string, env []string, args ...string) (string, int, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stderr.String(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stderr.String(), exitErr.ExitCode(), err
	}
	return stderr.String(), -1, err
}
