package errors

import (
	"fmt"
	"strings"
)

// CloneError is a per-repository failure from the clone or LFS step.
type CloneError struct {
	Kind     Kind   // KindClone or KindLFS
	Repo     string
	ExitCode int    // -1 when the process never started
	Stderr   string // captured, token-redacted
	Err      error
}

func (e *CloneError) Error() string {
	step := "clone"
	if e.Kind == KindLFS {
		step = "lfs pull"
	}
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s %s failed (exit %d): %s", step, e.Repo, e.ExitCode, detail)
	}
	return fmt.Sprintf("%s %s failed: %s", step, e.Repo, detail)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}

// Is matches ErrCloneFailure and ErrLFSFailure by Kind.
func (e *CloneError) Is(target error) bool {
	t, ok := target.(*CloneError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrCloneFailure = &CloneError{Kind: KindClone}
	ErrLFSFailure   = &CloneError{Kind: KindLFS}
)

// NewCloneFailure creates a CloneError for the clone step.
func NewCloneFailure(repo string, exitCode int, stderr string, err error) *CloneError {
	return &CloneError{Kind: KindClone, Repo: repo, ExitCode: exitCode, Stderr: stderr, Err: err}
}

// NewLFSFailure creates a CloneError for the LFS pull step.
func NewLFSFailure(repo string, exitCode int, stderr string, err error) *CloneError {
	return &CloneError{Kind: KindLFS, Repo: repo, ExitCode: exitCode, Stderr: stderr, Err: err}
}

// IsAlreadyExists reports whether a clone failed because its destination was occupied.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "already exists")
}
