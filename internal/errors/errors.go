// Package errors defines the error taxonomy shared by the fetch and clone
// phases. Fetch-phase errors (APIError) abort a run; clone-phase errors
// (CloneError) are recorded per repository and reported at the end.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for reporting and exit handling.
type Kind int

const (
	KindOther Kind = iota
	KindAuth
	KindNotFound
	KindTransient
	KindParse
	KindClone
	KindLFS
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "authentication error"
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "transient error"
	case KindParse:
		return "parse error"
	case KindClone:
		return "clone failure"
	case KindLFS:
		return "lfs failure"
	default:
		return "error"
	}
}

// OperationError represents an error that occurred during a named operation
type OperationError struct {
	Op  string // The operation being performed
	Err error  // The underlying error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	return e.Err
}

// New creates a new OperationError
func New(op string, err error) *OperationError {
	return &OperationError{
		Op:  op,
		Err: err,
	}
}

// Is matches another OperationError with the same Op.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	return e.Op == t.Op
}

// KindOf reports the Kind of the first APIError or CloneError in err's chain.
func KindOf(err error) Kind {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var cloneErr *CloneError
	if stderrors.As(err, &cloneErr) {
		return cloneErr.Kind
	}
	return KindOther
}

// IsAuth reports whether err is a bad or missing credentials error.
func IsAuth(err error) bool { return err != nil && KindOf(err) == KindAuth }

// IsNotFound reports whether err means the user or repository does not exist.
func IsNotFound(err error) bool { return err != nil && KindOf(err) == KindNotFound }

// IsTransient reports whether err is a network or server-side failure.
func IsTransient(err error) bool { return err != nil && KindOf(err) == KindTransient }

// IsParse reports whether err is a malformed API payload.
func IsParse(err error) bool { return err != nil && KindOf(err) == KindParse }

// IsCloneFailure reports whether err came from the clone step.
func IsCloneFailure(err error) bool { return err != nil && KindOf(err) == KindClone }

// IsLFSFailure reports whether err came from the LFS pull step.
func IsLFSFailure(err error) bool { return err != nil && KindOf(err) == KindLFS }

// ExitCode maps an error to a process exit status: 0 for nil, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
