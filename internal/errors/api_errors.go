package errors

import (
	"fmt"
	"net/http"
)

// APIError represents a failed GitHub API call
type APIError struct {
	Op      string // Operation that failed
	Kind    Kind
	Status  int    // HTTP status code (if applicable)
	Message string // Error message
	Err     error  // Underlying error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: %s (HTTP %d)", e.Op, e.Kind, msg, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel errors below by Kind.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for use with errors.Is
var (
	ErrAuth      = &APIError{Kind: KindAuth, Message: "bad or missing token"}
	ErrNotFound  = &APIError{Kind: KindNotFound, Message: "resource not found"}
	ErrTransient = &APIError{Kind: KindTransient, Message: "network or server error"}
	ErrParse     = &APIError{Kind: KindParse, Message: "malformed response"}
)

// KindForStatus maps an HTTP status code onto the error taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindOther
	}
}

// NewHTTPError creates an APIError classified by status.
func NewHTTPError(op string, status int, message string, err error) *APIError {
	return &APIError{
		Op:      op,
		Kind:    KindForStatus(status),
		Status:  status,
		Message: message,
		Err:     err,
	}
}

// NewTransportError creates a TransientError for a request that never got a response.
func NewTransportError(op string, err error) *APIError {
	return &APIError{
		Op:   op,
		Kind: KindTransient,
		Err:  err,
	}
}

// NewParseError reports a required field missing from an API object.
func NewParseError(op, object, field string) *APIError {
	return &APIError{
		Op:      op,
		Kind:    KindParse,
		Message: fmt.Sprintf("%s is missing required field %q", object, field),
	}
}
