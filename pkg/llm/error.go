// Package llm provides the internal representations of generation requests,
// responses and conversation turns shared by the remote and local adapters.
package llm

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/parley/pkg/backend"
)

// ErrorResponse represents an error returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorKind classifies a failure at the adapter boundary.
type ErrorKind int

const (
	// KindMissingDependency means the adapter for the selected backend is not available.
	KindMissingDependency ErrorKind = iota + 1

	// KindMissingCredential means the remote backend was selected without an API key.
	KindMissingCredential

	// KindRequestFailed wraps a network, provider or generation failure.
	KindRequestFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingDependency:
		return "missing_dependency"
	case KindMissingCredential:
		return "missing_credential"
	case KindRequestFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// AdapterError is the tagged failure produced by a generation adapter call.
// It is rendered to display text only when the assistant turn is appended;
// see Diagnostic.
type AdapterError struct {
	Backend backend.Backend
	Kind    ErrorKind
	Err     error // Underlying error (may be nil).
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s backend: %s", e.Backend, e.Kind)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a tagged adapter error.
func NewAdapterError(b backend.Backend, kind ErrorKind, err error) *AdapterError {
	return &AdapterError{Backend: b, Kind: kind, Err: err}
}

// IsMissingDependency reports whether err is a missing-adapter failure.
func IsMissingDependency(err error) bool {
	return hasKind(err, KindMissingDependency)
}

// IsMissingCredential reports whether err is a missing-credential failure.
func IsMissingCredential(err error) bool {
	return hasKind(err, KindMissingCredential)
}

// IsRequestFailed reports whether err is a transient request or generation failure.
func IsRequestFailed(err error) bool {
	return hasKind(err, KindRequestFailed)
}

func hasKind(err error, kind ErrorKind) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Kind == kind
}
