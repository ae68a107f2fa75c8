// Package ipfs provides the content-store client: bundle uploads against an
// IPFS node's HTTP API and content downloads through its gateways.
// This is part of the Imperative Shell - handles network I/O.
package ipfs

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

// The three failure classes the orchestrator distinguishes. Auth failures
// must not be retried against the same endpoint; oversize rejections are
// permanent for the given bundle; unavailability is the retryable class.
var (
	ErrAuthFailed  = errors.New("content store rejected credentials")
	ErrTooLarge    = errors.New("content store rejected payload size")
	ErrUnavailable = errors.New("content store unavailable")

	// ErrNotFound is returned by Download when every gateway returned 404.
	ErrNotFound = errors.New("content not found")
)

// ClientError wraps errors with additional context.
type ClientError struct {
	Op       string // Operation that failed (Upload, Download)
	Endpoint string // URL the failure came from
	Message  string
	Err      error
}

func (e *ClientError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError creates a new ClientError.
func NewClientError(op, endpoint, message string, err error) *ClientError {
	return &ClientError{
		Op:       op,
		Endpoint: endpoint,
		Message:  message,
		Err:      err,
	}
}
