// Package ledger provides the on-chain client for project records: the
// content-hash pointer and the auxiliary extension contracts.
// This is part of the Imperative Shell - handles signed transactions and
// read-only contract calls.
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotAuthorized is returned when the signing identity is not the
	// project owner. No state-changing call is made in this case.
	ErrNotAuthorized = errors.New("signer is not the project owner")

	// ErrAlreadyDeployed is returned when extension contracts already exist
	// for the project. The caller records this as skipped, never failed.
	ErrAlreadyDeployed = errors.New("extension contracts already deployed")

	// ErrReverted is returned when a mined transaction reverted.
	ErrReverted = errors.New("transaction reverted")

	// ErrTimeout is returned when confirmation did not arrive in time.
	ErrTimeout = errors.New("transaction confirmation timed out")

	// ErrNetwork is returned for RPC transport failures.
	ErrNetwork = errors.New("ledger node unreachable")

	// ErrNoChainAddress is returned when the project has no base contract.
	ErrNoChainAddress = errors.New("project has no chain address")
)

// LedgerError wraps errors with additional context.
type LedgerError struct {
	Op      string // Operation that failed (e.g., "UpdateContentHash")
	Project string // Project contract address if applicable
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Project != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Project, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// NewLedgerError creates a new LedgerError.
func NewLedgerError(op, projectAddr, message string, err error) *LedgerError {
	return &LedgerError{
		Op:      op,
		Project: projectAddr,
		Message: message,
		Err:     err,
	}
}
