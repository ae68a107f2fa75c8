// Package deployer runs the multi-system deployment sequence for a project:
// bundle build, content-store upload, ledger writes, then local save or
// remote submission. This is part of the Imperative Shell - it composes the
// side-effecting clients around the pure core.
package deployer

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidMode is returned for an unknown execution mode.
	ErrInvalidMode = errors.New("invalid execution mode")

	// ErrNotOwner is returned when the caller does not own the project.
	// Rejected before any network or chain call is made.
	ErrNotOwner = errors.New("caller is not the project owner")

	// ErrInvalidConfiguration is returned when the project fails deploy-time
	// validation. The wrapped message lists every problem found.
	ErrInvalidConfiguration = errors.New("project configuration invalid")

	// ErrDeployInProgress is returned when another deployment of the same
	// project is still running.
	ErrDeployInProgress = errors.New("deployment already in progress")

	// ErrUploadFailed is returned when the content-store upload failed. The
	// upload is the one step nothing else can proceed without.
	ErrUploadFailed = errors.New("bundle upload failed")

	// ErrBundleFailed is returned when the bundle could not be built.
	ErrBundleFailed = errors.New("bundle construction failed")

	// ErrPersistFailed is returned when the attempt ran but the resulting
	// project state could not be written back.
	ErrPersistFailed = errors.New("failed to persist project state")
)

// DeployError wraps errors with additional context.
type DeployError struct {
	Op        string
	ProjectID string
	Message   string
	Err       error
}

func (e *DeployError) Error() string {
	if e.ProjectID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ProjectID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// NewDeployError creates a new DeployError.
func NewDeployError(op, projectID, message string, err error) *DeployError {
	return &DeployError{
		Op:        op,
		ProjectID: projectID,
		Message:   message,
		Err:       err,
	}
}
