// Package attempt contains the deployment-attempt value types: the per-step
// outcome map and the rules for aggregating it. This is part of the
// Functional Core - all functions are pure with no I/O.
package attempt

import "time"

// =============================================================================
// Execution Mode
// =============================================================================

// ExecutionMode selects where the deployed workflow will run.
type ExecutionMode string

const (
	ModeLocal  ExecutionMode = "local"
	ModeRemote ExecutionMode = "remote"
)

// IsValid checks if the execution mode is known.
func (m ExecutionMode) IsValid() bool {
	return m == ModeLocal || m == ModeRemote
}

// =============================================================================
// Steps and Outcomes
// =============================================================================

// Step identifies one stage of a deployment attempt.
type Step string

const (
	StepIPFSUpload         Step = "ipfsUpload"
	StepExtensionContracts Step = "extensionContracts"
	StepLedgerUpdate       Step = "ledgerUpdate"
	StepLocalSave          Step = "localSave"
	StepRemoteSubmit       Step = "remoteSubmit"
)

// Steps lists every step in execution order.
func Steps() []Step {
	return []Step{
		StepIPFSUpload,
		StepExtensionContracts,
		StepLedgerUpdate,
		StepLocalSave,
		StepRemoteSubmit,
	}
}

// Outcome is the recorded result of one step.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult is the recorded outcome of one step, with enough structured
// context for a targeted retry of just that step.
type StepResult struct {
	Outcome Outcome `json:"outcome"`
	// Reason categorizes a failure: network, auth, revert, timeout,
	// oversize, conflict. Empty for success and skipped.
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// =============================================================================
// Deployment Attempt
// =============================================================================

// Attempt is the full record of one orchestrator invocation. It is built up
// during the deploy call and immutable once the call returns. Only the
// content hash and lifecycle status are persisted back onto the project
// configuration; the attempt itself is returned to the caller.
type Attempt struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	Mode      ExecutionMode `json:"execution_mode"`

	Steps map[Step]StepResult `json:"steps"`

	// ContentHash is set when the upload step succeeded.
	ContentHash string `json:"content_hash,omitempty"`
	// ContractAddresses holds chain sub-contract addresses created by the
	// extension deployment, keyed by role (voting, storage).
	ContractAddresses map[string]string `json:"contract_addresses,omitempty"`
	// WorkflowID is the identifier returned by the remote orchestrator.
	WorkflowID string `json:"workflow_id,omitempty"`
	// LocalPath is the engine directory written by the local save step.
	LocalPath string `json:"local_path,omitempty"`

	// Error is the top-level abort reason; empty when the attempt ran to
	// completion (even with continue-class step failures).
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// New creates an attempt with every step pending.
func New(id, projectID string, mode ExecutionMode) *Attempt {
	steps := make(map[Step]StepResult, len(Steps()))
	for _, s := range Steps() {
		steps[s] = StepResult{Outcome: OutcomePending}
	}
	return &Attempt{
		ID:        id,
		ProjectID: projectID,
		Mode:      mode,
		Steps:     steps,
	}
}

// Record sets the outcome of one step.
func (a *Attempt) Record(step Step, result StepResult) {
	a.Steps[step] = result
}

// Succeed records a success for the step.
func (a *Attempt) Succeed(step Step) {
	a.Steps[step] = StepResult{Outcome: OutcomeSuccess}
}

// Fail records a failure with a reason category and error text.
func (a *Attempt) Fail(step Step, reason string, err error) {
	r := StepResult{Outcome: OutcomeFailed, Reason: reason}
	if err != nil {
		r.Error = err.Error()
	}
	a.Steps[step] = r
}

// Skip records a skipped step.
func (a *Attempt) Skip(step Step) {
	a.Steps[step] = StepResult{Outcome: OutcomeSkipped}
}

// SkipPending marks every step still pending as skipped. Used on abort and
// on cancellation: steps never reached are skipped, not failed.
func (a *Attempt) SkipPending() {
	for step, r := range a.Steps {
		if r.Outcome == OutcomePending {
			a.Steps[step] = StepResult{Outcome: OutcomeSkipped}
		}
	}
}

// Outcome returns the recorded outcome for a step.
func (a *Attempt) Outcome(step Step) Outcome {
	return a.Steps[step].Outcome
}

// Uploaded reports whether the content-store upload succeeded, the single
// gate for marking the project deployed.
func (a *Attempt) Uploaded() bool {
	return a.Steps[StepIPFSUpload].Outcome == OutcomeSuccess
}
