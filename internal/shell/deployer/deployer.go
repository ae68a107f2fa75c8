package deployer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dalproject/dald/internal/core/attempt"
	"github.com/dalproject/dald/internal/core/bundle"
	"github.com/dalproject/dald/internal/core/project"
	"github.com/dalproject/dald/internal/shell/ipfs"
	"github.com/dalproject/dald/internal/shell/ledger"
	"github.com/dalproject/dald/internal/shell/mirror"
	"github.com/dalproject/dald/internal/shell/store"
	"github.com/dalproject/dald/internal/shell/submit"
)

// =============================================================================
// Dependencies
// =============================================================================

// ContentStore uploads bundles and fetches dataset payloads.
type ContentStore interface {
	Upload(ctx context.Context, files []bundle.FileEntry) (string, error)
	Download(ctx context.Context, hash string) ([]byte, error)
}

// LocalSaver writes a bundle into the local engine directory.
type LocalSaver interface {
	SaveLocally(projectID string, b *bundle.Bundle, datasets map[string][]byte) (*mirror.SaveResult, error)
}

// RemoteSubmitter hands workflows to the remote execution service.
type RemoteSubmitter interface {
	Submit(ctx context.Context, req submit.SubmitRequest) (*submit.SubmitResponse, error)
}

// =============================================================================
// Deployer
// =============================================================================

// Deployer coordinates one deployment attempt across the content store, the
// ledger, and the chosen execution target. Steps after the upload are
// continue-class: a failure is recorded on the attempt and the remaining
// steps still run. Only a failed upload aborts.
type Deployer struct {
	repo      store.Repository
	content   ContentStore
	ledger    ledger.Ledger
	mirror    LocalSaver
	submitter RemoteSubmitter
	locks     *projectLocks
	logger    *slog.Logger
}

// NewDeployer creates a deployer over the given clients. The ledger,
// mirror, and submitter may each be nil when that capability is not
// configured; the matching steps then record as failed or skipped.
func NewDeployer(repo store.Repository, content ContentStore, chain ledger.Ledger, saver LocalSaver, submitter RemoteSubmitter, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		repo:      repo,
		content:   content,
		ledger:    chain,
		mirror:    saver,
		submitter: submitter,
		locks:     newProjectLocks(),
		logger:    logger,
	}
}

// Deploy runs the full sequence for one project and returns the per-step
// record. A non-nil error means the attempt aborted (or never started);
// continue-class step failures are reported on the attempt with a nil error.
//
// Guarantees:
//   - a caller who is not the owner triggers no remote call of any kind
//   - the project is marked deployed if and only if the upload succeeded
//   - a deployed project never regresses to not-deployed
//   - steps never reached are recorded skipped, not failed
func (d *Deployer) Deploy(ctx context.Context, projectID, identity string, mode attempt.ExecutionMode) (*attempt.Attempt, error) {
	if !mode.IsValid() {
		return nil, NewDeployError("Deploy", projectID, string(mode), ErrInvalidMode)
	}
	if !d.locks.tryAcquire(projectID) {
		return nil, NewDeployError("Deploy", projectID, "another deployment is running", ErrDeployInProgress)
	}
	defer d.locks.release(projectID)

	att := attempt.New(uuid.NewString(), projectID, mode)
	att.StartedAt = time.Now().UTC()
	d.logger.Info("deployment started",
		"attempt_id", att.ID,
		"project_id", projectID,
		"mode", string(mode),
	)

	// abort closes out the attempt: steps never reached stay skipped and
	// the top-level error is recorded, so even rejected calls return the
	// full per-step record.
	abort := func(err error) (*attempt.Attempt, error) {
		att.Error = err.Error()
		att.SkipPending()
		att.FinishedAt = time.Now().UTC()
		return att, err
	}

	cfg, err := d.repo.GetProject(ctx, projectID)
	if err != nil {
		return abort(NewDeployError("Deploy", projectID, "load project", err))
	}
	if !cfg.IsOwnedBy(identity) {
		return abort(NewDeployError("Deploy", projectID, "identity "+identity, ErrNotOwner))
	}
	if result := project.ValidateForDeploy(cfg); !result.Valid {
		return abort(NewDeployError("Deploy", projectID, strings.Join(result.Problems, "; "), ErrInvalidConfiguration))
	}

	b, err := bundle.Build(cfg)
	if err != nil {
		return abort(NewDeployError("Deploy", projectID, err.Error(), ErrBundleFailed))
	}

	hash, err := d.content.Upload(ctx, b.Files())
	if err != nil {
		att.Fail(attempt.StepIPFSUpload, uploadReason(err), err)
		d.logger.Error("upload failed, aborting deployment",
			"attempt_id", att.ID,
			"project_id", projectID,
			"error", err,
		)
		return abort(NewDeployError("Deploy", projectID, err.Error(), ErrUploadFailed))
	}
	att.Succeed(attempt.StepIPFSUpload)
	att.ContentHash = hash

	if canceled(ctx, att) {
		return att, d.persistAfterCancel(cfg, att)
	}

	d.runLedgerSteps(ctx, cfg, att, hash)

	if canceled(ctx, att) {
		return att, d.persistAfterCancel(cfg, att)
	}

	switch mode {
	case attempt.ModeLocal:
		att.Skip(attempt.StepRemoteSubmit)
		d.runLocalSave(ctx, cfg, att, b)
	case attempt.ModeRemote:
		att.Skip(attempt.StepLocalSave)
		d.runRemoteSubmit(ctx, cfg, att, b, hash)
	}

	att.FinishedAt = time.Now().UTC()

	if err := d.persist(ctx, cfg, att); err != nil {
		return att, NewDeployError("Deploy", projectID, err.Error(), ErrPersistFailed)
	}

	d.logger.Info("deployment finished",
		"attempt_id", att.ID,
		"project_id", projectID,
		"content_hash", att.ContentHash,
		"steps", att.Steps,
	)
	return att, nil
}

// =============================================================================
// Ledger Steps
// =============================================================================

// runLedgerSteps records the bundle hash on-chain and, for extensions that
// need them, deploys the auxiliary contracts. Both are continue-class.
func (d *Deployer) runLedgerSteps(ctx context.Context, cfg *project.Configuration, att *attempt.Attempt, hash string) {
	if cfg.ChainAddress == "" || d.ledger == nil {
		att.Skip(attempt.StepExtensionContracts)
		att.Skip(attempt.StepLedgerUpdate)
		return
	}

	if cfg.Extension.RequiresChainContracts() {
		d.runExtensionDeploy(ctx, cfg, att, hash)
	} else {
		att.Skip(attempt.StepExtensionContracts)
	}

	receipt, err := d.ledger.UpdateContentHash(ctx, cfg.ChainAddress, hash)
	if err != nil {
		// a cancellation caught before the transaction was submitted means
		// the step never ran, not that it failed
		if ctx.Err() != nil {
			att.Skip(attempt.StepLedgerUpdate)
			return
		}
		att.Fail(attempt.StepLedgerUpdate, ledgerReason(err), err)
		d.logger.Warn("ledger hash update failed, continuing",
			"attempt_id", att.ID,
			"project_id", cfg.ID,
			"error", err,
		)
		return
	}
	att.Succeed(attempt.StepLedgerUpdate)
	d.logger.Info("content hash recorded on ledger",
		"attempt_id", att.ID,
		"project_id", cfg.ID,
		"tx_hash", receipt.TxHash,
		"block", receipt.BlockNumber,
	)
}

func (d *Deployer) runExtensionDeploy(ctx context.Context, cfg *project.Configuration, att *attempt.Attempt, hash string) {
	extensionCfg, err := json.Marshal(cfg.AL)
	if err != nil {
		att.Fail(attempt.StepExtensionContracts, "config", err)
		return
	}

	addrs, err := d.ledger.DeployExtensionContracts(ctx, ledger.DeployExtensionRequest{
		ProjectAddress:  cfg.ChainAddress,
		ExtensionConfig: string(extensionCfg),
		BundleHash:      hash,
		Contributors:    cfg.Contributors,
		Nonce:           uint64(att.StartedAt.UnixNano()),
	})
	if errors.Is(err, ledger.ErrAlreadyDeployed) {
		att.Skip(attempt.StepExtensionContracts)
		if addrs != nil {
			att.ContractAddresses = addrs.Map()
		}
		d.logger.Info("extension contracts already deployed, skipping",
			"attempt_id", att.ID,
			"project_id", cfg.ID,
		)
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			att.Skip(attempt.StepExtensionContracts)
			return
		}
		att.Fail(attempt.StepExtensionContracts, ledgerReason(err), err)
		d.logger.Warn("extension contract deployment failed, continuing",
			"attempt_id", att.ID,
			"project_id", cfg.ID,
			"error", err,
		)
		return
	}
	att.Succeed(attempt.StepExtensionContracts)
	att.ContractAddresses = addrs.Map()
}

// =============================================================================
// Execution Target Steps
// =============================================================================

func (d *Deployer) runLocalSave(ctx context.Context, cfg *project.Configuration, att *attempt.Attempt, b *bundle.Bundle) {
	if d.mirror == nil {
		att.Fail(attempt.StepLocalSave, "unavailable", errors.New("no local engine configured"))
		return
	}

	datasets, err := d.resolveDatasets(ctx, cfg)
	if err != nil {
		att.Fail(attempt.StepLocalSave, "dataset_fetch", err)
		return
	}

	result, err := d.mirror.SaveLocally(cfg.ID, b, datasets)
	if errors.Is(err, mirror.ErrEngineUnavailable) {
		att.Fail(attempt.StepLocalSave, "unavailable", err)
		return
	}
	if err != nil {
		att.Fail(attempt.StepLocalSave, "write", err)
		return
	}
	att.Succeed(attempt.StepLocalSave)
	att.LocalPath = result.Path
}

// resolveDatasets fetches payload bytes for every dataset pinned by content
// hash. Externally referenced datasets stay references; the engine fetches
// those itself.
func (d *Deployer) resolveDatasets(ctx context.Context, cfg *project.Configuration) (map[string][]byte, error) {
	datasets := make(map[string][]byte)
	for _, ds := range cfg.Datasets {
		if ds.ContentHash == "" {
			continue
		}
		data, err := d.content.Download(ctx, ds.ContentHash)
		if err != nil {
			return nil, err
		}
		datasets[bundle.DatasetPath(ds)] = data
	}
	return datasets, nil
}

func (d *Deployer) runRemoteSubmit(ctx context.Context, cfg *project.Configuration, att *attempt.Attempt, b *bundle.Bundle, hash string) {
	if d.submitter == nil {
		att.Fail(attempt.StepRemoteSubmit, "unavailable", errors.New("no remote engine configured"))
		return
	}

	workflow, ok := b.File(bundle.PathALWorkflow)
	if !ok {
		att.Fail(attempt.StepRemoteSubmit, "no_workflow", errors.New("bundle contains no workflow definition"))
		return
	}
	inputs, _ := b.File(bundle.PathALInputs)

	resp, err := d.submitter.Submit(ctx, submit.SubmitRequest{
		ProjectID:   cfg.ID,
		CWLWorkflow: string(workflow.Content),
		Inputs:      string(inputs.Content),
		Metadata: map[string]string{
			"content_hash":   hash,
			"execution_mode": string(attempt.ModeRemote),
		},
	})
	if err != nil {
		att.Fail(attempt.StepRemoteSubmit, submitReason(err), err)
		d.logger.Warn("remote submission failed, continuing",
			"attempt_id", att.ID,
			"project_id", cfg.ID,
			"error", err,
		)
		return
	}
	att.Succeed(attempt.StepRemoteSubmit)
	att.WorkflowID = resp.WorkflowID
}

// =============================================================================
// Persistence
// =============================================================================

// persist writes the new content hash and lifecycle status back. The upload
// is the sole gate: once it succeeded the project is deployed no matter what
// the later steps did, and an already-deployed project never moves back.
func (d *Deployer) persist(ctx context.Context, cfg *project.Configuration, att *attempt.Attempt) error {
	if !att.Uploaded() {
		return nil
	}
	cfg.ContentHash = att.ContentHash
	cfg.Status = project.StatusDeployed
	cfg.UpdatedAt = time.Now().UTC()
	return d.repo.SaveProject(ctx, cfg)
}

// persistAfterCancel still records the deployed state: the upload already
// happened, cancellation only stopped the follow-up steps. Uses a fresh
// context because the caller's is already dead.
func (d *Deployer) persistAfterCancel(cfg *project.Configuration, att *attempt.Attempt) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.persist(ctx, cfg, att); err != nil {
		return NewDeployError("Deploy", cfg.ID, err.Error(), ErrPersistFailed)
	}
	return nil
}

// canceled handles context cancellation between steps: everything not yet
// reached is skipped and the attempt is closed out.
func canceled(ctx context.Context, att *attempt.Attempt) bool {
	if ctx.Err() == nil {
		return false
	}
	att.Error = ctx.Err().Error()
	att.SkipPending()
	att.FinishedAt = time.Now().UTC()
	return true
}

// =============================================================================
// Reason Categorization
// =============================================================================

func uploadReason(err error) string {
	switch {
	case errors.Is(err, ipfs.ErrAuthFailed):
		return "auth"
	case errors.Is(err, ipfs.ErrTooLarge):
		return "oversize"
	default:
		return "network"
	}
}

func ledgerReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		return "auth"
	case errors.Is(err, ledger.ErrReverted):
		return "revert"
	case errors.Is(err, ledger.ErrTimeout):
		return "timeout"
	case errors.Is(err, ledger.ErrNoChainAddress):
		return "config"
	default:
		return "network"
	}
}

func submitReason(err error) string {
	switch {
	case errors.Is(err, submit.ErrTimeout):
		return "timeout"
	case errors.Is(err, submit.ErrRejected):
		return "rejected"
	default:
		return "network"
	}
}
