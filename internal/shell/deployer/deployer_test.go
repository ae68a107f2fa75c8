package deployer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
// Fakes
// =============================================================================

type fakeRepo struct {
	mu       sync.Mutex
	projects map[string]*project.Configuration
	getCalls int
	saved    []*project.Configuration
	saveErr  error
}

func newFakeRepo(cfgs ...*project.Configuration) *fakeRepo {
	r := &fakeRepo{projects: make(map[string]*project.Configuration)}
	for _, cfg := range cfgs {
		r.projects[cfg.ID] = cfg
	}
	return r
}

func (r *fakeRepo) CreateProject(_ context.Context, cfg *project.Configuration) error {
	r.projects[cfg.ID] = cfg
	return nil
}

func (r *fakeRepo) GetProject(_ context.Context, id string) (*project.Configuration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	cfg, ok := r.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

func (r *fakeRepo) SaveProject(_ context.Context, cfg *project.Configuration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := *cfg
	r.saved = append(r.saved, &clone)
	r.projects[cfg.ID] = &clone
	return nil
}

func (r *fakeRepo) DeleteProject(context.Context, string) error { return nil }
func (r *fakeRepo) ListProjects(context.Context, store.ListOptions) ([]project.Configuration, error) {
	return nil, nil
}
func (r *fakeRepo) ListProjectsByOwner(context.Context, string, store.ListOptions) ([]project.Configuration, error) {
	return nil, nil
}
func (r *fakeRepo) Close() error { return nil }

type fakeContent struct {
	uploads   int
	downloads int
	uploadErr error
	dlErr     error
	hash      string
	payloads  map[string][]byte
	gate      chan struct{} // when set, Upload blocks until closed
	onUpload  func()        // runs after the upload, before returning
}

func (c *fakeContent) Upload(_ context.Context, files []bundle.FileEntry) (string, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.uploads++
	if c.onUpload != nil {
		c.onUpload()
	}
	if c.uploadErr != nil {
		return "", c.uploadErr
	}
	if c.hash == "" {
		return "bafyroot", nil
	}
	return c.hash, nil
}

func (c *fakeContent) Download(_ context.Context, hash string) ([]byte, error) {
	c.downloads++
	if c.dlErr != nil {
		return nil, c.dlErr
	}
	if data, ok := c.payloads[hash]; ok {
		return data, nil
	}
	return []byte("payload:" + hash), nil
}

type fakeLedger struct {
	updates      int
	deploys      int
	onUpdate     func()
	updateErr    error
	deployErr    error
	existing     *ledger.ExtensionAddresses
	lastReq      ledger.DeployExtensionRequest
	lastHash     string
	signerIsOwn  bool
	signerChecks int
}

func (l *fakeLedger) SignerAddress() string { return "0xSigner" }

func (l *fakeLedger) IsOwner(context.Context, string, string) (bool, error) {
	l.signerChecks++
	return l.signerIsOwn, nil
}

func (l *fakeLedger) GetExtensionAddresses(context.Context, string) (*ledger.ExtensionAddresses, error) {
	return l.existing, nil
}

func (l *fakeLedger) UpdateContentHash(_ context.Context, _, hash string) (*ledger.TxReceipt, error) {
	l.updates++
	l.lastHash = hash
	if l.onUpdate != nil {
		l.onUpdate()
	}
	if l.updateErr != nil {
		return nil, l.updateErr
	}
	return &ledger.TxReceipt{TxHash: "0xtx", BlockNumber: 3, GasUsed: 42_000}, nil
}

func (l *fakeLedger) DeployExtensionContracts(_ context.Context, req ledger.DeployExtensionRequest) (*ledger.ExtensionAddresses, error) {
	l.deploys++
	l.lastReq = req
	if l.deployErr != nil {
		if errors.Is(l.deployErr, ledger.ErrAlreadyDeployed) {
			return l.existing, l.deployErr
		}
		return nil, l.deployErr
	}
	return &ledger.ExtensionAddresses{Voting: "0xV1", Storage: "0xS1"}, nil
}

type fakeSaver struct {
	calls   int
	err     error
	lastSet map[string][]byte
}

func (s *fakeSaver) SaveLocally(projectID string, b *bundle.Bundle, datasets map[string][]byte) (*mirror.SaveResult, error) {
	s.calls++
	s.lastSet = datasets
	if s.err != nil {
		return &mirror.SaveResult{Files: b.Files()}, s.err
	}
	return &mirror.SaveResult{Path: "/srv/engine/" + projectID, Written: true}, nil
}

type fakeSubmitter struct {
	calls   int
	err     error
	lastReq submit.SubmitRequest
}

func (s *fakeSubmitter) Submit(_ context.Context, req submit.SubmitRequest) (*submit.SubmitResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &submit.SubmitResponse{WorkflowID: "wf-42", Status: submit.StatusSubmitted}, nil
}

// =============================================================================
// Fixtures
// =============================================================================

func alProject() *project.Configuration {
	return &project.Configuration{
		ID:           "proj-1",
		Owner:        "0xAbCd000000000000000000000000000000000001",
		Name:         "sentiment-study",
		Extension:    project.ExtensionActiveLearning,
		ChainAddress: "0x00000000000000000000000000000000000000AA",
		Contributors: []string{"0x00000000000000000000000000000000000000D1"},
		Datasets: []project.Dataset{
			{Name: "reviews", Format: "csv", ContentHash: "bafyreviews"},
			{Name: "review-labels", Format: "csv", ContentHash: "bafylabels"},
			{Name: "unlabeled-reviews", Format: "csv", ContentHash: "bafypool"},
		},
		AL: &project.ALConfig{
			QueryStrategy:    "uncertainty_sampling",
			ALScenario:       "pool_based",
			ModelName:        "logreg",
			LabelSpace:       []string{"pos", "neg"},
			MaxIterations:    10,
			QueryBatchSize:   5,
			TrainingDataset:  "reviews",
			LabelsDataset:    "review-labels",
			UnlabeledDataset: "unlabeled-reviews",
		},
		Status: project.StatusNotDeployed,
	}
}

func plainProject() *project.Configuration {
	cfg := alProject()
	cfg.Extension = project.ExtensionNone
	cfg.AL = nil
	cfg.ChainAddress = ""
	return cfg
}

type harness struct {
	repo      *fakeRepo
	content   *fakeContent
	chain     *fakeLedger
	saver     *fakeSaver
	submitter *fakeSubmitter
	deployer  *Deployer
}

func newHarness(cfgs ...*project.Configuration) *harness {
	h := &harness{
		repo:      newFakeRepo(cfgs...),
		content:   &fakeContent{},
		chain:     &fakeLedger{signerIsOwn: true},
		saver:     &fakeSaver{},
		submitter: &fakeSubmitter{},
	}
	h.deployer = NewDeployer(h.repo, h.content, h.chain, h.saver, h.submitter, nil)
	return h
}

func owner() string { return "0xAbCd000000000000000000000000000000000001" }

// =============================================================================
// Guard Tests
// =============================================================================

func TestDeploy_InvalidMode(t *testing.T) {
	h := newHarness(alProject())

	_, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), "parallel")

	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestDeploy_ProjectNotFound(t *testing.T) {
	h := newHarness()

	_, err := h.deployer.Deploy(context.Background(), "ghost", owner(), attempt.ModeLocal)

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeploy_NotOwnerMakesNoRemoteCalls(t *testing.T) {
	h := newHarness(alProject())

	att, err := h.deployer.Deploy(context.Background(), "proj-1", "0xEve", attempt.ModeLocal)

	assert.ErrorIs(t, err, ErrNotOwner)
	require.NotNil(t, att)
	assert.NotEmpty(t, att.Error)
	for _, step := range attempt.Steps() {
		assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(step), string(step))
	}
	assert.Zero(t, h.content.uploads)
	assert.Zero(t, h.content.downloads)
	assert.Zero(t, h.chain.updates)
	assert.Zero(t, h.chain.deploys)
	assert.Zero(t, h.saver.calls)
	assert.Zero(t, h.submitter.calls)
}

func TestDeploy_OwnerCheckIsCaseInsensitive(t *testing.T) {
	h := newHarness(alProject())

	_, err := h.deployer.Deploy(context.Background(), "proj-1",
		"0xABCD000000000000000000000000000000000001", attempt.ModeLocal)

	assert.NoError(t, err)
}

func TestDeploy_InvalidConfigurationListsProblems(t *testing.T) {
	cfg := alProject()
	cfg.AL.QueryStrategy = ""
	cfg.AL.ModelName = ""
	h := newHarness(cfg)

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "query_strategy")
	assert.Contains(t, err.Error(), "model_name")
	assert.Zero(t, h.content.uploads)

	// even a rejected call reports the full per-step record
	require.NotNil(t, att)
	assert.NotEmpty(t, att.Error)
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepIPFSUpload))
}

func TestDeploy_SecondConcurrentDeployRejected(t *testing.T) {
	h := newHarness(alProject())
	h.content.gate = make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)
	}()

	require.Eventually(t, func() bool {
		h.repo.mu.Lock()
		defer h.repo.mu.Unlock()
		return h.repo.getCalls == 1
	}, time.Second, time.Millisecond)

	_, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)
	assert.ErrorIs(t, err, ErrDeployInProgress)

	close(h.content.gate)
	<-done
}

// =============================================================================
// Happy Path Tests
// =============================================================================

func TestDeploy_LocalALProject_AllStepsSucceed(t *testing.T) {
	h := newHarness(alProject())

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepIPFSUpload))
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepExtensionContracts))
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepLedgerUpdate))
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepLocalSave))
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepRemoteSubmit))

	assert.Equal(t, "bafyroot", att.ContentHash)
	assert.Equal(t, "0xV1", att.ContractAddresses["voting"])
	assert.Equal(t, "/srv/engine/proj-1", att.LocalPath)
	assert.Empty(t, att.Error)

	require.Len(t, h.repo.saved, 1)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
	assert.Equal(t, "bafyroot", h.repo.saved[0].ContentHash)
}

func TestDeploy_RemoteMode_SubmitsAndSkipsLocalSave(t *testing.T) {
	h := newHarness(alProject())

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeRemote)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepRemoteSubmit))
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepLocalSave))
	assert.Equal(t, "wf-42", att.WorkflowID)
	assert.Zero(t, h.saver.calls)

	assert.Equal(t, "proj-1", h.submitter.lastReq.ProjectID)
	assert.Contains(t, h.submitter.lastReq.CWLWorkflow, "cwlVersion")
	assert.Equal(t, "bafyroot", h.submitter.lastReq.Metadata["content_hash"])
}

func TestDeploy_PlainProject_SkipsChainSteps(t *testing.T) {
	h := newHarness(plainProject())

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepExtensionContracts))
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepLedgerUpdate))
	assert.Zero(t, h.chain.updates)
	assert.Zero(t, h.chain.deploys)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
}

func TestDeploy_LocalSave_ResolvesPinnedDatasets(t *testing.T) {
	h := newHarness(alProject())
	h.content.payloads = map[string][]byte{"bafyreviews": []byte("a,b\n")}

	_, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, 3, h.content.downloads)
	assert.Equal(t, []byte("a,b\n"), h.saver.lastSet["datasets/reviews.csv"])
}

// =============================================================================
// Abort and Continue Tests
// =============================================================================

func TestDeploy_UploadFailureAbortsEverything(t *testing.T) {
	h := newHarness(alProject())
	h.content.uploadErr = ipfs.NewClientError("Upload", "", "boom", ipfs.ErrUnavailable)

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.ErrorIs(t, err, ErrUploadFailed)
	require.NotNil(t, att)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepIPFSUpload))
	assert.Equal(t, "network", att.Steps[attempt.StepIPFSUpload].Reason)
	for _, step := range []attempt.Step{
		attempt.StepExtensionContracts,
		attempt.StepLedgerUpdate,
		attempt.StepLocalSave,
		attempt.StepRemoteSubmit,
	} {
		assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(step), string(step))
	}
	assert.NotEmpty(t, att.Error)
	assert.Zero(t, h.chain.updates)
	assert.Zero(t, h.saver.calls)
	assert.Empty(t, h.repo.saved)
}

func TestDeploy_UploadAuthFailureReason(t *testing.T) {
	h := newHarness(alProject())
	h.content.uploadErr = ipfs.NewClientError("Upload", "", "401", ipfs.ErrAuthFailed)

	att, _ := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	assert.Equal(t, "auth", att.Steps[attempt.StepIPFSUpload].Reason)
}

func TestDeploy_LedgerUpdateFailureContinues(t *testing.T) {
	h := newHarness(alProject())
	h.chain.updateErr = ledger.NewLedgerError("UpdateContentHash", "0xAA", "down", ledger.ErrNetwork)

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepLedgerUpdate))
	assert.Equal(t, "network", att.Steps[attempt.StepLedgerUpdate].Reason)
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepLocalSave))
	assert.Empty(t, att.Error)

	// upload succeeded, so the project still goes deployed
	require.Len(t, h.repo.saved, 1)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
}

func TestDeploy_ExtensionAlreadyDeployedRecordsSkipped(t *testing.T) {
	h := newHarness(alProject())
	h.chain.existing = &ledger.ExtensionAddresses{Voting: "0xOldV", Storage: "0xOldS"}
	h.chain.deployErr = ledger.ErrAlreadyDeployed

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepExtensionContracts))
	assert.Equal(t, "0xOldV", att.ContractAddresses["voting"])
	// the hash update still happens on repeat deploys
	assert.Equal(t, 1, h.chain.updates)
	assert.Equal(t, "bafyroot", h.chain.lastHash)
}

func TestDeploy_ExtensionDeployRevertContinues(t *testing.T) {
	h := newHarness(alProject())
	h.chain.deployErr = ledger.NewLedgerError("DeployExtensionContracts", "0xAA", "reverted", ledger.ErrReverted)

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepExtensionContracts))
	assert.Equal(t, "revert", att.Steps[attempt.StepExtensionContracts].Reason)
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepLedgerUpdate))
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepLocalSave))
}

func TestDeploy_EngineUnavailableFailsStepOnly(t *testing.T) {
	h := newHarness(alProject())
	h.saver.err = mirror.ErrEngineUnavailable

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepLocalSave))
	assert.Equal(t, "unavailable", att.Steps[attempt.StepLocalSave].Reason)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
}

func TestDeploy_DatasetFetchFailureFailsLocalSave(t *testing.T) {
	h := newHarness(alProject())
	h.content.dlErr = ipfs.NewClientError("Download", "", "gone", ipfs.ErrNotFound)

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepLocalSave))
	assert.Equal(t, "dataset_fetch", att.Steps[attempt.StepLocalSave].Reason)
	assert.Zero(t, h.saver.calls)
}

func TestDeploy_RemoteSubmitTimeoutReason(t *testing.T) {
	h := newHarness(alProject())
	h.submitter.err = &submit.SubmitError{Op: "Submit", Message: "slow", Err: submit.ErrTimeout}

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeRemote)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepRemoteSubmit))
	assert.Equal(t, "timeout", att.Steps[attempt.StepRemoteSubmit].Reason)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
}

func TestDeploy_PlainProjectRemoteModeHasNoWorkflow(t *testing.T) {
	h := newHarness(plainProject())

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeRemote)

	require.NoError(t, err)
	assert.Equal(t, attempt.OutcomeFailed, att.Outcome(attempt.StepRemoteSubmit))
	assert.Equal(t, "no_workflow", att.Steps[attempt.StepRemoteSubmit].Reason)
	assert.Zero(t, h.submitter.calls)
}

// =============================================================================
// Cancellation Tests
// =============================================================================

func TestDeploy_CancelAfterUploadSkipsRemainingSteps(t *testing.T) {
	h := newHarness(alProject())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.content.onUpload = cancel

	att, err := h.deployer.Deploy(ctx, "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepIPFSUpload))
	for _, step := range []attempt.Step{
		attempt.StepExtensionContracts,
		attempt.StepLedgerUpdate,
		attempt.StepLocalSave,
		attempt.StepRemoteSubmit,
	} {
		assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(step), string(step))
	}
	assert.NotEmpty(t, att.Error)
	assert.Zero(t, h.chain.updates)
	assert.Zero(t, h.chain.deploys)
	assert.Zero(t, h.saver.calls)
	assert.Zero(t, h.submitter.calls)

	// the content already went out, so the project still persists as deployed
	require.Len(t, h.repo.saved, 1)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
	assert.Equal(t, "bafyroot", h.repo.saved[0].ContentHash)
}

func TestDeploy_CancelDuringLedgerUpdateRecordsSkipped(t *testing.T) {
	h := newHarness(alProject())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// the cancellation lands before the transaction goes out, so the client
	// returns ctx.Err() without submitting anything
	h.chain.onUpdate = cancel
	h.chain.updateErr = context.Canceled

	att, err := h.deployer.Deploy(ctx, "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepIPFSUpload))
	assert.Equal(t, attempt.OutcomeSuccess, att.Outcome(attempt.StepExtensionContracts))
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepLedgerUpdate))
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepLocalSave))
	assert.Equal(t, attempt.OutcomeSkipped, att.Outcome(attempt.StepRemoteSubmit))
	assert.NotEmpty(t, att.Error)
	assert.Zero(t, h.saver.calls)

	require.Len(t, h.repo.saved, 1)
	assert.Equal(t, project.StatusDeployed, h.repo.saved[0].Status)
}

// =============================================================================
// Persistence Tests
// =============================================================================

func TestDeploy_DeployedStatusNeverRegresses(t *testing.T) {
	cfg := alProject()
	cfg.Status = project.StatusDeployed
	cfg.ContentHash = "bafyprev"
	h := newHarness(cfg)
	h.content.uploadErr = ipfs.NewClientError("Upload", "", "down", ipfs.ErrUnavailable)

	_, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.ErrorIs(t, err, ErrUploadFailed)
	assert.Empty(t, h.repo.saved)
	assert.Equal(t, project.StatusDeployed, h.repo.projects["proj-1"].Status)
	assert.Equal(t, "bafyprev", h.repo.projects["proj-1"].ContentHash)
}

func TestDeploy_PersistFailureReported(t *testing.T) {
	h := newHarness(alProject())
	h.repo.saveErr = errors.New("disk full")

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.ErrorIs(t, err, ErrPersistFailed)
	require.NotNil(t, att)
	assert.True(t, att.Uploaded())
}

func TestDeploy_AttemptTimestampsSet(t *testing.T) {
	h := newHarness(alProject())

	att, err := h.deployer.Deploy(context.Background(), "proj-1", owner(), attempt.ModeLocal)

	require.NoError(t, err)
	assert.False(t, att.StartedAt.IsZero())
	assert.False(t, att.FinishedAt.IsZero())
	assert.NotEmpty(t, att.ID)
}
