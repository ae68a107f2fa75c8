// Package submit talks to the remote workflow execution service.
// This is part of the Imperative Shell - handles HTTP calls to the engine API.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrTimeout is returned when the engine did not answer in time. Kept
	// distinct from ErrUnavailable so callers can report it as its own
	// failure reason.
	ErrTimeout = errors.New("workflow engine timed out")

	// ErrUnavailable is returned for transport failures and 5xx answers.
	ErrUnavailable = errors.New("workflow engine unavailable")

	// ErrRejected is returned when the engine refused the submission (4xx).
	ErrRejected = errors.New("workflow submission rejected")

	// ErrWorkflowNotFound is returned for status lookups of unknown workflows.
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// SubmitError wraps errors with additional context.
type SubmitError struct {
	Op      string
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Types
// =============================================================================

// Workflow lifecycle states reported by the engine.
const (
	StatusPending       = "PENDING"
	StatusSubmitted     = "SUBMITTED"
	StatusOrchestrating = "ORCHESTRATING"
	StatusRunning       = "RUNNING"
	StatusCompleted     = "COMPLETED"
	StatusFailed        = "FAILED"
)

// SubmitRequest is one workflow submission.
type SubmitRequest struct {
	ProjectID   string            `json:"project_id"`
	CWLWorkflow string            `json:"cwl_workflow"`
	Inputs      string            `json:"inputs"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SubmitResponse is the engine's acknowledgement of a submission.
type SubmitResponse struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
}

// WorkflowStatus is the engine's view of a running workflow.
type WorkflowStatus struct {
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// =============================================================================
// Submitter
// =============================================================================

// Submitter sends workflows to the remote engine.
type Submitter struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds remote engine configuration.
type Config struct {
	BaseURL   string
	AuthToken string
	// Timeout bounds one submission round trip.
	Timeout time.Duration
}

// NewSubmitter creates a new remote workflow submitter.
func NewSubmitter(cfg Config, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Submitter{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Submit hands a workflow to the engine and returns its tracking ID.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &SubmitError{Op: "Submit", Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v1/workflows/submit", bytes.NewReader(body))
	if err != nil {
		return nil, &SubmitError{Op: "Submit", Message: "failed to build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	s.authorize(httpReq)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, s.transportError("Submit", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, s.statusError("Submit", resp)
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &SubmitError{Op: "Submit", Message: "failed to decode response", Err: ErrUnavailable}
	}
	if out.WorkflowID == "" {
		return nil, &SubmitError{Op: "Submit", Message: "engine returned no workflow id", Err: ErrRejected}
	}

	s.logger.Info("workflow submitted",
		"project_id", req.ProjectID,
		"workflow_id", out.WorkflowID,
		"status", out.Status,
	)
	return &out, nil
}

// GetStatus fetches the current state of a submitted workflow.
func (s *Submitter) GetStatus(ctx context.Context, workflowID string) (*WorkflowStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/workflows/"+workflowID+"/status", nil)
	if err != nil {
		return nil, &SubmitError{Op: "GetStatus", Message: "failed to build request", Err: err}
	}
	s.authorize(httpReq)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, s.transportError("GetStatus", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &SubmitError{Op: "GetStatus", Message: "workflow " + workflowID, Err: ErrWorkflowNotFound}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError("GetStatus", resp)
	}

	var out WorkflowStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &SubmitError{Op: "GetStatus", Message: "failed to decode response", Err: ErrUnavailable}
	}
	return &out, nil
}

func (s *Submitter) authorize(req *http.Request) {
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
}

func (s *Submitter) transportError(op string, err error) error {
	sentinel := ErrUnavailable
	if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
		sentinel = ErrTimeout
	}
	return &SubmitError{Op: op, Message: err.Error(), Err: sentinel}
}

func (s *Submitter) statusError(op string, resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	sentinel := ErrUnavailable
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		sentinel = ErrRejected
	}
	if resp.StatusCode == http.StatusGatewayTimeout {
		sentinel = ErrTimeout
	}
	return &SubmitError{Op: op, Message: msg, Err: sentinel}
}

func isClientTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
