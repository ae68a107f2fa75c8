// Package api provides HTTP handlers for the project and deployment API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dalproject/dald/internal/core/attempt"
	"github.com/dalproject/dald/internal/core/project"
	"github.com/dalproject/dald/internal/shell/deployer"
	"github.com/dalproject/dald/internal/shell/store"
	"github.com/dalproject/dald/internal/shell/submit"
)

// =============================================================================
// Handler
// =============================================================================

// ProjectDeployer runs one deployment attempt end to end.
type ProjectDeployer interface {
	Deploy(ctx context.Context, projectID, identity string, mode attempt.ExecutionMode) (*attempt.Attempt, error)
}

// WorkflowStatusClient resolves the state of submitted remote workflows.
type WorkflowStatusClient interface {
	GetStatus(ctx context.Context, workflowID string) (*submit.WorkflowStatus, error)
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	store     store.Repository
	deployer  ProjectDeployer
	workflows WorkflowStatusClient
	logger    *slog.Logger
}

// NewHandler creates a new API handler. workflows may be nil when no remote
// engine is configured; status lookups then answer 503.
func NewHandler(s store.Repository, d ProjectDeployer, workflows WorkflowStatusClient, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{
		store:     s,
		deployer:  d,
		workflows: workflows,
		logger:    l,
	}
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", h.handleCreateProject)
			r.Get("/", h.handleListProjects)
			r.Get("/{id}", h.handleGetProject)
			r.Put("/{id}", h.handleUpdateProject)
			r.Delete("/{id}", h.handleDeleteProject)
			r.Post("/{id}/deploy", h.handleDeployProject)
		})

		r.Get("/workflows/{id}/status", h.handleWorkflowStatus)
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// callerIdentity extracts the authenticated ledger account. The gateway in
// front of this service injects the header after signature verification.
func callerIdentity(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if _, err := h.store.ListProjects(r.Context(), store.ListOptions{Limit: 1}); err != nil {
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Project Handlers
// =============================================================================

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)
	if identity == "" {
		h.writeError(w, http.StatusUnauthorized, "missing caller identity", "unauthorized")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "name is required", "validation_error")
		return
	}

	extension := project.ExtensionKind(req.Extension)
	if req.Extension == "" {
		extension = project.ExtensionNone
	}
	if !extension.IsValid() {
		h.writeError(w, http.StatusBadRequest, "unknown extension kind", "validation_error")
		return
	}

	now := time.Now().UTC()
	cfg := &project.Configuration{
		ID:           "proj_" + uuid.New().String()[:8],
		Owner:        identity,
		Name:         req.Name,
		Metadata:     req.Metadata,
		Datasets:     req.Datasets,
		Workflows:    req.Workflows,
		Models:       req.Models,
		Extension:    extension,
		AL:           req.AL,
		ChainAddress: req.ChainAddress,
		Contributors: req.Contributors,
		Status:       project.StatusNotDeployed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.CreateProject(r.Context(), cfg); err != nil {
		h.logger.Error("failed to create project", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create project", "internal_error")
		return
	}

	h.logger.Info("project created", "project_id", cfg.ID, "owner", cfg.Owner)
	h.writeJSON(w, http.StatusCreated, projectToResponse(cfg))
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cfg, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "project not found", "project_not_found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get project", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, projectToResponse(cfg))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}

	var projects []project.Configuration
	var err error

	if owner := r.URL.Query().Get("owner"); owner != "" {
		projects, err = h.store.ListProjectsByOwner(r.Context(), owner, opts)
	} else {
		projects, err = h.store.ListProjects(r.Context(), opts)
	}
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list projects", "internal_error")
		return
	}

	resp := ListProjectsResponse{
		Projects: make([]ProjectResponse, 0, len(projects)),
		Count:    len(projects),
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	for i := range projects {
		resp.Projects = append(resp.Projects, projectToResponse(&projects[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity := callerIdentity(r)

	cfg, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "project not found", "project_not_found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get project", "internal_error")
		return
	}
	if !cfg.IsOwnedBy(identity) {
		h.writeError(w, http.StatusForbidden, "only the owner can modify a project", "not_owner")
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	if req.Name != "" {
		cfg.Name = req.Name
	}
	if req.Metadata != nil {
		cfg.Metadata = req.Metadata
	}
	if req.Datasets != nil {
		cfg.Datasets = req.Datasets
	}
	if req.Workflows != nil {
		cfg.Workflows = req.Workflows
	}
	if req.Models != nil {
		cfg.Models = req.Models
	}
	if req.Extension != "" {
		extension := project.ExtensionKind(req.Extension)
		if !extension.IsValid() {
			h.writeError(w, http.StatusBadRequest, "unknown extension kind", "validation_error")
			return
		}
		cfg.Extension = extension
	}
	if req.AL != nil {
		cfg.AL = req.AL
	}
	if req.ChainAddress != "" {
		cfg.ChainAddress = req.ChainAddress
	}
	if req.Contributors != nil {
		cfg.Contributors = req.Contributors
	}
	cfg.UpdatedAt = time.Now().UTC()

	if err := h.store.SaveProject(r.Context(), cfg); err != nil {
		h.logger.Error("failed to update project", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to update project", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, projectToResponse(cfg))
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity := callerIdentity(r)

	cfg, err := h.store.GetProject(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "project not found", "project_not_found")
			return
		}
		h.logger.Error("failed to get project", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get project", "internal_error")
		return
	}
	if !cfg.IsOwnedBy(identity) {
		h.writeError(w, http.StatusForbidden, "only the owner can delete a project", "not_owner")
		return
	}

	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		h.logger.Error("failed to delete project", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete project", "internal_error")
		return
	}

	h.logger.Info("project deleted", "project_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Deploy Handler
// =============================================================================

func (h *Handler) handleDeployProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity := callerIdentity(r)
	if identity == "" {
		h.writeError(w, http.StatusUnauthorized, "missing caller identity", "unauthorized")
		return
	}

	var req DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	att, err := h.deployer.Deploy(r.Context(), id, identity, attempt.ExecutionMode(req.ExecutionMode))
	if err != nil {
		status, code := deployErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("deployment failed", "project_id", id, "error", err)
		}
		h.writeJSON(w, status, DeployErrorResponse{
			Error:   err.Error(),
			Code:    code,
			Attempt: att,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, DeployResponse{Attempt: att})
}

// deployErrorStatus maps deployment abort errors onto HTTP statuses.
func deployErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, deployer.ErrInvalidMode):
		return http.StatusBadRequest, "invalid_mode"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "project_not_found"
	case errors.Is(err, deployer.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, deployer.ErrInvalidConfiguration):
		return http.StatusUnprocessableEntity, "invalid_configuration"
	case errors.Is(err, deployer.ErrDeployInProgress):
		return http.StatusConflict, "deploy_in_progress"
	case errors.Is(err, deployer.ErrUploadFailed):
		return http.StatusBadGateway, "upload_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// =============================================================================
// Workflow Status Handler
// =============================================================================

func (h *Handler) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	if h.workflows == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no remote engine configured", "engine_unconfigured")
		return
	}
	id := chi.URLParam(r, "id")

	status, err := h.workflows.GetStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, submit.ErrWorkflowNotFound) {
			h.writeError(w, http.StatusNotFound, "workflow not found", "workflow_not_found")
			return
		}
		h.logger.Error("failed to get workflow status", "workflow_id", id, "error", err)
		h.writeError(w, http.StatusBadGateway, "workflow engine unavailable", "engine_error")
		return
	}

	h.writeJSON(w, http.StatusOK, status)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func projectToResponse(c *project.Configuration) ProjectResponse {
	resp := ProjectResponse{
		ID:           c.ID,
		Owner:        c.Owner,
		Name:         c.Name,
		Metadata:     c.Metadata,
		Datasets:     c.Datasets,
		Workflows:    c.Workflows,
		Models:       c.Models,
		Extension:    string(c.Extension),
		AL:           c.AL,
		ChainAddress: c.ChainAddress,
		Contributors: c.Contributors,
		ContentHash:  c.ContentHash,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if resp.Datasets == nil {
		resp.Datasets = []project.Dataset{}
	}
	if resp.Workflows == nil {
		resp.Workflows = []project.Workflow{}
	}
	if resp.Models == nil {
		resp.Models = []project.Model{}
	}
	return resp
}

// isNotFound checks if an error is a not found error.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
