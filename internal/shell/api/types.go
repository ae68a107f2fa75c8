package api

import (
	"time"

	"github.com/dalproject/dald/internal/core/attempt"
	"github.com/dalproject/dald/internal/core/project"
)

// =============================================================================
// Request Types
// =============================================================================

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name         string             `json:"name"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
	Datasets     []project.Dataset  `json:"datasets,omitempty"`
	Workflows    []project.Workflow `json:"workflows,omitempty"`
	Models       []project.Model    `json:"models,omitempty"`
	Extension    string             `json:"extension,omitempty"`
	AL           *project.ALConfig  `json:"al_config,omitempty"`
	ChainAddress string             `json:"chain_address,omitempty"`
	Contributors []string           `json:"contributors,omitempty"`
}

// UpdateProjectRequest is the request body for updating a project. Nil
// slices and empty strings leave the stored value untouched.
type UpdateProjectRequest struct {
	Name         string             `json:"name,omitempty"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
	Datasets     []project.Dataset  `json:"datasets,omitempty"`
	Workflows    []project.Workflow `json:"workflows,omitempty"`
	Models       []project.Model    `json:"models,omitempty"`
	Extension    string             `json:"extension,omitempty"`
	AL           *project.ALConfig  `json:"al_config,omitempty"`
	ChainAddress string             `json:"chain_address,omitempty"`
	Contributors []string           `json:"contributors,omitempty"`
}

// DeployRequest is the request body for deploying a project.
type DeployRequest struct {
	ExecutionMode string `json:"execution_mode"`
}

// =============================================================================
// Response Types
// =============================================================================

// ProjectResponse is the response for project operations.
type ProjectResponse struct {
	ID           string             `json:"id"`
	Owner        string             `json:"owner"`
	Name         string             `json:"name"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
	Datasets     []project.Dataset  `json:"datasets"`
	Workflows    []project.Workflow `json:"workflows"`
	Models       []project.Model    `json:"models"`
	Extension    string             `json:"extension"`
	AL           *project.ALConfig  `json:"al_config,omitempty"`
	ChainAddress string             `json:"chain_address,omitempty"`
	Contributors []string           `json:"contributors,omitempty"`
	ContentHash  string             `json:"content_hash,omitempty"`
	Status       string             `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ListProjectsResponse is the response for listing projects.
type ListProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
	// Count is the number of projects in this page, not the total row count.
	Count    int               `json:"count"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// DeployResponse is the response for a finished deployment attempt.
type DeployResponse struct {
	Attempt *attempt.Attempt `json:"attempt"`
}

// DeployErrorResponse is the error response for an aborted deployment. The
// attempt is included when the attempt started before aborting.
type DeployErrorResponse struct {
	Error   string           `json:"error"`
	Code    string           `json:"code"`
	Attempt *attempt.Attempt `json:"attempt,omitempty"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
