// Package project contains the core project domain types and validation
// logic. This is part of the Functional Core - all functions are pure with
// no I/O.
package project

import (
	"errors"
	"strings"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Identity validation errors
	ErrIDRequired    = errors.New("project id is required")
	ErrOwnerRequired = errors.New("project owner is required")
	ErrNameRequired  = errors.New("project name is required")

	// Dataset validation errors
	ErrDatasetRequired    = errors.New("project must have at least one dataset")
	ErrDatasetNameMissing = errors.New("dataset name is required")
	ErrDatasetUnresolved  = errors.New("dataset has neither a content hash nor an external reference")

	// Extension validation errors
	ErrUnknownExtension = errors.New("unknown extension kind")
	ErrMissingALField   = errors.New("active-learning extension field is missing")

	// Lifecycle errors
	ErrAlreadyDeployed = errors.New("project is already deployed")
)

// =============================================================================
// Lifecycle Status
// =============================================================================

// Status represents the deployment lifecycle state of a project.
type Status string

const (
	StatusNotDeployed Status = "not-deployed"
	StatusDeployed    Status = "deployed"
)

// IsValid checks if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	return s == StatusNotDeployed || s == StatusDeployed
}

// =============================================================================
// Extension Kind
// =============================================================================

// ExtensionKind is the closed tag identifying the domain-specific extension
// attached to a project. It is decided at project-creation time and never
// re-derived from configuration contents at deploy time.
type ExtensionKind string

const (
	ExtensionNone           ExtensionKind = "none"
	ExtensionActiveLearning ExtensionKind = "activeLearning"
	ExtensionFederated      ExtensionKind = "federated"
)

// IsValid checks if the extension kind is known.
func (k ExtensionKind) IsValid() bool {
	switch k {
	case ExtensionNone, ExtensionActiveLearning, ExtensionFederated:
		return true
	default:
		return false
	}
}

// RequiresChainContracts reports whether projects of this kind need
// auxiliary on-chain records deployed alongside the content hash.
func (k ExtensionKind) RequiresChainContracts() bool {
	return k == ExtensionActiveLearning
}

// =============================================================================
// Datasets, Workflows, Models
// =============================================================================

// Dataset describes one named dataset attached to a project. A dataset is
// resolved either by content hash (fetched from the content store) or by an
// external reference (URL left for the execution engine to pull).
type Dataset struct {
	Name        string `json:"name"`
	Format      string `json:"format"` // csv, parquet, npz, ...
	ContentHash string `json:"content_hash,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}

// Resolved reports whether the dataset can be materialized at all.
func (d Dataset) Resolved() bool {
	return d.ContentHash != "" || d.ExternalRef != ""
}

// Workflow describes one named workflow definition carried by the project.
// Definition holds the CWL document source; empty means the deployer renders
// the canonical definition for the project's extension kind.
type Workflow struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// Model describes one named model definition.
type Model struct {
	Name      string `json:"name"`
	Framework string `json:"framework"` // sklearn, pytorch, ...
	Spec      string `json:"spec,omitempty"`
}

// =============================================================================
// Active-Learning Extension Configuration
// =============================================================================

// ALConfig holds the active-learning hyperparameters for a project carrying
// the activeLearning extension. Zero values mean "not set"; validation
// enforces the required subset.
type ALConfig struct {
	QueryStrategy  string   `json:"query_strategy"` // uncertainty_sampling, ...
	ALScenario     string   `json:"al_scenario"`    // pool_based, stream_based
	ModelName      string   `json:"model_name"`     // name of a Model entry
	LabelSpace     []string `json:"label_space"`
	MaxIterations  int      `json:"max_iterations"`
	QueryBatchSize int      `json:"query_batch_size"`

	// Dataset roles for the AL iteration, each naming a Dataset entry.
	// Explicit by design: the engine's input mapping is never inferred
	// from dataset naming conventions.
	TrainingDataset  string `json:"training_dataset"`
	LabelsDataset    string `json:"labels_dataset"`
	UnlabeledDataset string `json:"unlabeled_dataset"`

	VotingConsensus string  `json:"voting_consensus,omitempty"`
	VotingTimeout   int     `json:"voting_timeout_seconds,omitempty"`
	ValidationSplit float64 `json:"validation_split,omitempty"`
}

// =============================================================================
// Project Configuration
// =============================================================================

// Configuration is the durable description of one research project. It is
// owner-mutable only: no deployment step writes it back until that step's
// remote call has definitively succeeded.
type Configuration struct {
	ID       string            `json:"id"`
	Owner    string            `json:"owner"` // ledger account address
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`

	Datasets  []Dataset  `json:"datasets,omitempty"`
	Workflows []Workflow `json:"workflows,omitempty"`
	Models    []Model    `json:"models,omitempty"`

	Extension ExtensionKind `json:"extension"`
	AL        *ALConfig     `json:"al_config,omitempty"`

	// ChainAddress is the project's base contract on the ledger; empty for
	// projects that never touch the chain.
	ChainAddress string `json:"chain_address,omitempty"`
	// Contributors are ledger accounts allowed to vote on labels.
	Contributors []string `json:"contributors,omitempty"`

	// ContentHash is the authoritative bundle hash from the last successful
	// deployment; empty until first deploy.
	ContentHash string `json:"content_hash,omitempty"`
	Status      Status `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dataset returns the named dataset, if present.
func (c *Configuration) Dataset(name string) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// Workflow returns the named workflow, if present.
func (c *Configuration) Workflow(name string) (Workflow, bool) {
	for _, w := range c.Workflows {
		if w.Name == name {
			return w, true
		}
	}
	return Workflow{}, false
}

// IsOwnedBy reports whether the given identity is the recorded owner.
// Ledger addresses are case-insensitive hex, so the comparison is too.
func (c *Configuration) IsOwnedBy(identity string) bool {
	return identity != "" && strings.EqualFold(c.Owner, identity)
}
