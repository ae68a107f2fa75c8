package bundle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dalproject/dald/internal/core/project"
)

// =============================================================================
// Default AL Parameters
// =============================================================================

// Defaults applied for optional AL parameters. An explicit value in the
// configuration always wins.
const (
	DefaultVotingConsensus = "simple_majority"
	DefaultVotingTimeout   = 3600
	DefaultValidationSplit = 0.2
)

// =============================================================================
// Bundler
// =============================================================================

// Build assembles the artifact bundle for a validated configuration.
// Pure and deterministic: no I/O, no clock reads, no randomness. The only
// error paths are construction defects (duplicate or empty file paths),
// which indicate a bug rather than a bad configuration.
func Build(cfg *project.Configuration) (*Bundle, error) {
	b := New()

	meta, err := renderMetadata(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Add(FileEntry{Path: PathMetadata, Content: meta, ContentType: "application/ld+json"}); err != nil {
		return nil, err
	}

	conf, err := renderProjectConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Add(FileEntry{Path: PathProjectConfig, Content: conf, ContentType: "application/json"}); err != nil {
		return nil, err
	}

	manifest, err := renderDatasetManifest(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Add(FileEntry{Path: PathDatasetManifest, Content: manifest, ContentType: "application/json"}); err != nil {
		return nil, err
	}

	if cfg.Extension == project.ExtensionActiveLearning {
		workflow, err := renderALWorkflow(cfg)
		if err != nil {
			return nil, err
		}
		if err := b.Add(FileEntry{Path: PathALWorkflow, Content: workflow, ContentType: "application/x-yaml"}); err != nil {
			return nil, err
		}

		inputs, err := renderALInputs(cfg)
		if err != nil {
			return nil, err
		}
		if err := b.Add(FileEntry{Path: PathALInputs, Content: inputs, ContentType: "application/x-yaml"}); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// =============================================================================
// Root Metadata
// =============================================================================

// metadataDoc is the root metadata file. Field order is fixed and maps are
// marshaled with sorted keys by encoding/json, keeping the output stable.
type metadataDoc struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Owner        string            `json:"owner"`
	Extension    string            `json:"extension"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Datasets     []datasetEntry    `json:"datasets"`
	Workflows    []string          `json:"workflows,omitempty"`
	Models       []modelEntry      `json:"models,omitempty"`
	Contributors []string          `json:"contributors,omitempty"`
	CreatedAt    string            `json:"created_at,omitempty"`
}

type datasetEntry struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

type modelEntry struct {
	Name      string `json:"name"`
	Framework string `json:"framework"`
}

func renderMetadata(cfg *project.Configuration) ([]byte, error) {
	doc := metadataDoc{
		ID:           cfg.ID,
		Name:         cfg.Name,
		Owner:        cfg.Owner,
		Extension:    string(cfg.Extension),
		Metadata:     cfg.Metadata,
		Contributors: cfg.Contributors,
	}
	for _, d := range cfg.Datasets {
		doc.Datasets = append(doc.Datasets, datasetEntry{Name: d.Name, Format: d.Format, Path: DatasetPath(d)})
	}
	for _, w := range cfg.Workflows {
		doc.Workflows = append(doc.Workflows, w.Name)
	}
	for _, m := range cfg.Models {
		doc.Models = append(doc.Models, modelEntry{Name: m.Name, Framework: m.Framework})
	}
	// CreatedAt comes from the stored configuration, never from the clock:
	// bundling the same configuration twice must produce identical bytes.
	if !cfg.CreatedAt.IsZero() {
		doc.CreatedAt = cfg.CreatedAt.UTC().Format(time.RFC3339)
	}
	return marshalJSON(doc)
}

// =============================================================================
// Derived Project Configuration
// =============================================================================

type projectConfigDoc struct {
	ProjectID string       `json:"project_id"`
	Extension string       `json:"extension"`
	AL        *alConfigDoc `json:"al_config,omitempty"`
}

type alConfigDoc struct {
	QueryStrategy   string   `json:"query_strategy"`
	ALScenario      string   `json:"al_scenario"`
	ModelName       string   `json:"model_name"`
	LabelSpace      []string `json:"label_space"`
	MaxIterations   int      `json:"max_iterations"`
	QueryBatchSize  int      `json:"query_batch_size"`
	VotingConsensus string   `json:"voting_consensus"`
	VotingTimeout   int      `json:"voting_timeout_seconds"`
	ValidationSplit float64  `json:"validation_split"`
}

func renderProjectConfig(cfg *project.Configuration) ([]byte, error) {
	doc := projectConfigDoc{
		ProjectID: cfg.ID,
		Extension: string(cfg.Extension),
	}
	if cfg.Extension == project.ExtensionActiveLearning && cfg.AL != nil {
		doc.AL = resolveALConfig(cfg.AL)
	}
	return marshalJSON(doc)
}

// resolveALConfig fills defaults for optional parameters only where the
// configuration carries no explicit value.
func resolveALConfig(al *project.ALConfig) *alConfigDoc {
	doc := &alConfigDoc{
		QueryStrategy:   al.QueryStrategy,
		ALScenario:      al.ALScenario,
		ModelName:       al.ModelName,
		LabelSpace:      al.LabelSpace,
		MaxIterations:   al.MaxIterations,
		QueryBatchSize:  al.QueryBatchSize,
		VotingConsensus: al.VotingConsensus,
		VotingTimeout:   al.VotingTimeout,
		ValidationSplit: al.ValidationSplit,
	}
	if doc.VotingConsensus == "" {
		doc.VotingConsensus = DefaultVotingConsensus
	}
	if doc.VotingTimeout == 0 {
		doc.VotingTimeout = DefaultVotingTimeout
	}
	if doc.ValidationSplit == 0 {
		doc.ValidationSplit = DefaultValidationSplit
	}
	return doc
}

// =============================================================================
// Dataset Manifest
// =============================================================================

type manifestDoc struct {
	Datasets []manifestEntry `json:"datasets"`
}

type manifestEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}

func renderDatasetManifest(cfg *project.Configuration) ([]byte, error) {
	doc := manifestDoc{Datasets: []manifestEntry{}}
	for _, d := range cfg.Datasets {
		doc.Datasets = append(doc.Datasets, manifestEntry{
			Name:        d.Name,
			Path:        DatasetPath(d),
			Format:      d.Format,
			ContentHash: d.ContentHash,
			ExternalRef: d.ExternalRef,
		})
	}
	return marshalJSON(doc)
}

// =============================================================================
// Helpers
// =============================================================================

func marshalJSON(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal bundle file: %w", err)
	}
	return append(out, '\n'), nil
}
