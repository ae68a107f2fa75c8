package bundle

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dalproject/dald/internal/core/project"
)

// =============================================================================
// CWL Workflow Definition
// =============================================================================

// cwlTool mirrors the engine's AL iteration tool. Struct-based rendering
// keeps key order fixed, so the output is byte-stable across builds.
type cwlTool struct {
	CWLVersion  string     `yaml:"cwlVersion"`
	Class       string     `yaml:"class"`
	BaseCommand []string   `yaml:"baseCommand"`
	Inputs      cwlInputs  `yaml:"inputs"`
	Outputs     cwlOutputs `yaml:"outputs"`
}

type cwlInputs struct {
	LabeledData   cwlFileInput `yaml:"labeled_data"`
	LabeledLabels cwlFileInput `yaml:"labeled_labels"`
	UnlabeledData cwlFileInput `yaml:"unlabeled_data"`
	Config        cwlFileInput `yaml:"config"`
	ModelIn       cwlFileInput `yaml:"model_in"`
}

type cwlOutputs struct {
	ModelOut     cwlFileOutput `yaml:"model_out"`
	QueryIndices cwlFileOutput `yaml:"query_indices"`
}

type cwlFileInput struct {
	Type         string          `yaml:"type"`
	InputBinding cwlInputBinding `yaml:"inputBinding"`
}

type cwlInputBinding struct {
	Prefix string `yaml:"prefix"`
}

type cwlFileOutput struct {
	Type          string           `yaml:"type"`
	OutputBinding cwlOutputBinding `yaml:"outputBinding"`
}

type cwlOutputBinding struct {
	Glob string `yaml:"glob"`
}

// renderALWorkflow emits the workflow definition for an AL project. A
// user-supplied definition under the canonical workflow name takes
// precedence over the rendered template.
func renderALWorkflow(cfg *project.Configuration) ([]byte, error) {
	if w, ok := cfg.Workflow(ALWorkflowName); ok && w.Definition != "" {
		return []byte(w.Definition), nil
	}

	tool := cwlTool{
		CWLVersion:  "v1.2",
		Class:       "CommandLineTool",
		BaseCommand: []string{"python", "al_iteration.py"},
		Inputs: cwlInputs{
			LabeledData:   cwlFileInput{Type: "File", InputBinding: cwlInputBinding{Prefix: "--labeled_data"}},
			LabeledLabels: cwlFileInput{Type: "File", InputBinding: cwlInputBinding{Prefix: "--labeled_labels"}},
			UnlabeledData: cwlFileInput{Type: "File", InputBinding: cwlInputBinding{Prefix: "--unlabeled_data"}},
			Config:        cwlFileInput{Type: "File", InputBinding: cwlInputBinding{Prefix: "--config"}},
			ModelIn:       cwlFileInput{Type: "File?", InputBinding: cwlInputBinding{Prefix: "--model_in"}},
		},
		Outputs: cwlOutputs{
			ModelOut:     cwlFileOutput{Type: "File", OutputBinding: cwlOutputBinding{Glob: "model_out.pkl"}},
			QueryIndices: cwlFileOutput{Type: "File", OutputBinding: cwlOutputBinding{Glob: "query_indices.npy"}},
		},
	}

	out, err := yaml.Marshal(tool)
	if err != nil {
		return nil, fmt.Errorf("render workflow definition: %w", err)
	}
	return out, nil
}

// =============================================================================
// CWL Job Inputs
// =============================================================================

// cwlJobInputs is the run-time input mapping. Paths are bundle-relative;
// the local mirror and remote submitter resolve them against the materialized
// dataset files.
type cwlJobInputs struct {
	LabeledData   cwlFileRef `yaml:"labeled_data"`
	LabeledLabels cwlFileRef `yaml:"labeled_labels"`
	UnlabeledData cwlFileRef `yaml:"unlabeled_data"`
	Config        cwlFileRef `yaml:"config"`
}

type cwlFileRef struct {
	Class string `yaml:"class"`
	Path  string `yaml:"path"`
}

func renderALInputs(cfg *project.Configuration) ([]byte, error) {
	fileRef := func(name string) (cwlFileRef, error) {
		d, ok := cfg.Dataset(name)
		if !ok {
			return cwlFileRef{}, fmt.Errorf("input mapping references unknown dataset %q", name)
		}
		return cwlFileRef{Class: "File", Path: DatasetPath(d)}, nil
	}

	labeled, err := fileRef(cfg.AL.TrainingDataset)
	if err != nil {
		return nil, err
	}
	labels, err := fileRef(cfg.AL.LabelsDataset)
	if err != nil {
		return nil, err
	}
	unlabeled, err := fileRef(cfg.AL.UnlabeledDataset)
	if err != nil {
		return nil, err
	}

	inputs := cwlJobInputs{
		LabeledData:   labeled,
		LabeledLabels: labels,
		UnlabeledData: unlabeled,
		Config:        cwlFileRef{Class: "File", Path: PathProjectConfig},
	}

	out, err := yaml.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("render input mapping: %w", err)
	}
	return out, nil
}
