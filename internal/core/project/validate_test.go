package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// Test Helpers
// =============================================================================

func validALProject() *Configuration {
	return &Configuration{
		ID:        "proj-1",
		Owner:     "0xAbCd000000000000000000000000000000000001",
		Name:      "sentiment-study",
		Extension: ExtensionActiveLearning,
		Datasets: []Dataset{
			{Name: "reviews", Format: "csv", ContentHash: "bafyreviews"},
			{Name: "review-labels", Format: "csv", ContentHash: "bafylabels"},
			{Name: "unlabeled-reviews", Format: "csv", ContentHash: "bafypool"},
		},
		AL: &ALConfig{
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
		Status: StatusNotDeployed,
	}
}

// =============================================================================
// ValidateForDeploy Tests
// =============================================================================

func TestValidateForDeploy_ValidALProject(t *testing.T) {
	result := ValidateForDeploy(validALProject())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidateForDeploy_ValidPlainProject(t *testing.T) {
	cfg := validALProject()
	cfg.Extension = ExtensionNone
	cfg.AL = nil

	result := ValidateForDeploy(cfg)

	assert.True(t, result.Valid)
}

func TestValidateForDeploy_MissingIdentity(t *testing.T) {
	cfg := validALProject()
	cfg.ID = ""
	cfg.Owner = ""

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems, ErrIDRequired.Error())
	assert.Contains(t, result.Problems, ErrOwnerRequired.Error())
}

func TestValidateForDeploy_NoDatasets(t *testing.T) {
	cfg := validALProject()
	cfg.Datasets = nil
	cfg.AL.TrainingDataset = ""

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems, ErrDatasetRequired.Error())
}

func TestValidateForDeploy_UnresolvedDataset(t *testing.T) {
	cfg := validALProject()
	cfg.Datasets[0] = Dataset{Name: "reviews", Format: "csv"}

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	assert.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "reviews")
}

func TestValidateForDeploy_ALFieldsEnumerated(t *testing.T) {
	cfg := validALProject()
	cfg.AL = &ALConfig{}

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	// every required AL field is reported, not just the first
	assert.Len(t, result.Problems, 9)
}

func TestValidateForDeploy_NilALConfig(t *testing.T) {
	cfg := validALProject()
	cfg.AL = nil

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems[0], "al_config")
}

func TestValidateForDeploy_TrainingDatasetMustExist(t *testing.T) {
	cfg := validALProject()
	cfg.AL.TrainingDataset = "missing"

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems[0], `"missing"`)
}

func TestValidateForDeploy_UnknownExtension(t *testing.T) {
	cfg := validALProject()
	cfg.Extension = ExtensionKind("quantum")

	result := ValidateForDeploy(cfg)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Problems[0], "quantum")
}

// =============================================================================
// Configuration Tests
// =============================================================================

func TestIsOwnedBy_CaseInsensitive(t *testing.T) {
	cfg := validALProject()

	assert.True(t, cfg.IsOwnedBy("0xabcd000000000000000000000000000000000001"))
	assert.False(t, cfg.IsOwnedBy("0xabcd000000000000000000000000000000000002"))
	assert.False(t, cfg.IsOwnedBy(""))
}

func TestExtensionKind_RequiresChainContracts(t *testing.T) {
	assert.True(t, ExtensionActiveLearning.RequiresChainContracts())
	assert.False(t, ExtensionNone.RequiresChainContracts())
	assert.False(t, ExtensionFederated.RequiresChainContracts())
}

func TestDataset_Resolved(t *testing.T) {
	assert.True(t, Dataset{ContentHash: "bafy"}.Resolved())
	assert.True(t, Dataset{ExternalRef: "https://example.org/d.csv"}.Resolved())
	assert.False(t, Dataset{Name: "empty"}.Resolved())
}
