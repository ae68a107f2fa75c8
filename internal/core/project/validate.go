package project

import "fmt"

// =============================================================================
// Deploy-Time Validation
// =============================================================================

// ValidationResult is the outcome of validating a configuration before
// deployment. Problems lists every violation found, not just the first, so
// an operator can fix the configuration in one pass.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// ValidateForDeploy checks that a configuration carries everything a
// deployment attempt needs. Pure; performs no I/O.
func ValidateForDeploy(c *Configuration) ValidationResult {
	var problems []string

	if c.ID == "" {
		problems = append(problems, ErrIDRequired.Error())
	}
	if c.Owner == "" {
		problems = append(problems, ErrOwnerRequired.Error())
	}
	if c.Name == "" {
		problems = append(problems, ErrNameRequired.Error())
	}

	if len(c.Datasets) == 0 {
		problems = append(problems, ErrDatasetRequired.Error())
	}
	for _, d := range c.Datasets {
		if d.Name == "" {
			problems = append(problems, ErrDatasetNameMissing.Error())
			continue
		}
		if !d.Resolved() {
			problems = append(problems, fmt.Sprintf("%s: %q", ErrDatasetUnresolved, d.Name))
		}
	}

	if !c.Extension.IsValid() {
		problems = append(problems, fmt.Sprintf("%s: %q", ErrUnknownExtension, c.Extension))
	} else if c.Extension == ExtensionActiveLearning {
		problems = append(problems, validateAL(c)...)
	}

	return ValidationResult{Valid: len(problems) == 0, Problems: problems}
}

// validateAL enumerates the required active-learning fields. Each missing
// field is reported individually so the caller can surface a precise list.
func validateAL(c *Configuration) []string {
	if c.AL == nil {
		return []string{fmt.Sprintf("%s: al_config", ErrMissingALField)}
	}

	var problems []string
	missing := func(field string) {
		problems = append(problems, fmt.Sprintf("%s: %s", ErrMissingALField, field))
	}

	if c.AL.QueryStrategy == "" {
		missing("query_strategy")
	}
	if c.AL.ALScenario == "" {
		missing("al_scenario")
	}
	if c.AL.ModelName == "" {
		missing("model_name")
	}
	if len(c.AL.LabelSpace) == 0 {
		missing("label_space")
	}
	if c.AL.MaxIterations <= 0 {
		missing("max_iterations")
	}
	if c.AL.QueryBatchSize <= 0 {
		missing("query_batch_size")
	}
	roles := []struct {
		field string
		name  string
	}{
		{"training_dataset", c.AL.TrainingDataset},
		{"labels_dataset", c.AL.LabelsDataset},
		{"unlabeled_dataset", c.AL.UnlabeledDataset},
	}
	for _, role := range roles {
		if role.name == "" {
			missing(role.field)
			continue
		}
		if _, ok := c.Dataset(role.name); !ok {
			problems = append(problems, fmt.Sprintf("%s %q is not a configured dataset", role.field, role.name))
		}
	}

	return problems
}
