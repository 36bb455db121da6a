// Package config loads the settings of a workflow run.
package config

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/qsar"
	"github.com/YuminosukeSato/achepred/sklearn/tree"
)

// Config is the full configuration of a run.
type Config struct {
	Dataset DatasetConfig `koanf:"dataset"`
	Labels  LabelsConfig  `koanf:"labels"`
	Filter  FilterConfig  `koanf:"filter"`
	Split   SplitConfig   `koanf:"split"`
	Model   ModelConfig   `koanf:"model"`
	Log     LogConfig     `koanf:"log"`
	Report  ReportConfig  `koanf:"report"`
}

// DatasetConfig locates the compound table and names its columns.
type DatasetConfig struct {
	Source      string   `koanf:"source"`
	ScoreColumn string   `koanf:"score_column"`
	LabelColumn string   `koanf:"label_column"`
	Exclude     []string `koanf:"exclude"`
}

// LabelsConfig controls the treatment of intermediate compounds.
type LabelsConfig struct {
	Intermediate string `koanf:"intermediate"`
}

// FilterConfig holds the variance threshold.
type FilterConfig struct {
	Threshold float64 `koanf:"threshold"`
}

// SplitConfig controls the train/test partition.
type SplitConfig struct {
	TestSize    float64 `koanf:"test_size"`
	RandomState int64   `koanf:"random_state"`
	Stratify    bool    `koanf:"stratify"`
}

// ModelConfig holds the random forest hyperparameters.
type ModelConfig struct {
	NEstimators     int    `koanf:"n_estimators"`
	MaxDepth        int    `koanf:"max_depth"`
	MinSamplesSplit int    `koanf:"min_samples_split"`
	MinSamplesLeaf  int    `koanf:"min_samples_leaf"`
	MaxFeatures     string `koanf:"max_features"`
	Criterion       string `koanf:"criterion"`
	RandomState     int64  `koanf:"random_state"`
	NJobs           int    `koanf:"n_jobs"`
	SavePath        string `koanf:"save_path"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ReportConfig sets where charts and the run summary go. An empty Dir
// disables the file report.
type ReportConfig struct {
	Dir         string `koanf:"dir"`
	PreviewRows int    `koanf:"preview_rows"`
	PreviewCols int    `koanf:"preview_cols"`
}

// Schema returns the dataset schema described by the configuration.
func (c *Config) Schema() dataset.Schema {
	s := dataset.DefaultSchema()
	if c.Dataset.ScoreColumn != "" {
		s.ScoreColumn = c.Dataset.ScoreColumn
	}
	if c.Dataset.LabelColumn != "" {
		s.LabelColumn = c.Dataset.LabelColumn
	}
	s.Exclude = append([]string(nil), c.Dataset.Exclude...)
	return s
}

// IntermediatePolicy parses labels.intermediate.
func (c *Config) IntermediatePolicy() (qsar.IntermediatePolicy, error) {
	return qsar.ParseIntermediatePolicy(c.Labels.Intermediate)
}

// Validate checks every setting that the stages would otherwise reject late.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Dataset.Source) == "" {
		return errors.NewValidationError("dataset.source", "must not be empty", c.Dataset.Source)
	}
	if _, err := c.IntermediatePolicy(); err != nil {
		return err
	}
	if math.IsNaN(c.Filter.Threshold) || c.Filter.Threshold < 0 {
		return errors.WithHint(errors.NewInvalidThresholdError(c.Filter.Threshold),
			"filter.threshold must be a non-negative number such as 0.1")
	}
	if c.Split.TestSize <= 0 || c.Split.TestSize >= 1 {
		return errors.NewValidationError("split.test_size", "must be in (0, 1)", c.Split.TestSize)
	}
	if c.Model.NEstimators <= 0 {
		return errors.NewValidationError("model.n_estimators", "must be positive", c.Model.NEstimators)
	}
	if c.Model.MaxDepth < 0 {
		return errors.NewValidationError("model.max_depth", "must be >= 0", c.Model.MaxDepth)
	}
	if c.Model.MinSamplesSplit < 2 {
		return errors.NewValidationError("model.min_samples_split", "must be >= 2", c.Model.MinSamplesSplit)
	}
	if c.Model.MinSamplesLeaf < 1 {
		return errors.NewValidationError("model.min_samples_leaf", "must be >= 1", c.Model.MinSamplesLeaf)
	}
	if c.Model.Criterion != tree.CriterionGini && c.Model.Criterion != tree.CriterionEntropy {
		return errors.NewValidationError("model.criterion", "must be gini or entropy", c.Model.Criterion)
	}
	// any positive feature count resolves, so one column is enough to check
	// the spelling
	if _, err := tree.ResolveMaxFeatures(c.Model.MaxFeatures, 1); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return errors.NewValidationError("log.format", "must be json or console", c.Log.Format)
	}
	if c.Report.PreviewRows < 0 || c.Report.PreviewCols < 0 {
		return errors.NewValidationError("report.preview_rows", "must be >= 0", c.Report.PreviewRows)
	}
	return nil
}
