package report

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/achepred/metrics"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Summary is the machine-readable record of one run.
type Summary struct {
	RunID      string    `yaml:"run_id"`
	Source     string    `yaml:"source"`
	StartedAt  time.Time `yaml:"started_at"`
	DurationMs int64     `yaml:"duration_ms"`

	Records      int            `yaml:"records"`
	Classes      map[string]int `yaml:"classes"`
	Intermediate string         `yaml:"intermediate_policy"`
	Dropped      int            `yaml:"dropped_records"`

	Filter FilterSummary `yaml:"variance_filter"`
	Split  SplitSummary  `yaml:"split"`
	Model  ModelSummary  `yaml:"model,omitempty"`

	Train *metrics.Scores `yaml:"train,omitempty"`
	Test  *metrics.Scores `yaml:"test,omitempty"`

	Charts []string `yaml:"charts,omitempty"`
}

// FilterSummary records the variance filter outcome.
type FilterSummary struct {
	Threshold        float64  `yaml:"threshold"`
	InputFeatures    int      `yaml:"input_features"`
	RetainedFeatures []string `yaml:"retained_features"`
}

// SplitSummary records the train/test partition.
type SplitSummary struct {
	TestSize    float64 `yaml:"test_size"`
	RandomState int64   `yaml:"random_state"`
	Stratify    bool    `yaml:"stratify"`
	Train       int     `yaml:"train"`
	Test        int     `yaml:"test"`
}

// ModelSummary records the classifier and its hyperparameters.
type ModelSummary struct {
	Name   string                 `yaml:"name"`
	Params map[string]interface{} `yaml:"params"`
}

// WriteSummary writes s to path as YAML.
func WriteSummary(path string, s *Summary) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "marshal run summary")
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "write run summary %s", path)
	}
	return nil
}

// ReadSummary reads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read run summary %s", path)
	}
	var s Summary
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrapf(err, "parse run summary %s", path)
	}
	return &s, nil
}
