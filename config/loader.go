package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// EnvPrefix marks the environment variables read by Load.
const EnvPrefix = "ACHEPRED_"

const maxConfigFileSize = 1024 * 1024

// defaults mirrors the settings of the published AChEpred model.
var defaults = []byte(`
dataset:
  source: ` + dataset.DefaultSource + `
  score_column: pIC50
  label_column: class
labels:
  intermediate: reject
filter:
  threshold: 0.1
split:
  test_size: 0.2
  random_state: 42
  stratify: false
model:
  n_estimators: 100
  max_depth: 0
  min_samples_split: 2
  min_samples_leaf: 1
  max_features: sqrt
  criterion: gini
  random_state: 42
  n_jobs: 0
  save_path: ""
log:
  level: info
  format: console
report:
  dir: ""
  preview_rows: 5
  preview_cols: 8
`)

// Load builds the configuration. Precedence, highest first:
//
//  1. overrides (command-line flags, keyed by koanf path)
//  2. ACHEPRED_* environment variables
//  3. the YAML file at path, when path is not empty
//  4. built-in defaults
//
// Environment names map to keys by splitting on the first underscore after
// the prefix:
//
//	ACHEPRED_FILTER_THRESHOLD -> filter.threshold
//	ACHEPRED_SPLIT_TEST_SIZE  -> split.test_size
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, errors.Wrap(err, "load default config")
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "load environment variables")
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, errors.Wrapf(err, "apply override %s", key)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		// the embedded defaults are fixed and valid
		panic(err)
	}
	return cfg
}

// envKey maps ACHEPRED_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat config file %s", path)
	}
	if info.IsDir() {
		return nil, errors.Newf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, errors.Newf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	return content, nil
}
