package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/achepred/config"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/pkg/log"
)

// globalOptions holds the persistent flags. A flag only overrides the
// configuration when it was set on the command line.
type globalOptions struct {
	configPath   string
	source       string
	threshold    float64
	intermediate string
	reportDir    string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "achepred",
		Short: "Acetylcholinesterase bioactivity classifier",
		Long: `achepred labels AChE inhibitors by pIC50, separates the PubChem fingerprint
features from the target, removes low-variance features and trains a random
forest to tell active from inactive compounds.

Settings come from built-in defaults, an optional YAML file (--config),
ACHEPRED_* environment variables (a .env file is read first) and finally
the flags below.

Examples:
  # Preview every stage up to the filtered feature matrix
  achepred prepare --intermediate drop

  # Train and evaluate, writing charts and a summary to ./out
  achepred run --intermediate drop --report-dir out

  # Use a local copy of the dataset and a stricter filter
  achepred run --source bioactivity.csv --threshold 0.16`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file")
	pf.StringVar(&opts.source, "source", "", "dataset URL or CSV path (dataset.source)")
	pf.Float64Var(&opts.threshold, "threshold", 0.1, "variance threshold (filter.threshold)")
	pf.StringVar(&opts.intermediate, "intermediate", "", "intermediate compounds: reject or drop (labels.intermediate)")
	pf.StringVar(&opts.reportDir, "report-dir", "", "directory for charts and summary (report.dir)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (log.level)")

	root.AddCommand(newPrepareCmd(opts))
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

// overrides maps the flags set on cmd to configuration keys.
func (o *globalOptions) overrides(cmd *cobra.Command) map[string]interface{} {
	flags := cmd.Flags()
	out := make(map[string]interface{})
	if flags.Changed("source") {
		out["dataset.source"] = o.source
	}
	if flags.Changed("threshold") {
		out["filter.threshold"] = o.threshold
	}
	if flags.Changed("intermediate") {
		out["labels.intermediate"] = o.intermediate
	}
	if flags.Changed("report-dir") {
		out["report.dir"] = o.reportDir
	}
	if flags.Changed("log-level") {
		out["log.level"] = o.logLevel
	}
	return out
}

// setup loads the configuration and installs the process logger.
func (o *globalOptions) setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.overrides(cmd))
	if err != nil {
		return nil, err
	}
	if err := log.SetupLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reportError prints err with any hints attached to it.
func reportError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", hint)
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the achepred version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "achepred %s\n", version)
		},
	}
}
