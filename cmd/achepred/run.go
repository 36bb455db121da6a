package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/achepred/config"
	"github.com/YuminosukeSato/achepred/metrics"
	"github.com/YuminosukeSato/achepred/pipeline"
	"github.com/YuminosukeSato/achepred/report"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full workflow and print model metrics",
		Long: `Run every stage: prepare the filtered feature matrix, split it into train
and test sets, fit the random forest and evaluate it on both sets. With
--report-dir the charts and a YAML summary are written as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.setup(cmd)
			if err != nil {
				return reportError(cmd, err)
			}
			a, err := pipeline.New(cfg).Run(cmd.Context())
			if !quiet {
				printPrepared(cmd.OutOrStdout(), cfg, a)
			}
			if err != nil {
				return reportError(cmd, err)
			}
			printRun(cmd.OutOrStdout(), cfg, a)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the metrics")
	return cmd
}

func printRun(w io.Writer, cfg *config.Config, a *pipeline.Artifacts) {
	note := fmt.Sprintf("%s; train %d rows, test %d rows", a.Model, len(a.Partition.TrainIndex), len(a.Partition.TestIndex))
	fmt.Fprintln(w, report.Section("Model performance",
		report.ScoresTable([]string{"train", "test"}, []*metrics.Scores{a.Train, a.Test}), note))
	if cfg.Report.Dir != "" {
		fmt.Fprintf(w, "Report written to %s (run %s)\n", cfg.Report.Dir, a.RunID)
	}
}
