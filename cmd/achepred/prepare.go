package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/achepred/config"
	"github.com/YuminosukeSato/achepred/pipeline"
	"github.com/YuminosukeSato/achepred/report"
)

func newPrepareCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Build and preview the filtered feature matrix",
		Long: `Load the bioactivity table, derive the active, inactive and intermediate
classes, split features from the target and apply the variance filter.
A preview of every intermediate table is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.setup(cmd)
			if err != nil {
				return reportError(cmd, err)
			}
			a, err := pipeline.New(cfg).Prepare(cmd.Context())
			printPrepared(cmd.OutOrStdout(), cfg, a)
			if err != nil {
				return reportError(cmd, err)
			}
			return nil
		},
	}
}

// printPrepared previews each data artifact that exists.
func printPrepared(w io.Writer, cfg *config.Config, a *pipeline.Artifacts) {
	rows, cols := cfg.Report.PreviewRows, cfg.Report.PreviewCols

	if a.Raw != nil {
		r, c := a.Raw.Features().Dims()
		fmt.Fprintln(w, report.Section("Raw dataset", report.DatasetTable(a.Raw, rows, cols), report.Shape(r, c+1)))
	}
	if a.Labeled != nil {
		r, c := a.Labeled.Features().Dims()
		fmt.Fprintln(w, report.Section("Labeled dataset", report.LabeledTable(a.Labeled, rows, cols), report.Shape(r, c+2)))
		fmt.Fprintln(w, report.Section("Class distribution", report.ClassCountTable(a.Labeled.Counts()), ""))
	}
	if a.XY != nil {
		r, c := a.XY.X.Dims()
		note := report.Shape(r, c)
		if a.XY.Dropped > 0 {
			note = fmt.Sprintf("%s, %d intermediate records dropped", note, a.XY.Dropped)
		}
		fmt.Fprintln(w, report.Section("X", report.FrameTable(a.XY.X, rows, cols), note))
		fmt.Fprintln(w, report.Section("Y", report.TargetTable(a.Labeled.Schema().LabelColumn, a.XY.Y, rows), fmt.Sprintf("%d rows", len(a.XY.Y))))
	}
	if a.Filtered != nil {
		r, c := a.Filtered.Dims()
		_, in := a.XY.X.Dims()
		note := fmt.Sprintf("%s, %d of %d features kept at threshold %g", report.Shape(r, c), c, in, cfg.Filter.Threshold)
		fmt.Fprintln(w, report.Section("Filtered X", report.FrameTable(a.Filtered, rows, cols), note))
	}
}
