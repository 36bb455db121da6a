// Package pipeline runs the AChEpred workflow: load the bioactivity table,
// derive classes, build X and Y, drop low-variance fingerprint bits, then fit
// and evaluate a random forest.
//
// Each stage consumes the full output of the previous one. A failing stage
// stops the run with a StageError naming it.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/achepred/config"
	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/metrics"
	"github.com/YuminosukeSato/achepred/model_selection"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/pkg/log"
	"github.com/YuminosukeSato/achepred/preprocessing"
	"github.com/YuminosukeSato/achepred/qsar"
	"github.com/YuminosukeSato/achepred/report"
	"github.com/YuminosukeSato/achepred/sklearn/ensemble"
)

// Chart and summary file names written under report.dir.
const (
	SummaryFile         = "summary.yaml"
	ScoreChartFile      = "pic50_histogram.png"
	VarianceChartFile   = "feature_variance.png"
	ImportanceChartFile = "feature_importance.png"
	ConfusionChartFile  = "confusion_test.png"

	importanceTop = 20
)

// Artifacts holds the output of every stage that ran.
type Artifacts struct {
	RunID string

	Raw      *dataset.Dataset
	Labeled  *qsar.LabeledDataset
	XY       *qsar.Split
	Filter   *preprocessing.VarianceThreshold
	Filtered *dataset.Frame

	Partition *model_selection.TrainTest
	Model     *ensemble.RandomForestClassifier
	Train     *metrics.Scores
	Test      *metrics.Scores

	Summary *report.Summary
}

// Pipeline executes the workflow for one configuration.
type Pipeline struct {
	cfg    *config.Config
	loader *dataset.Loader
	logger log.Logger
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Stage records carry the run id and stage name.
func WithLogger(logger log.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithLoader replaces the dataset loader, e.g. to supply an HTTP client.
func WithLoader(loader *dataset.Loader) Option {
	return func(p *Pipeline) { p.loader = loader }
}

// New returns a Pipeline for cfg. cfg must have passed Validate.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader == nil {
		p.loader = dataset.NewLoader(cfg.Schema())
	}
	if p.logger == nil {
		p.logger = log.GetLoggerWithName("pipeline")
	}
	return p
}

// Prepare runs the data stages: load, label, split and filter. The filtered
// frame may have no columns when every feature falls at or below the
// threshold.
func (p *Pipeline) Prepare(ctx context.Context) (*Artifacts, error) {
	a := &Artifacts{RunID: uuid.NewString()}
	logger := p.logger.With(log.RunIDKey, a.RunID)
	if err := p.prepare(ctx, logger, a); err != nil {
		return a, err
	}
	return a, nil
}

// Run runs the full workflow: the data stages, a train/test partition, the
// forest fit, evaluation on both subsets and, when report.dir is set, the
// chart and summary files.
func (p *Pipeline) Run(ctx context.Context) (*Artifacts, error) {
	started := p.now()
	a := &Artifacts{RunID: uuid.NewString()}
	logger := p.logger.With(log.RunIDKey, a.RunID)
	logger.Info("Run started", log.SourceKey, p.cfg.Dataset.Source)

	if err := p.prepare(ctx, logger, a); err != nil {
		return a, err
	}

	if err := p.stage(ctx, logger, log.StagePartition, func(l log.Logger) error {
		tt, err := model_selection.TrainTestSplit(a.Filtered, a.XY.Y,
			model_selection.WithTestSize(p.cfg.Split.TestSize),
			model_selection.WithRandomState(p.cfg.Split.RandomState),
			model_selection.WithStratify(p.cfg.Split.Stratify),
		)
		if err != nil {
			return err
		}
		a.Partition = tt
		l.Info("Train/test partition built",
			"split.train", len(tt.TrainIndex),
			"split.test", len(tt.TestIndex),
			log.RandomSeedKey, p.cfg.Split.RandomState,
		)
		return nil
	}); err != nil {
		return a, err
	}

	if err := p.stage(ctx, logger, log.StageFit, func(l log.Logger) error {
		m := p.cfg.Model
		rf := ensemble.NewRandomForestClassifier(
			ensemble.WithNEstimators(m.NEstimators),
			ensemble.WithCriterion(m.Criterion),
			ensemble.WithMaxDepth(m.MaxDepth),
			ensemble.WithMinSamplesSplit(m.MinSamplesSplit),
			ensemble.WithMinSamplesLeaf(m.MinSamplesLeaf),
			ensemble.WithMaxFeatures(m.MaxFeatures),
			ensemble.WithRandomState(m.RandomState),
			ensemble.WithNJobs(m.NJobs),
			ensemble.WithLogger(l),
		)
		tt := a.Partition
		if err := rf.Fit(tt.XTrain, metrics.VecFromSlice(tt.YTrain)); err != nil {
			return err
		}
		a.Model = rf
		l.Info("Random forest fitted",
			log.EstimatorsKey, m.NEstimators,
			log.SamplesKey, len(tt.YTrain),
			log.FeaturesKey, len(tt.XTrain.Names()),
		)
		if m.SavePath != "" {
			if err := rf.Save(m.SavePath); err != nil {
				return err
			}
			l.Info("Model saved", "model.path", m.SavePath)
		}
		return nil
	}); err != nil {
		return a, err
	}

	if err := p.stage(ctx, logger, log.StageEvaluate, func(l log.Logger) error {
		tt := a.Partition
		var err error
		if a.Train, err = evaluate(a.Model, tt.XTrain, tt.YTrain); err != nil {
			return errors.Wrap(err, "evaluate train subset")
		}
		if a.Test, err = evaluate(a.Model, tt.XTest, tt.YTest); err != nil {
			return errors.Wrap(err, "evaluate test subset")
		}
		for _, s := range []struct {
			name   string
			scores *metrics.Scores
		}{{"train", a.Train}, {"test", a.Test}} {
			l.Info("Model evaluated",
				log.SubsetKey, s.name,
				log.AccuracyKey, s.scores.Accuracy,
				log.RecallKey, s.scores.Recall,
				log.MCCKey, s.scores.MCC,
			)
		}
		return nil
	}); err != nil {
		return a, err
	}

	a.Summary = p.summary(a, started)

	if p.cfg.Report.Dir != "" {
		if err := p.stage(ctx, logger, log.StageReport, func(l log.Logger) error {
			return p.writeReport(l, a)
		}); err != nil {
			return a, err
		}
	}

	logger.Info("Run finished", log.DurationMsKey, a.Summary.DurationMs)
	return a, nil
}

func (p *Pipeline) prepare(ctx context.Context, logger log.Logger, a *Artifacts) error {
	if err := p.stage(ctx, logger, log.StageLoad, func(l log.Logger) error {
		ds, err := p.loader.Load(ctx, p.cfg.Dataset.Source)
		if err != nil {
			return err
		}
		a.Raw = ds
		_, c := ds.Features().Dims()
		l.Info("Dataset loaded",
			log.SourceKey, p.cfg.Dataset.Source,
			log.SamplesKey, ds.Len(),
			log.FeaturesKey, c,
		)
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, logger, log.StageLabel, func(l log.Logger) error {
		labeled, err := qsar.DeriveLabels(a.Raw)
		if err != nil {
			return err
		}
		a.Labeled = labeled
		counts := labeled.Counts()
		l.Info("Bioactivity classes derived",
			log.ActiveKey, counts[qsar.Active],
			log.InactiveKey, counts[qsar.Inactive],
			log.IntermediateKey, counts[qsar.Intermediate],
		)
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, logger, log.StageSplit, func(l log.Logger) error {
		policy, err := p.cfg.IntermediatePolicy()
		if err != nil {
			return err
		}
		xy, err := qsar.SplitXY(a.Labeled, policy)
		if err != nil {
			return err
		}
		a.XY = xy
		l.Info("Features and target separated",
			log.SamplesKey, len(xy.Y),
			log.DroppedKey, xy.Dropped,
		)
		return nil
	}); err != nil {
		return err
	}

	return p.stage(ctx, logger, log.StageFilter, func(l log.Logger) error {
		filtered, vt, err := preprocessing.FilterFrame(a.XY.X, p.cfg.Filter.Threshold)
		if err != nil {
			return err
		}
		a.Filter, a.Filtered = vt, filtered
		_, in := a.XY.X.Dims()
		_, kept := filtered.Dims()
		l.Info("Variance filter applied",
			log.ThresholdKey, p.cfg.Filter.Threshold,
			log.FeaturesKey, in,
			log.RetainedKey, kept,
		)
		return nil
	})
}

// stage runs fn under the stage name. Panics become PanicErrors and every
// failure is wrapped in a StageError.
func (p *Pipeline) stage(ctx context.Context, logger log.Logger, name string, fn func(log.Logger) error) error {
	l := logger.With(log.StageKey, name)
	if err := ctx.Err(); err != nil {
		return errors.NewStageError(name, err)
	}

	start := p.now()
	err := errors.SafeExecute(name, func() error { return fn(l) })
	elapsed := p.now().Sub(start).Milliseconds()
	if err != nil {
		l.Error("Stage failed", err, log.DurationMsKey, elapsed)
		return errors.NewStageError(name, err)
	}
	l.Debug("Stage finished", log.DurationMsKey, elapsed)
	return nil
}

// evaluate scores rf on one subset. The AUC uses the probability of class 1.
func evaluate(rf *ensemble.RandomForestClassifier, X *dataset.Frame, y []float64) (*metrics.Scores, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return nil, err
	}
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := pred.Dims()
	labels := make([]float64, n)
	for i := range labels {
		labels[i] = pred.At(i, 0)
	}
	return metrics.Evaluate(y, labels, positiveScores(proba, rf.Classes()))
}

// positiveScores returns the class-1 probability column, or zeros when the
// model never saw class 1.
func positiveScores(proba mat.Matrix, classes []int) []float64 {
	n, _ := proba.Dims()
	out := make([]float64, n)
	for k, c := range classes {
		if c != 1 {
			continue
		}
		for i := range out {
			out[i] = proba.At(i, k)
		}
	}
	return out
}

func (p *Pipeline) summary(a *Artifacts, started time.Time) *report.Summary {
	classes := make(map[string]int)
	for lb, n := range a.Labeled.Counts() {
		classes[lb.String()] = n
	}
	_, in := a.XY.X.Dims()
	return &report.Summary{
		RunID:        a.RunID,
		Source:       p.cfg.Dataset.Source,
		StartedAt:    started.UTC(),
		DurationMs:   p.now().Sub(started).Milliseconds(),
		Records:      a.Raw.Len(),
		Classes:      classes,
		Intermediate: p.cfg.Labels.Intermediate,
		Dropped:      a.XY.Dropped,
		Filter: report.FilterSummary{
			Threshold:        p.cfg.Filter.Threshold,
			InputFeatures:    in,
			RetainedFeatures: a.Filtered.Names(),
		},
		Split: report.SplitSummary{
			TestSize:    p.cfg.Split.TestSize,
			RandomState: p.cfg.Split.RandomState,
			Stratify:    p.cfg.Split.Stratify,
			Train:       len(a.Partition.TrainIndex),
			Test:        len(a.Partition.TestIndex),
		},
		Model: report.ModelSummary{
			Name:   "RandomForestClassifier",
			Params: a.Model.GetParams(),
		},
		Train: a.Train,
		Test:  a.Test,
	}
}

func (p *Pipeline) writeReport(l log.Logger, a *Artifacts) error {
	dir := p.cfg.Report.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create report directory %s", dir)
	}

	charts := []struct {
		file string
		draw func(path string) error
	}{
		{ScoreChartFile, func(path string) error {
			return report.ScoreHistogram(a.Raw.Scores(), a.Raw.Schema().ScoreColumn, path)
		}},
		{VarianceChartFile, func(path string) error {
			return report.VarianceChart(a.Filter.Variances, a.Filter.Threshold, path)
		}},
		{ImportanceChartFile, func(path string) error {
			return report.ImportanceChart(a.Filtered.Names(), a.Model.FeatureImportances(), importanceTop, path)
		}},
		{ConfusionChartFile, func(path string) error {
			return report.ConfusionChart(a.Test.Confusion, "Test set", path)
		}},
	}
	for _, c := range charts {
		path := filepath.Join(dir, c.file)
		if err := c.draw(path); err != nil {
			return errors.Wrapf(err, "draw %s", c.file)
		}
		a.Summary.Charts = append(a.Summary.Charts, c.file)
	}

	path := filepath.Join(dir, SummaryFile)
	if err := report.WriteSummary(path, a.Summary); err != nil {
		return err
	}
	l.Info("Report written", "report.dir", dir, "report.charts", len(a.Summary.Charts))
	return nil
}
