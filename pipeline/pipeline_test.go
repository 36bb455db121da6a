package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/YuminosukeSato/achepred/config"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/pkg/log"
	"github.com/YuminosukeSato/achepred/report"
)

// compoundsCSV builds 40 records. PubchemFP0 is constant, PubchemFP1 marks
// the active compounds and PubchemFP2 is unrelated to the class. Records 5
// and 10 are intermediate.
func compoundsCSV() string {
	var b strings.Builder
	b.WriteString("PubchemFP0,PubchemFP1,PubchemFP2,pIC50\n")
	for i := 0; i < 40; i++ {
		active := i%2 == 0
		fp1 := 0
		score := 4.0 + float64(i%5)*0.2
		if active {
			fp1 = 1
			score = 6.5 + float64(i%5)*0.2
		}
		if i == 5 || i == 10 {
			score = 5.5
		}
		fmt.Fprintf(&b, "1,%d,%d,%.1f\n", fp1, (i/3)%2, score)
	}
	return b.String()
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compounds.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func silenceWarnings(t *testing.T) {
	t.Helper()
	errors.SetWarningHandler(func(error) {})
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
}

func testConfig(t *testing.T, source string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dataset.Source = source
	cfg.Labels.Intermediate = "drop"
	cfg.Model.NEstimators = 10
	cfg.Model.MaxFeatures = "all"
	cfg.Model.NJobs = 2
	return cfg
}

func stageOf(t *testing.T, err error) string {
	t.Helper()
	var se *errors.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StageError, got %v", err)
	}
	return se.Stage
}

func TestPipeline_Run(t *testing.T) {
	silenceWarnings(t)

	cfg := testConfig(t, writeCSV(t, compoundsCSV()))
	cfg.Report.Dir = filepath.Join(t.TempDir(), "report")
	logger, _ := log.NewTestLogger(log.LevelDebug)

	a, err := New(cfg, WithLogger(logger)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if a.Raw.Len() != 40 {
		t.Errorf("raw records = %d, want 40", a.Raw.Len())
	}
	if a.XY.Dropped != 2 || len(a.XY.Y) != 38 {
		t.Errorf("split kept %d and dropped %d, want 38 and 2", len(a.XY.Y), a.XY.Dropped)
	}
	if got := a.Filtered.Names(); !reflect.DeepEqual(got, []string{"PubchemFP1", "PubchemFP2"}) {
		t.Errorf("retained features = %v", got)
	}
	if got := len(a.Partition.TestIndex); got != 8 {
		t.Errorf("test rows = %d, want 8", got)
	}
	if a.Train.Accuracy != 1 {
		t.Errorf("train accuracy = %v, want 1", a.Train.Accuracy)
	}
	if a.Test.Accuracy < 0.9 {
		t.Errorf("test accuracy = %v, want >= 0.9", a.Test.Accuracy)
	}

	t.Run("report files", func(t *testing.T) {
		for _, name := range []string{SummaryFile, ScoreChartFile, VarianceChartFile, ImportanceChartFile, ConfusionChartFile} {
			if _, err := os.Stat(filepath.Join(cfg.Report.Dir, name)); err != nil {
				t.Errorf("missing %s: %v", name, err)
			}
		}
		s, err := report.ReadSummary(filepath.Join(cfg.Report.Dir, SummaryFile))
		if err != nil {
			t.Fatal(err)
		}
		if s.RunID != a.RunID {
			t.Errorf("summary run id = %s, want %s", s.RunID, a.RunID)
		}
		if s.Records != 40 || s.Dropped != 2 {
			t.Errorf("summary records = %d dropped = %d", s.Records, s.Dropped)
		}
		if s.Classes["intermediate"] != 2 {
			t.Errorf("summary classes = %v", s.Classes)
		}
		if len(s.Charts) != 4 {
			t.Errorf("summary charts = %v", s.Charts)
		}
	})

	t.Run("stage logging", func(t *testing.T) {
		for _, stage := range []string{log.StageLoad, log.StageLabel, log.StageSplit, log.StageFilter,
			log.StagePartition, log.StageFit, log.StageEvaluate, log.StageReport} {
			if !logger.ContainsField(log.StageKey, stage) {
				t.Errorf("no record for stage %s", stage)
			}
		}
		if !logger.ContainsField(log.RunIDKey, a.RunID) {
			t.Error("records do not carry the run id")
		}
		if !logger.ContainsField(log.RetainedKey, float64(2)) {
			t.Error("filter record does not report 2 retained features")
		}
	})
}

func TestPipeline_RunDeterministic(t *testing.T) {
	silenceWarnings(t)
	cfg := testConfig(t, writeCSV(t, compoundsCSV()))
	logger, _ := log.NewTestLogger(log.LevelError)

	first, err := New(cfg, WithLogger(logger)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(cfg, WithLogger(logger)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Partition.TestIndex, second.Partition.TestIndex) {
		t.Error("test partitions differ")
	}
	if !reflect.DeepEqual(first.Test, second.Test) {
		t.Errorf("test scores differ: %+v vs %+v", first.Test, second.Test)
	}
	if first.RunID == second.RunID {
		t.Error("run ids repeat")
	}
}

func TestPipeline_Prepare(t *testing.T) {
	silenceWarnings(t)
	path := writeCSV(t, compoundsCSV())
	logger, _ := log.NewTestLogger(log.LevelError)

	t.Run("stops after the filter", func(t *testing.T) {
		a, err := New(testConfig(t, path), WithLogger(logger)).Prepare(context.Background())
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if a.Filtered == nil || a.Partition != nil || a.Model != nil {
			t.Error("Prepare ran the wrong stages")
		}
	})

	t.Run("nothing retained", func(t *testing.T) {
		cfg := testConfig(t, path)
		cfg.Filter.Threshold = 10
		a, err := New(cfg, WithLogger(logger)).Prepare(context.Background())
		if err != nil {
			t.Fatalf("Prepare() error = %v", err)
		}
		if r, c := a.Filtered.Dims(); r != 38 || c != 0 {
			t.Errorf("filtered dims = (%d, %d), want (38, 0)", r, c)
		}
	})
}

func TestPipeline_StageErrors(t *testing.T) {
	silenceWarnings(t)
	logger, _ := log.NewTestLogger(log.LevelError)

	t.Run("intermediate rejected", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, compoundsCSV()))
		cfg.Labels.Intermediate = "reject"
		_, err := New(cfg, WithLogger(logger)).Run(context.Background())
		if got := stageOf(t, err); got != log.StageSplit {
			t.Errorf("stage = %s, want %s", got, log.StageSplit)
		}
		var target *errors.UnknownLabelError
		if !errors.As(err, &target) {
			t.Errorf("expected UnknownLabelError, got %v", err)
		}
	})

	t.Run("missing score", func(t *testing.T) {
		csv := "PubchemFP0,pIC50\n1,7.0\n0,\n"
		_, err := New(testConfig(t, writeCSV(t, csv)), WithLogger(logger)).Run(context.Background())
		if got := stageOf(t, err); got != log.StageLabel {
			t.Errorf("stage = %s, want %s", got, log.StageLabel)
		}
		var target *errors.InvalidScoreError
		if !errors.As(err, &target) {
			t.Errorf("expected InvalidScoreError, got %v", err)
		}
	})

	t.Run("every feature filtered", func(t *testing.T) {
		cfg := testConfig(t, writeCSV(t, compoundsCSV()))
		cfg.Filter.Threshold = 10
		_, err := New(cfg, WithLogger(logger)).Run(context.Background())
		if got := stageOf(t, err); got != log.StagePartition {
			t.Errorf("stage = %s, want %s", got, log.StagePartition)
		}
		if !errors.Is(err, errors.ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		cfg := testConfig(t, filepath.Join(t.TempDir(), "missing.csv"))
		_, err := New(cfg, WithLogger(logger)).Run(context.Background())
		if got := stageOf(t, err); got != log.StageLoad {
			t.Errorf("stage = %s, want %s", got, log.StageLoad)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New(testConfig(t, writeCSV(t, compoundsCSV())), WithLogger(logger)).Run(ctx)
		if got := stageOf(t, err); got != log.StageLoad {
			t.Errorf("stage = %s, want %s", got, log.StageLoad)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPipeline_HTTPSource(t *testing.T) {
	silenceWarnings(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, compoundsCSV())
	}))
	defer srv.Close()

	logger, _ := log.NewTestLogger(log.LevelError)
	a, err := New(testConfig(t, srv.URL+"/compounds.csv"), WithLogger(logger)).Prepare(context.Background())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if a.Raw.Len() != 40 {
		t.Errorf("records = %d, want 40", a.Raw.Len())
	}
}
