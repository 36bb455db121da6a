package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/metrics"
	"github.com/YuminosukeSato/achepred/qsar"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	names := []string{"PubchemFP0", "PubchemFP1", "PubchemFP2"}
	data := []float64{
		1, 0, 1,
		0, 0, 1,
		1, 1, 0,
		1, 0, 0,
	}
	f, err := dataset.NewFrame(names, 4, data)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := dataset.New(dataset.DefaultSchema(), f, []float64{7.2, 4.1, 5.5, 6.0})
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestFrameTable(t *testing.T) {
	ds := testDataset(t)

	t.Run("full", func(t *testing.T) {
		out := FrameTable(ds.Features(), 10, 10)
		for _, want := range []string{"PubchemFP0", "PubchemFP2"} {
			if !strings.Contains(out, want) {
				t.Errorf("missing %q in\n%s", want, out)
			}
		}
		if strings.Contains(out, ellipsis) {
			t.Errorf("unexpected truncation in\n%s", out)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		out := FrameTable(ds.Features(), 2, 1)
		if strings.Contains(out, "PubchemFP1") {
			t.Errorf("column 1 should be hidden in\n%s", out)
		}
		if !strings.Contains(out, ellipsis) {
			t.Errorf("missing ellipsis in\n%s", out)
		}
	})
}

func TestDatasetAndLabeledTables(t *testing.T) {
	ds := testDataset(t)
	out := DatasetTable(ds, 5, 5)
	if !strings.Contains(out, "pIC50") || !strings.Contains(out, "7.2") {
		t.Errorf("DatasetTable() missing score column:\n%s", out)
	}

	labeled, err := qsar.DeriveLabels(ds)
	if err != nil {
		t.Fatal(err)
	}
	out = LabeledTable(labeled, 5, 5)
	for _, want := range []string{"class", "active", "inactive", "intermediate"} {
		if !strings.Contains(out, want) {
			t.Errorf("LabeledTable() missing %q:\n%s", want, out)
		}
	}

	out = ClassCountTable(labeled.Counts())
	if !strings.Contains(out, "total") || !strings.Contains(out, "4") {
		t.Errorf("ClassCountTable() =\n%s", out)
	}
}

func TestTargetAndScoresTables(t *testing.T) {
	out := TargetTable("class", []float64{1, 0, 1}, 2)
	if !strings.Contains(out, ellipsis) {
		t.Errorf("TargetTable() should truncate:\n%s", out)
	}

	train := &metrics.Scores{Accuracy: 1, MCC: 1, Confusion: metrics.Confusion{TN: 3, TP: 2}}
	out = ScoresTable([]string{"train", "test"}, []*metrics.Scores{train, nil})
	if !strings.Contains(out, "1.0000") || !strings.Contains(out, "[3 0; 0 2]") {
		t.Errorf("ScoresTable() =\n%s", out)
	}
	if strings.Contains(out, "test") {
		t.Errorf("nil subset should be skipped:\n%s", out)
	}
}

func TestCharts(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		draw func(path string) error
	}{
		{
			name: "score histogram",
			file: "pic50.png",
			draw: func(path string) error {
				return ScoreHistogram([]float64{3.1, 4.5, 5.2, 5.9, 6.3, 7.7, 8.1}, "pIC50", path)
			},
		},
		{
			name: "confusion",
			file: "confusion.png",
			draw: func(path string) error {
				return ConfusionChart(metrics.Confusion{TN: 10, FP: 2, FN: 3, TP: 12}, "test", path)
			},
		},
		{
			name: "variance",
			file: "variance.png",
			draw: func(path string) error {
				return VarianceChart([]float64{0.25, 0.01, 0.2, 0.0}, 0.1, path)
			},
		},
		{
			name: "importance",
			file: "importance.png",
			draw: func(path string) error {
				return ImportanceChart([]string{"a", "b", "c"}, []float64{0.2, 0.5, 0.3}, 2, path)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := tt.draw(path); err != nil {
				t.Fatalf("draw error = %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if info.Size() == 0 {
				t.Error("chart file is empty")
			}
		})
	}

	if err := ScoreHistogram(nil, "pIC50", filepath.Join(dir, "empty.png")); err == nil {
		t.Error("expected error for no scores")
	}
	if err := ConfusionChart(metrics.Confusion{}, "empty", filepath.Join(dir, "empty.png")); err == nil {
		t.Error("expected error for an empty confusion matrix")
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	in := &Summary{
		RunID:        "run-1",
		Source:       "acetylcholinesterase.csv",
		StartedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Records:      4,
		Classes:      map[string]int{"active": 2, "inactive": 1, "intermediate": 1},
		Intermediate: "drop",
		Dropped:      1,
		Filter:       FilterSummary{Threshold: 0.1, InputFeatures: 3, RetainedFeatures: []string{"PubchemFP0"}},
		Split:        SplitSummary{TestSize: 0.2, RandomState: 42, Train: 2, Test: 1},
		Test:         &metrics.Scores{Accuracy: 1, Confusion: metrics.Confusion{TP: 1}},
	}
	if err := WriteSummary(path, in); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"run_id: run-1", "variance_filter:", "retained_features:", "confusion_matrix:"} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("summary missing %q:\n%s", key, raw)
		}
	}

	out, err := ReadSummary(path)
	if err != nil {
		t.Fatalf("ReadSummary() error = %v", err)
	}
	if out.RunID != in.RunID || out.Dropped != 1 || out.Test.Confusion.TP != 1 || !out.StartedAt.Equal(in.StartedAt) {
		t.Errorf("ReadSummary() = %+v", out)
	}
}
