package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewInvalidScoreError(t *testing.T) {
	err := NewInvalidScoreError(3, "pIC50", math.NaN())

	want := "achepred: invalid score in column 'pIC50' at row 3: NaN"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var scoreErr *InvalidScoreError
	if !As(err, &scoreErr) {
		t.Fatal("Error should be castable to *InvalidScoreError")
	}
	if scoreErr.Row != 3 {
		t.Errorf("Row = %d, want 3", scoreErr.Row)
	}

	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}
}

func TestNewUnknownLabelError(t *testing.T) {
	tests := []struct {
		name    string
		row     int
		wantMsg string
	}{
		{
			name:    "with row",
			row:     7,
			wantMsg: "achepred: label 'intermediate' at row 7 has no target encoding",
		},
		{
			name:    "without row",
			row:     -1,
			wantMsg: "achepred: label 'intermediate' has no target encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewUnknownLabelError(tt.row, "intermediate")
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			var labelErr *UnknownLabelError
			if !As(err, &labelErr) {
				t.Error("Error should be castable to *UnknownLabelError")
			}
		})
	}
}

func TestNewEmptyInputError(t *testing.T) {
	err := NewEmptyInputError("VarianceThreshold.Fit", 0, 4)

	if !Is(err, ErrEmptyInput) {
		t.Error("Expected Is(err, ErrEmptyInput) to be true")
	}

	wrapped := Wrap(err, "filtering features")
	if !Is(wrapped, ErrEmptyInput) {
		t.Error("Expected wrapped error to match ErrEmptyInput")
	}

	want := "achepred: VarianceThreshold.Fit: empty input (0 rows x 4 columns)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestNewInvalidThresholdError(t *testing.T) {
	err := NewInvalidThresholdError(-0.5)

	var thErr *InvalidThresholdError
	if !As(err, &thErr) {
		t.Fatal("Error should be castable to *InvalidThresholdError")
	}
	if thErr.Threshold != -0.5 {
		t.Errorf("Threshold = %v, want -0.5", thErr.Threshold)
	}
}

func TestStageError(t *testing.T) {
	if NewStageError("label", nil) != nil {
		t.Error("NewStageError(nil) should be nil")
	}

	cause := NewInvalidScoreError(0, "pIC50", math.Inf(1))
	err := NewStageError("label", cause)

	var stageErr *StageError
	if !As(err, &stageErr) {
		t.Fatal("Error should be castable to *StageError")
	}
	if stageErr.Stage != "label" {
		t.Errorf("Stage = %q, want label", stageErr.Stage)
	}

	var scoreErr *InvalidScoreError
	if !As(err, &scoreErr) {
		t.Error("StageError should unwrap to the cause")
	}
	if !strings.Contains(err.Error(), "stage label failed") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			err:     fmt.Errorf("test error"),
			wantMsg: "achepred: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			wantMsg: "achepred: Fit: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError("Fit", "invalid input", tt.err)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 8, 1)

	want := "achepred: Predict: dimension mismatch on axis 1 (features). Expected 10, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestWithHint(t *testing.T) {
	err := WithHint(NewInvalidThresholdError(-1), "use a threshold >= 0")

	if !strings.Contains(FlattenHints(err), "threshold >= 0") {
		t.Errorf("hint missing: %q", FlattenHints(err))
	}
	var thErr *InvalidThresholdError
	if !As(err, &thErr) {
		t.Error("hint wrapper should keep the error type")
	}
}

func TestWarn(t *testing.T) {
	var got []error
	SetZerologWarnFunc(nil)
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewUndefinedMetricWarning("recall", "no positive samples", 0))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "'recall' is ill-defined") {
		t.Errorf("unexpected warning: %v", got[0])
	}
}

func TestCheckMatrix(t *testing.T) {
	m := [][]float64{{1, 2}, {3, math.NaN()}}
	at := atFunc(func(i, j int) float64 { return m[i][j] })

	err := CheckMatrix("ReadCSV", at, 2, 2)
	if err == nil {
		t.Fatal("expected error for NaN cell")
	}
	if !strings.Contains(err.Error(), "row 1, column 1") {
		t.Errorf("unexpected message: %v", err)
	}
	if SafeDivide(1, 0) != 0 {
		t.Error("SafeDivide by zero should be 0")
	}
}

type atFunc func(i, j int) float64

func (f atFunc) At(i, j int) float64 { return f(i, j) }
