package preprocessing

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

func silenceWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	return &got
}

func newFrame(t *testing.T, names []string, rows [][]float64) *dataset.Frame {
	t.Helper()
	var data []float64
	for _, r := range rows {
		data = append(data, r...)
	}
	f, err := dataset.NewFrame(names, len(rows), data)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestVarianceThreshold_Fit(t *testing.T) {
	silenceWarnings(t)

	// f1 is constant, f2 = 1..4 has population variance 1.25, f3 alternates
	// 0/1 with variance exactly 0.25.
	X := mat.NewDense(4, 3, []float64{
		0, 1, 0,
		0, 2, 1,
		0, 3, 0,
		0, 4, 1,
	})

	tests := []struct {
		name        string
		threshold   float64
		wantSupport []bool
	}{
		{name: "default", threshold: DefaultVarianceThreshold, wantSupport: []bool{false, true, true}},
		{name: "zero keeps non-constant", threshold: 0, wantSupport: []bool{false, true, true}},
		{name: "equal to variance is dropped", threshold: 0.25, wantSupport: []bool{false, true, false}},
		{name: "just below variance is kept", threshold: 0.2499, wantSupport: []bool{false, true, true}},
		{name: "high threshold", threshold: 2, wantSupport: []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := NewVarianceThreshold(tt.threshold)
			if err := vt.Fit(X); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			if got := vt.GetSupport(); !reflect.DeepEqual(got, tt.wantSupport) {
				t.Errorf("GetSupport() = %v, want %v", got, tt.wantSupport)
			}
		})
	}
}

func TestVarianceThreshold_Variances(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		0, 1, 0,
		0, 2, 1,
		0, 3, 0,
		0, 4, 1,
	})
	vt := NewVarianceThresholdDefault()
	if err := vt.Fit(X); err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1.25, 0.25}
	for j, v := range vt.Variances {
		if math.Abs(v-want[j]) > 1e-12 {
			t.Errorf("Variances[%d] = %v, want %v", j, v, want[j])
		}
	}
}

func TestVarianceThreshold_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 1,
		0, 2,
		0, 3,
		0, 4,
	})

	vt := NewVarianceThreshold(0.1)
	out, err := vt.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}

	r, c := out.Dims()
	if r != 4 || c != 1 {
		t.Fatalf("Dims() = (%d, %d), want (4, 1)", r, c)
	}
	for i := 0; i < r; i++ {
		if got := out.At(i, 0); got != float64(i+1) {
			t.Errorf("At(%d, 0) = %v, want %v", i, got, i+1)
		}
	}
}

func TestVarianceThreshold_KeepsRowsAndColumnOrder(t *testing.T) {
	X := mat.NewDense(3, 4, []float64{
		5, 0, 1, 9,
		1, 0, 7, 2,
		3, 0, 4, 6,
	})

	vt := NewVarianceThreshold(0.1)
	out, err := vt.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := vt.SupportIndices(), []int{0, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("SupportIndices() = %v, want %v", got, want)
	}
	want := mat.NewDense(3, 3, []float64{
		5, 1, 9,
		1, 7, 2,
		3, 4, 6,
	})
	if !mat.Equal(out, want) {
		t.Errorf("Transform() = %v, want %v", mat.Formatted(out), mat.Formatted(want))
	}
}

func TestVarianceThreshold_Idempotent(t *testing.T) {
	X := mat.NewDense(5, 4, []float64{
		1, 0, 0.1, 3,
		2, 0, 0.2, 1,
		3, 0, 0.1, 4,
		4, 0, 0.2, 1,
		5, 0, 0.1, 5,
	})

	first, err := NewVarianceThreshold(0.1).FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	vt := NewVarianceThreshold(0.1)
	second, err := vt.FitTransform(first)
	if err != nil {
		t.Fatal(err)
	}

	_, c1 := first.Dims()
	if got := len(vt.SupportIndices()); got != c1 {
		t.Errorf("second pass kept %d of %d columns", got, c1)
	}
	if !mat.Equal(first, second) {
		t.Error("second pass changed the matrix")
	}
}

func TestVarianceThreshold_Deterministic(t *testing.T) {
	X := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 4, 3,
		7, 2, 3,
	})
	a, err := NewVarianceThreshold(0.5).FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewVarianceThreshold(0.5).FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(a, b) {
		t.Error("two fits on the same input differ")
	}
}

func TestVarianceThreshold_Errors(t *testing.T) {
	valid := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	t.Run("negative threshold", func(t *testing.T) {
		err := NewVarianceThreshold(-0.1).Fit(valid)
		var target *errors.InvalidThresholdError
		if !errors.As(err, &target) {
			t.Fatalf("expected InvalidThresholdError, got %v", err)
		}
		if target.Threshold != -0.1 {
			t.Errorf("Threshold = %v, want -0.1", target.Threshold)
		}
	})

	t.Run("NaN threshold", func(t *testing.T) {
		err := NewVarianceThreshold(math.NaN()).Fit(valid)
		var target *errors.InvalidThresholdError
		if !errors.As(err, &target) {
			t.Fatalf("expected InvalidThresholdError, got %v", err)
		}
	})

	t.Run("zero rows", func(t *testing.T) {
		err := NewVarianceThreshold(0.1).Fit(newFrame(t, []string{"a", "b"}, nil))
		if !errors.Is(err, errors.ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	})

	t.Run("zero columns", func(t *testing.T) {
		f, err := dataset.NewFrame(nil, 3, nil)
		if err != nil {
			t.Fatal(err)
		}
		err = NewVarianceThreshold(0.1).Fit(f)
		if !errors.Is(err, errors.ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput, got %v", err)
		}
	})

	t.Run("non-finite value", func(t *testing.T) {
		X := mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4})
		err := NewVarianceThreshold(0.1).Fit(X)
		var target *errors.ValueError
		if !errors.As(err, &target) {
			t.Fatalf("expected ValueError, got %v", err)
		}
	})

	t.Run("transform before fit", func(t *testing.T) {
		_, err := NewVarianceThreshold(0.1).Transform(valid)
		var target *errors.NotFittedError
		if !errors.As(err, &target) {
			t.Fatalf("expected NotFittedError, got %v", err)
		}
	})

	t.Run("feature count mismatch", func(t *testing.T) {
		vt := NewVarianceThreshold(0.1)
		if err := vt.Fit(valid); err != nil {
			t.Fatal(err)
		}
		_, err := vt.Transform(mat.NewDense(2, 3, nil))
		var target *errors.DimensionError
		if !errors.As(err, &target) {
			t.Fatalf("expected DimensionError, got %v", err)
		}
	})
}

func TestVarianceThreshold_NothingKeptWarns(t *testing.T) {
	warnings := silenceWarnings(t)

	X := mat.NewDense(3, 2, []float64{1, 2, 1, 2, 1, 2})
	vt := NewVarianceThreshold(0)
	out, err := vt.FitTransform(X)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := out.Dims(); r != 3 || c != 0 {
		t.Errorf("Dims() = (%d, %d), want (3, 0)", r, c)
	}
	if len(*warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(*warnings))
	}
	var w *errors.DataConversionWarning
	if !errors.As((*warnings)[0], &w) || w.Count != 2 {
		t.Errorf("unexpected warning %v", (*warnings)[0])
	}
}

func TestVarianceThreshold_NothingKeptKeepsRows(t *testing.T) {
	silenceWarnings(t)

	tests := []struct {
		name string
		X    mat.Matrix
	}{
		{name: "constant columns", X: mat.NewDense(4, 2, []float64{0, 1, 0, 1, 0, 1, 0, 1})},
		{name: "single row", X: mat.NewDense(1, 3, []float64{1, 0, 1})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vt := NewVarianceThreshold(DefaultVarianceThreshold)
			out, err := vt.FitTransform(tt.X)
			if err != nil {
				t.Fatalf("FitTransform() error = %v", err)
			}
			wantRows, _ := tt.X.Dims()
			if r, c := out.Dims(); r != wantRows || c != 0 {
				t.Errorf("Dims() = (%d, %d), want (%d, 0)", r, c, wantRows)
			}

			again, err := vt.Transform(tt.X)
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if r, _ := again.Dims(); r != wantRows {
				t.Errorf("Transform() rows = %d, want %d", r, wantRows)
			}
		})
	}
}

func TestFilterFrame(t *testing.T) {
	silenceWarnings(t)

	frame := newFrame(t, []string{"f1", "f2"}, [][]float64{
		{0, 1},
		{0, 2},
		{0, 3},
		{0, 4},
	})

	t.Run("keeps named columns", func(t *testing.T) {
		out, vt, err := FilterFrame(frame, DefaultVarianceThreshold)
		if err != nil {
			t.Fatalf("FilterFrame() error = %v", err)
		}
		if got := out.Names(); !reflect.DeepEqual(got, []string{"f2"}) {
			t.Errorf("Names() = %v, want [f2]", got)
		}
		if got := out.Column(0); !reflect.DeepEqual(got, []float64{1, 2, 3, 4}) {
			t.Errorf("Column(0) = %v", got)
		}
		if !vt.IsFitted() {
			t.Error("returned transformer is not fitted")
		}
	})

	t.Run("zero retained keeps rows", func(t *testing.T) {
		out, _, err := FilterFrame(frame, 10)
		if err != nil {
			t.Fatal(err)
		}
		if r, c := out.Dims(); r != 4 || c != 0 {
			t.Errorf("Dims() = (%d, %d), want (4, 0)", r, c)
		}
	})

	t.Run("input untouched", func(t *testing.T) {
		if _, _, err := FilterFrame(frame, DefaultVarianceThreshold); err != nil {
			t.Fatal(err)
		}
		if r, c := frame.Dims(); r != 4 || c != 2 {
			t.Errorf("input Dims() = (%d, %d), want (4, 2)", r, c)
		}
	})
}

func TestVarianceThreshold_String(t *testing.T) {
	vt := NewVarianceThreshold(0.1)
	if got := vt.String(); got != "VarianceThreshold(threshold=0.1)" {
		t.Errorf("String() = %q", got)
	}
	if got := vt.GetParams()["threshold"]; got != 0.1 {
		t.Errorf("GetParams()[threshold] = %v", got)
	}
}
