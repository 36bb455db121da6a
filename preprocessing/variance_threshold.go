// Package preprocessing provides feature selection transformers.
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/achepred/core/model"
	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// DefaultVarianceThreshold is the threshold used when none is configured.
const DefaultVarianceThreshold = 0.1

// VarianceThreshold drops every feature whose population variance is not
// strictly greater than Threshold. It is scikit-learn's VarianceThreshold
// with the same "> threshold" rule.
type VarianceThreshold struct {
	state *model.StateManager

	// Threshold is the variance a column must exceed to be kept.
	Threshold float64

	// Variances holds the population variance of each training column.
	Variances []float64

	support []bool
}

// NewVarianceThreshold creates a VarianceThreshold. The threshold is
// validated by Fit.
//
//	vt := preprocessing.NewVarianceThreshold(0.1)
//	XFiltered, err := vt.FitTransform(X)
func NewVarianceThreshold(threshold float64) *VarianceThreshold {
	return &VarianceThreshold{
		state:     model.NewStateManager(),
		Threshold: threshold,
	}
}

// NewVarianceThresholdDefault uses DefaultVarianceThreshold.
func NewVarianceThresholdDefault() *VarianceThreshold {
	return NewVarianceThreshold(DefaultVarianceThreshold)
}

// ValidateThreshold rejects negative and NaN thresholds.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 {
		return errors.NewInvalidThresholdError(threshold)
	}
	return nil
}

// Fit computes the variance of every column of X.
func (v *VarianceThreshold) Fit(X mat.Matrix) error {
	if err := ValidateThreshold(v.Threshold); err != nil {
		return err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewEmptyInputError("VarianceThreshold.Fit", r, c)
	}
	if err := errors.CheckMatrix("VarianceThreshold.Fit", X, r, c); err != nil {
		return err
	}

	variances := make([]float64, c)
	support := make([]bool, c)
	col := make([]float64, r)
	kept := 0
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			col[i] = X.At(i, j)
		}
		variances[j] = stat.PopVariance(col, nil)
		// constant columns can pick up rounding noise from the mean
		if variances[j] < 0 {
			variances[j] = 0
		}
		support[j] = variances[j] > v.Threshold
		if support[j] {
			kept++
		}
	}

	if kept == 0 {
		errors.Warn(errors.NewDataConversionWarning("VarianceThreshold.Fit",
			fmt.Sprintf("no feature has variance above %g", v.Threshold), c))
	}

	v.Variances = variances
	v.support = support
	v.state.SetDimensions(c, r)
	v.state.SetFitted()
	return nil
}

// Transform keeps the supported columns of X in their original order. Row
// count and order are unchanged. When no column is supported the result is
// a Frame with the input's rows and no columns.
func (v *VarianceThreshold) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := v.state.RequireFitted("VarianceThreshold", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewEmptyInputError("VarianceThreshold.Transform", r, c)
	}
	if err := v.state.CheckFeatures("VarianceThreshold.Transform", X); err != nil {
		return nil, err
	}

	cols := v.SupportIndices()
	if len(cols) == 0 {
		empty, err := dataset.NewFrame(nil, r, nil)
		if err != nil {
			return nil, err
		}
		return empty, nil
	}
	result := mat.NewDense(r, len(cols), nil)
	for i := 0; i < r; i++ {
		for k, j := range cols {
			result.Set(i, k, X.At(i, j))
		}
	}
	return result, nil
}

// FitTransform fits on X and transforms it.
func (v *VarianceThreshold) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := v.Fit(X); err != nil {
		return nil, err
	}
	return v.Transform(X)
}

// GetSupport returns a mask of the kept columns.
func (v *VarianceThreshold) GetSupport() []bool {
	return append([]bool(nil), v.support...)
}

// SupportIndices returns the indices of the kept columns in ascending order.
func (v *VarianceThreshold) SupportIndices() []int {
	var idx []int
	for j, keep := range v.support {
		if keep {
			idx = append(idx, j)
		}
	}
	return idx
}

// IsFitted reports whether Fit has succeeded.
func (v *VarianceThreshold) IsFitted() bool {
	return v.state.IsFitted()
}

// GetParams returns the hyperparameters.
func (v *VarianceThreshold) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"threshold": v.Threshold,
	}
}

// String describes the transformer.
func (v *VarianceThreshold) String() string {
	if !v.IsFitted() {
		return fmt.Sprintf("VarianceThreshold(threshold=%g)", v.Threshold)
	}
	return fmt.Sprintf("VarianceThreshold(threshold=%g, n_features=%d, kept=%d)",
		v.Threshold, len(v.support), len(v.SupportIndices()))
}

// FilterFrame fits a VarianceThreshold on frame and returns the frame
// restricted to the kept columns, names included. The fitted transformer is
// returned for inspection.
func FilterFrame(frame *dataset.Frame, threshold float64) (*dataset.Frame, *VarianceThreshold, error) {
	vt := NewVarianceThreshold(threshold)
	if err := vt.Fit(frame); err != nil {
		return nil, nil, err
	}
	return frame.SelectColumns(vt.SupportIndices()), vt, nil
}
