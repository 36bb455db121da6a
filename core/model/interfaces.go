// Package model defines the estimator contracts shared by the transformers
// and classifiers of the workflow.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter learns from a feature matrix and a target column.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor predicts one target value per row.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Transformer learns column statistics and rewrites a feature matrix.
type Transformer interface {
	// Fit learns the statistics the transform needs.
	Fit(X mat.Matrix) error

	// Transform applies the fitted transform.
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform runs Fit then Transform on the same data.
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Classifier combines the interfaces of a probabilistic classifier.
type Classifier interface {
	Fitter
	Predictor

	// PredictProba returns one column per class, ordered as Classes().
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the class labels seen during fitting.
	Classes() []int

	// Score returns the mean accuracy on X, y.
	Score(X, y mat.Matrix) float64
}

// ParameterGetter exposes hyperparameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter updates hyperparameters.
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}
