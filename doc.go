// Package achepred builds a QSAR classifier for acetylcholinesterase (AChE)
// inhibitors from ChEMBL bioactivity records described by PubChem
// fingerprints.
//
// The workflow labels each compound from its pIC50 (inactive at or below 5,
// active at or above 6, intermediate in between), separates the fingerprint
// features from the encoded target, removes fingerprint bits whose variance
// does not exceed a threshold and trains a random forest on what remains.
//
// # Packages
//
//   - dataset: the Frame matrix and CSV loading (local path or HTTP)
//   - qsar: label derivation and the feature/target split
//   - preprocessing: the variance filter
//   - model_selection: seeded train/test splitting
//   - sklearn/tree, sklearn/ensemble: CART trees and the random forest
//   - metrics: confusion matrix, accuracy, recall, MCC, ROC AUC
//   - report: terminal previews, charts and the run summary
//   - pipeline: the staged workflow
//   - config: koanf-based configuration
//   - cmd/achepred: the command-line interface
//
// # Installation
//
//	go install github.com/YuminosukeSato/achepred/cmd/achepred@latest
//
// # Quick Start
//
// Preview the filtered feature matrix, then train and evaluate:
//
//	achepred prepare --intermediate drop
//	achepred run --intermediate drop --report-dir out
//
// The same stages are available as a library:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/achepred/config"
//	    "github.com/YuminosukeSato/achepred/pipeline"
//	)
//
//	func main() {
//	    cfg, err := config.Load("", map[string]interface{}{
//	        "labels.intermediate": "drop",
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    a, err := pipeline.New(cfg).Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("test accuracy %.3f, MCC %.3f\n", a.Test.Accuracy, a.Test.MCC)
//	}
//
// # Error Handling
//
// Stage failures are returned as *errors.StageError from pkg/errors and wrap
// a typed cause such as InvalidScoreError, UnknownLabelError,
// EmptyInputError or InvalidThresholdError:
//
//	var scoreErr *errors.InvalidScoreError
//	if errors.As(err, &scoreErr) {
//	    fmt.Printf("row %d has no usable pIC50\n", scoreErr.Row)
//	}
package achepred
