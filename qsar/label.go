// Package qsar turns potency scores into bioactivity classes and builds the
// feature matrix and encoded target used to train the classifier.
package qsar

import (
	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Label is the bioactivity class of a compound.
type Label int

const (
	Inactive Label = iota
	Active
	Intermediate
)

// Class boundaries on pIC50. Both are inclusive.
const (
	InactiveMax = 5.0
	ActiveMin   = 6.0
)

// String returns the class name used in the source data.
func (l Label) String() string {
	switch l {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Intermediate:
		return "intermediate"
	default:
		return "unknown"
	}
}

// ParseLabel is the inverse of Label.String.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "inactive":
		return Inactive, nil
	case "active":
		return Active, nil
	case "intermediate":
		return Intermediate, nil
	default:
		return 0, errors.NewUnknownLabelError(-1, s)
	}
}

// Classify maps a pIC50 score to its class:
//
//	s <= 5      inactive
//	s >= 6      active
//	5 < s < 6   intermediate
//
// NaN and infinite scores are rejected with an InvalidScoreError at row -1.
func Classify(score float64) (Label, error) {
	if !errors.IsFinite(score) {
		return 0, errors.NewInvalidScoreError(-1, dataset.DefaultScoreColumn, score)
	}
	switch {
	case score <= InactiveMax:
		return Inactive, nil
	case score >= ActiveMin:
		return Active, nil
	default:
		return Intermediate, nil
	}
}

// LabeledDataset is a Dataset with one derived Label per record.
type LabeledDataset struct {
	*dataset.Dataset
	labels []Label
}

// Label returns the class of record i.
func (l *LabeledDataset) Label(i int) Label { return l.labels[i] }

// Labels returns a copy of the class column.
func (l *LabeledDataset) Labels() []Label {
	return append([]Label(nil), l.labels...)
}

// Counts returns the number of records per class.
func (l *LabeledDataset) Counts() map[Label]int {
	counts := map[Label]int{Inactive: 0, Active: 0, Intermediate: 0}
	for _, lb := range l.labels {
		counts[lb]++
	}
	return counts
}

// DeriveLabels classifies every record of ds. ds is not modified. The first
// invalid score aborts the call with an InvalidScoreError naming its row.
func DeriveLabels(ds *dataset.Dataset) (*LabeledDataset, error) {
	column := ds.Schema().ScoreColumn
	labels := make([]Label, ds.Len())
	for i := range labels {
		score := ds.Score(i)
		lb, err := Classify(score)
		if err != nil {
			var scoreErr *errors.InvalidScoreError
			if errors.As(err, &scoreErr) {
				return nil, errors.NewInvalidScoreError(i, column, score)
			}
			return nil, err
		}
		labels[i] = lb
	}
	return &LabeledDataset{Dataset: ds, labels: labels}, nil
}
