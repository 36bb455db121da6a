package qsar

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// IntermediatePolicy decides what Split does with intermediate records,
// which have no target encoding.
type IntermediatePolicy int

const (
	// IntermediateReject fails on the first intermediate record.
	IntermediateReject IntermediatePolicy = iota
	// IntermediateDrop removes intermediate records from X and Y.
	IntermediateDrop
)

// String returns the configuration name of the policy.
func (p IntermediatePolicy) String() string {
	switch p {
	case IntermediateReject:
		return "reject"
	case IntermediateDrop:
		return "drop"
	default:
		return fmt.Sprintf("IntermediatePolicy(%d)", int(p))
	}
}

// ParseIntermediatePolicy parses "reject" or "drop".
func ParseIntermediatePolicy(s string) (IntermediatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return IntermediateReject, nil
	case "drop":
		return IntermediateDrop, nil
	default:
		return 0, errors.NewValidationError("labels.intermediate", "must be reject or drop", s)
	}
}

// Encode maps a class to its target value: inactive 0, active 1.
// Intermediate has no encoding.
func Encode(l Label) (float64, error) {
	switch l {
	case Inactive:
		return 0, nil
	case Active:
		return 1, nil
	default:
		return 0, errors.NewUnknownLabelError(-1, l.String())
	}
}

// Decode is the inverse of Encode.
func Decode(v float64) (Label, error) {
	switch v {
	case 0:
		return Inactive, nil
	case 1:
		return Active, nil
	default:
		return 0, errors.NewUnknownLabelError(-1, fmt.Sprintf("%v", v))
	}
}

// Split is the feature matrix and encoded target derived from a labeled
// dataset. X and Y are row-aligned.
type Split struct {
	X *dataset.Frame
	Y []float64
	// Rows maps each row of X to its record index in the labeled dataset.
	Rows []int
	// Dropped counts intermediate records removed under IntermediateDrop.
	Dropped int
}

// SplitXY builds X (the feature columns only) and Y (encoded classes).
func SplitXY(labeled *LabeledDataset, policy IntermediatePolicy) (*Split, error) {
	n := labeled.Len()
	rows := make([]int, 0, n)
	y := make([]float64, 0, n)
	dropped := 0

	for i := 0; i < n; i++ {
		lb := labeled.Label(i)
		if lb == Intermediate {
			if policy == IntermediateDrop {
				dropped++
				continue
			}
			return nil, errors.WithHint(
				errors.NewUnknownLabelError(i, lb.String()),
				"set labels.intermediate to drop to exclude intermediate compounds",
			)
		}
		v, err := Encode(lb)
		if err != nil {
			return nil, err
		}
		rows = append(rows, i)
		y = append(y, v)
	}

	if len(rows) == 0 {
		_, c := labeled.Features().Dims()
		return nil, errors.NewEmptyInputError("SplitXY", 0, c)
	}
	if dropped > 0 {
		errors.Warn(errors.NewDataConversionWarning("SplitXY", "intermediate records dropped before encoding", dropped))
	}

	x := labeled.Features()
	if dropped > 0 {
		x = x.SelectRows(rows)
	}
	return &Split{X: x, Y: y, Rows: rows, Dropped: dropped}, nil
}
