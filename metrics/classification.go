// Package metrics scores binary classifiers. Labels are 0 (negative,
// inactive) and 1 (positive, active).
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Confusion holds the four cells of a binary confusion matrix.
type Confusion struct {
	TN int `yaml:"tn"`
	FP int `yaml:"fp"`
	FN int `yaml:"fn"`
	TP int `yaml:"tp"`
}

// Total returns the number of samples.
func (c Confusion) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

// Matrix returns the confusion matrix laid out as scikit-learn does:
// rows are true labels, columns predicted labels, both ordered 0, 1.
func (c Confusion) Matrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		float64(c.TN), float64(c.FP),
		float64(c.FN), float64(c.TP),
	})
}

// ConfusionMatrix counts outcomes for binary labels.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (Confusion, error) {
	if err := checkPair("ConfusionMatrix", yTrue, yPred); err != nil {
		return Confusion{}, err
	}
	var c Confusion
	for i := 0; i < yTrue.Len(); i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		if !isBinary(t) || !isBinary(p) {
			return Confusion{}, errors.NewValueError("ConfusionMatrix",
				fmt.Sprintf("labels must be 0 or 1, got true=%v pred=%v at index %d", t, p, i))
		}
		switch {
		case t == 1 && p == 1:
			c.TP++
		case t == 0 && p == 0:
			c.TN++
		case t == 0:
			c.FP++
		default:
			c.FN++
		}
	}
	return c, nil
}

// AccuracyScore returns the fraction of exact matches. Labels need not be
// binary.
func AccuracyScore(yTrue, yPred *mat.VecDense) (float64, error) {
	if err := checkPair("AccuracyScore", yTrue, yPred); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// PrecisionScore returns TP / (TP + FP). With no positive prediction it
// warns and returns 0.
func PrecisionScore(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.Precision(), nil
}

// RecallScore returns TP / (TP + FN), the sensitivity. With no positive
// sample it warns and returns 0.
func RecallScore(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.Recall(), nil
}

// F1Score returns the harmonic mean of precision and recall.
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.F1(), nil
}

// MatthewsCorrCoef returns the Matthews correlation coefficient in [-1, 1].
// A degenerate matrix, where a row or column sums to zero, yields 0.
func MatthewsCorrCoef(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return c.MCC(), nil
}

// Precision returns TP / (TP + FP).
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP / (TP + FN).
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 returns 2TP / (2TP + FP + FN).
func (c Confusion) F1() float64 {
	if c.TP+c.FP+c.FN == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("f1", "no true nor predicted samples", 0))
		return 0
	}
	return float64(2*c.TP) / float64(2*c.TP+c.FP+c.FN)
}

// MCC returns the Matthews correlation coefficient.
func (c Confusion) MCC() float64 {
	tp, tn, fp, fn := float64(c.TP), float64(c.TN), float64(c.FP), float64(c.FN)
	den := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	return errors.SafeDivide(tp*tn-fp*fn, den)
}

// AUC returns the area under the ROC curve of yScore, the predicted
// probability of class 1. When yTrue holds a single class the area is
// undefined; a warning is emitted and 0.5 returned.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	if err := checkPair("AUC", yTrue, yScore); err != nil {
		return 0, err
	}
	n := yTrue.Len()
	scores := make([]float64, n)
	classes := make([]bool, n)
	positives := 0
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		if !isBinary(t) {
			return 0, errors.NewValueError("AUC", fmt.Sprintf("labels must be 0 or 1, got %v at index %d", t, i))
		}
		scores[i] = yScore.AtVec(i)
		if !errors.IsFinite(scores[i]) {
			return 0, errors.NewValueError("AUC", fmt.Sprintf("non-finite score at index %d", i))
		}
		classes[i] = t == 1
		if classes[i] {
			positives++
		}
	}
	if positives == 0 || positives == n {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// VecFromColumn copies column j of m into a vector.
func VecFromColumn(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	if r == 0 {
		return nil
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}

// VecFromSlice wraps y as a vector, or returns nil when y is empty.
func VecFromSlice(y []float64) *mat.VecDense {
	if len(y) == 0 {
		return nil
	}
	return mat.NewVecDense(len(y), append([]float64(nil), y...))
}

func checkPair(op string, yTrue, yPred *mat.VecDense) error {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return errors.NewEmptyInputError(op, 0, 1)
	}
	if yPred.Len() != yTrue.Len() {
		return errors.NewDimensionError(op, yTrue.Len(), yPred.Len(), 0)
	}
	return nil
}

func isBinary(v float64) bool {
	return v == 0 || v == 1
}

// Scores groups the metrics reported for one subset.
type Scores struct {
	Accuracy  float64   `yaml:"accuracy"`
	Precision float64   `yaml:"precision"`
	Recall    float64   `yaml:"recall"`
	F1        float64   `yaml:"f1"`
	MCC       float64   `yaml:"mcc"`
	AUC       float64   `yaml:"roc_auc"`
	Confusion Confusion `yaml:"confusion_matrix"`
}

// Evaluate computes every metric for one subset. yScore is the predicted
// probability of class 1; AUC is skipped (left at 0) when it is nil.
func Evaluate(yTrue, yPred, yScore []float64) (*Scores, error) {
	t, p := VecFromSlice(yTrue), VecFromSlice(yPred)
	c, err := ConfusionMatrix(t, p)
	if err != nil {
		return nil, err
	}
	s := &Scores{
		Accuracy:  float64(c.TP+c.TN) / float64(c.Total()),
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
		MCC:       c.MCC(),
		Confusion: c,
	}
	if yScore != nil {
		if s.AUC, err = AUC(t, VecFromSlice(yScore)); err != nil {
			return nil, err
		}
	}
	return s, nil
}
