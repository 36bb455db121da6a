// Package model_selection splits labeled samples into train and test sets.
package model_selection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/achepred/dataset"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Default split parameters.
const (
	DefaultTestSize    = 0.2
	DefaultRandomState = 42
)

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

type splitConfig struct {
	testSize    float64
	randomState int64
	stratify    bool
	shuffle     bool
}

// WithTestSize sets the fraction of samples that go to the test set. It must
// lie in (0, 1).
func WithTestSize(size float64) SplitOption {
	return func(c *splitConfig) { c.testSize = size }
}

// WithRandomState seeds the shuffle.
func WithRandomState(seed int64) SplitOption {
	return func(c *splitConfig) { c.randomState = seed }
}

// WithStratify keeps the class proportions of y in both sets.
func WithStratify(stratify bool) SplitOption {
	return func(c *splitConfig) { c.stratify = stratify }
}

// WithShuffle disables shuffling when false; the last rows form the test
// set. Stratified splits always shuffle.
func WithShuffle(shuffle bool) SplitOption {
	return func(c *splitConfig) { c.shuffle = shuffle }
}

// TrainTest holds both halves of a split together with the source row
// indices of every sample.
type TrainTest struct {
	XTrain *dataset.Frame
	XTest  *dataset.Frame
	YTrain []float64
	YTest  []float64

	TrainIndex []int
	TestIndex  []int
}

// TrainTestSplit partitions the rows of X and y. The test set receives
// ceil(testSize * n) rows. For a fixed random state the result is
// reproducible.
//
//	tt, err := model_selection.TrainTestSplit(X, y,
//	    model_selection.WithTestSize(0.2),
//	    model_selection.WithRandomState(42),
//	)
func TrainTestSplit(X *dataset.Frame, y []float64, opts ...SplitOption) (*TrainTest, error) {
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return nil, errors.NewEmptyInputError("TrainTestSplit", n, c)
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, len(y), 0)
	}

	train, test, err := SplitIndices(y, opts...)
	if err != nil {
		return nil, err
	}

	return &TrainTest{
		XTrain:     X.SelectRows(train),
		XTest:      X.SelectRows(test),
		YTrain:     pick(y, train),
		YTest:      pick(y, test),
		TrainIndex: train,
		TestIndex:  test,
	}, nil
}

// SplitIndices returns the train and test row indices for len(y) samples.
func SplitIndices(y []float64, opts ...SplitOption) (train, test []int, err error) {
	cfg := splitConfig{
		testSize:    DefaultTestSize,
		randomState: DefaultRandomState,
		shuffle:     true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	n := len(y)
	if n == 0 {
		return nil, nil, errors.NewEmptyInputError("SplitIndices", 0, 1)
	}
	if math.IsNaN(cfg.testSize) || cfg.testSize <= 0 || cfg.testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}

	nTest := int(math.Ceil(cfg.testSize * float64(n)))
	if nTest >= n {
		return nil, nil, errors.WithHint(
			errors.NewValidationError("test_size",
				fmt.Sprintf("leaves the train set empty with %d samples", n), cfg.testSize),
			"lower test_size or provide more samples")
	}

	rng := rand.New(rand.NewSource(cfg.randomState))
	if cfg.stratify {
		return stratifiedSplit(y, nTest, rng)
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if cfg.shuffle {
		perm = rng.Perm(n)
		return perm[nTest:], perm[:nTest], nil
	}
	return perm[:n-nTest], perm[n-nTest:], nil
}

// stratifiedSplit gives every class floor(nTest * share) test rows and hands
// the remaining rows to the classes with the largest fractional share. Every
// class keeps at least one training row; when that makes nTest unreachable
// the split fails.
func stratifiedSplit(y []float64, nTest int, rng *rand.Rand) (train, test []int, err error) {
	n := len(y)
	byClass := map[float64][]int{}
	var classes []float64
	for i, v := range y {
		if _, ok := byClass[v]; !ok {
			classes = append(classes, v)
		}
		byClass[v] = append(byClass[v], i)
	}
	sort.Float64s(classes)

	for _, cls := range classes {
		if len(byClass[cls]) < 2 {
			return nil, nil, errors.WithHint(
				errors.NewValidationError("stratify",
					fmt.Sprintf("class %g has fewer than 2 members", cls), len(byClass[cls])),
				"disable stratification or collect more samples of that class")
		}
	}

	alloc := make([]int, len(classes))
	frac := make([]float64, len(classes))
	assigned := 0
	for k, cls := range classes {
		exact := float64(nTest) * float64(len(byClass[cls])) / float64(n)
		alloc[k] = int(math.Floor(exact))
		frac[k] = exact - float64(alloc[k])
		assigned += alloc[k]
	}
	order := make([]int, len(classes))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool { return frac[order[a]] > frac[order[b]] })
	for _, k := range order {
		if assigned == nTest {
			break
		}
		if alloc[k] < len(byClass[classes[k]])-1 {
			alloc[k]++
			assigned++
		}
	}
	if assigned != nTest {
		return nil, nil, errors.WithHint(
			errors.NewValidationError("test_size",
				fmt.Sprintf("stratified split can place only %d of %d test rows while keeping every class in the training set", assigned, nTest), nTest),
			"lower test_size or disable stratification")
	}

	for k, cls := range classes {
		idx := append([]int(nil), byClass[cls]...)
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		test = append(test, idx[:alloc[k]]...)
		train = append(train, idx[alloc[k]:]...)
	}
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	rng.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}

func pick(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}
