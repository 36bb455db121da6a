// Package ensemble implements a random forest classifier on top of the CART
// trees in package tree.
package ensemble

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/achepred/core/model"
	"github.com/YuminosukeSato/achepred/core/parallel"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/pkg/log"
	"github.com/YuminosukeSato/achepred/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of trees fitted on
// bootstrap samples with random feature subsets.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     int64
	nJobs           int

	estimators         []*tree.DecisionTreeClassifier
	classes            []float64
	featureImportances []float64

	logger log.Logger
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree.
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits tree depth. 0 leaves it unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size for a split.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum leaf size.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features examined per split: "sqrt", "log2",
// "all" or a positive integer.
func WithMaxFeatures(setting string) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = setting }
}

// WithBootstrap toggles bootstrap sampling. Without it every tree sees the
// full training set.
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithRandomState seeds the forest. Tree i uses seed+i.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs bounds the number of trees fitted concurrently. Values <= 0 use
// one worker per CPU.
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// WithLogger sets the logger used for fit progress.
func WithLogger(logger log.Logger) Option {
	return func(rf *RandomForestClassifier) { rf.logger = logger }
}

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 trees, gini, sqrt features, bootstrap.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       tree.CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		randomState:     42,
	}
	for _, opt := range opts {
		opt(rf)
	}
	if rf.logger == nil {
		rf.logger = log.GetLoggerWithName("RandomForestClassifier")
	}
	return rf
}

// Fit grows nEstimators trees on X (n_samples x n_features) and y
// (n_samples x 1). Trees are fitted concurrently; the result depends only on
// the random state.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if rf.nEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", rf.nEstimators)
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewEmptyInputError("RandomForestClassifier.Fit", n, p)
	}
	yRows, yCols := y.Dims()
	if yRows != n {
		return errors.NewDimensionError("RandomForestClassifier.Fit", n, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("RandomForestClassifier.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("RandomForestClassifier.Fit", X, n, p); err != nil {
		return err
	}
	maxFeatures, err := tree.ResolveMaxFeatures(rf.maxFeatures, p)
	if err != nil {
		return err
	}

	labels := make([]float64, n)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	classes := tree.UniqueClasses(labels)

	rf.logger.Debug("Fitting random forest",
		log.SamplesKey, n,
		log.FeaturesKey, p,
		log.EstimatorsKey, rf.nEstimators,
		"max_features", maxFeatures,
	)

	estimators := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = parallel.ForEach(rf.nEstimators, rf.nJobs, func(i int) error {
		seed := rf.randomState + int64(i)
		dt := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(rf.criterion),
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesSplit(rf.minSamplesSplit),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(maxFeatures),
			tree.WithRandomState(seed),
		)
		if err := dt.FitSubset(X, labels, rf.sample(n, seed), classes); err != nil {
			return errors.Wrapf(err, "fit tree %d", i)
		}
		estimators[i] = dt
		return nil
	})
	if err != nil {
		return err
	}

	importances := make([]float64, p)
	for _, dt := range estimators {
		for j, v := range dt.GetFeatureImportances() {
			importances[j] += v
		}
	}
	for j := range importances {
		importances[j] /= float64(len(estimators))
	}

	rf.estimators = estimators
	rf.classes = classes
	rf.featureImportances = importances
	rf.state.SetDimensions(p, n)
	rf.state.SetFitted()
	return nil
}

// sample draws n row indices with replacement, or returns every row when
// bootstrap is off.
func (rf *RandomForestClassifier) sample(n int, seed int64) []int {
	idx := make([]int, n)
	if !rf.bootstrap {
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewSource(seed))
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

// PredictProba returns the mean of the trees' class probabilities. Columns
// follow Classes().
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.NewEmptyInputError("RandomForestClassifier.PredictProba", 0, len(rf.classes))
	}

	sum := mat.NewDense(n, len(rf.classes), nil)
	for _, dt := range rf.estimators {
		p, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.estimators)), sum)
	return sum, nil
}

// Predict returns the class with the highest mean probability for each row
// as an n x 1 matrix. Ties go to the smaller class label.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.Set(i, 0, rf.classes[best])
	}
	return out, nil
}

// Score returns the mean accuracy on X and y, or 0 when prediction fails.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := pred.Dims()
	if yRows, _ := y.Dims(); yRows != n {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Classes returns the class labels in PredictProba column order.
func (rf *RandomForestClassifier) Classes() []int {
	out := make([]int, len(rf.classes))
	for k, c := range rf.classes {
		out[k] = int(c)
	}
	return out
}

// FeatureImportances returns the mean impurity-based importance of each
// feature over all trees.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), rf.featureImportances...)
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return append([]*tree.DecisionTreeClassifier(nil), rf.estimators...)
}

// IsFitted reports whether Fit has succeeded.
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

// String describes the forest.
func (rf *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, max_features=%s, max_depth=%d, random_state=%d)",
		rf.nEstimators, rf.maxFeatures, rf.maxDepth, rf.randomState)
}
