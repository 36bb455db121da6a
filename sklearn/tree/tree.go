// Package tree implements a CART decision tree classifier.
package tree

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/achepred/core/model"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Split criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

const leaf = -1

// Node is one node of a fitted tree. Children are indices into the node
// slice; Left == -1 marks a leaf.
type Node struct {
	Feature   int
	Threshold float64 // x <= Threshold goes left
	Left      int
	Right     int
	Impurity  float64
	NSamples  int
	Value     []float64 // class distribution, aligned with the tree's classes
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.Left == leaf
}

// DecisionTreeClassifier is a CART classifier with binary threshold splits.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion           string
	maxDepth            int // 0 means unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         int // 0 means all features
	minImpurityDecrease float64
	randomState         int64

	nodes              []Node
	classes            []float64
	nClasses_          int
	nFeatures          int
	featureImportances []float64
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure, "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. 0 leaves it unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples a node needs to be
// split.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many randomly chosen features are examined at
// each split. 0 examines all of them.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = n }
}

// WithMinImpurityDecrease rejects splits that improve impurity by less.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) { dt.minImpurityDecrease = v }
}

// WithRandomState seeds the feature sampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = seed }
}

// NewDecisionTreeClassifier creates a classifier. Defaults follow
// scikit-learn: gini, unlimited depth, min_samples_split=2,
// min_samples_leaf=1, all features.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Fit builds the tree from X (n_samples x n_features) and y (n_samples x 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return errors.NewEmptyInputError("DecisionTreeClassifier.Fit", n, p)
	}
	yRows, yCols := y.Dims()
	if yRows != n {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", n, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", 1, yCols, 1)
	}

	labels := make([]float64, n)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	sample := make([]int, n)
	for i := range sample {
		sample[i] = i
	}
	return dt.FitSubset(X, labels, sample, UniqueClasses(labels))
}

// FitSubset builds the tree from the rows of X listed in sample. Rows may
// repeat, as in a bootstrap sample. classes fixes the column order of
// PredictProba so that trees fitted on different samples agree.
func (dt *DecisionTreeClassifier) FitSubset(X mat.Matrix, y []float64, sample []int, classes []float64) error {
	if err := dt.validateParams(); err != nil {
		return err
	}
	_, p := X.Dims()
	if len(sample) == 0 || p == 0 {
		return errors.NewEmptyInputError("DecisionTreeClassifier.Fit", len(sample), p)
	}
	if len(classes) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "no classes in y")
	}

	classIndex := make(map[float64]int, len(classes))
	for k, c := range classes {
		classIndex[c] = k
	}
	encoded := make([]int, len(y))
	for i, v := range y {
		k, ok := classIndex[v]
		if !ok {
			return errors.NewUnknownLabelError(i, fmt.Sprintf("%g", v))
		}
		encoded[i] = k
	}

	b := &builder{
		dt:          dt,
		X:           X,
		y:           encoded,
		nClasses:    len(classes),
		nFeatures:   p,
		rng:         rand.New(rand.NewSource(dt.randomState)),
		importances: make([]float64, p),
		total:       float64(len(sample)),
	}
	dt.nodes = dt.nodes[:0]
	b.build(append([]int(nil), sample...), 0)

	dt.classes = append([]float64(nil), classes...)
	dt.nClasses_ = len(classes)
	dt.nFeatures = p
	dt.featureImportances = normalize(b.importances)
	dt.state.SetDimensions(p, len(sample))
	dt.state.SetFitted()
	return nil
}

// Predict returns the most probable class for each row as an n x 1 matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("Predict", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, dt.classes[argmax(dt.leafValue(X, i))])
	}
	return out, nil
}

// PredictProba returns the class distribution of the leaf each row falls
// into. Columns follow Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, dt.nClasses_, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, dt.leafValue(X, i))
	}
	return out, nil
}

// Score returns the mean accuracy on X and y. It returns 0 when the tree is
// not fitted or the shapes do not match.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0
	}
	n, _ := pred.Dims()
	if yRows, _ := y.Dims(); yRows != n || n == 0 {
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
func (dt *DecisionTreeClassifier) Classes() []int {
	out := make([]int, len(dt.classes))
	for k, c := range dt.classes {
		out[k] = int(c)
	}
	return out
}

// GetFeatureImportances returns the normalized total impurity decrease
// contributed by each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.featureImportances...)
}

// GetDepth returns the depth of the deepest leaf. A single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if len(dt.nodes) == 0 {
		return 0
	}
	var walk func(i, d int) int
	walk = func(i, d int) int {
		node := dt.nodes[i]
		if node.IsLeaf() {
			return d
		}
		return max(walk(node.Left, d+1), walk(node.Right, d+1))
	}
	return walk(0, 0)
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	count := 0
	for _, node := range dt.nodes {
		if node.IsLeaf() {
			count++
		}
	}
	return count
}

// IsFitted reports whether Fit has succeeded.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          dt.randomState,
	}
}

// SetParams updates hyperparameters by name. Unknown names and values of the
// wrong type are rejected.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			dt.criterion, ok = value.(string)
		case "max_depth":
			dt.maxDepth, ok = value.(int)
		case "min_samples_split":
			dt.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf, ok = value.(int)
		case "max_features":
			dt.maxFeatures, ok = value.(int)
		case "min_impurity_decrease":
			dt.minImpurityDecrease, ok = value.(float64)
		case "random_state":
			var seed int
			if seed, ok = value.(int); ok {
				dt.randomState = int64(seed)
			} else {
				dt.randomState, ok = value.(int64)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, fmt.Sprintf("unexpected type %T", value), value)
		}
	}
	return dt.validateParams()
}

func (dt *DecisionTreeClassifier) validateParams() error {
	switch {
	case dt.criterion != CriterionGini && dt.criterion != CriterionEntropy:
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	case dt.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", dt.maxDepth)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	case dt.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", dt.maxFeatures)
	}
	return nil
}

func (dt *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	return dt.state.CheckFeatures("DecisionTreeClassifier."+method, X)
}

func (dt *DecisionTreeClassifier) leafValue(X mat.Matrix, row int) []float64 {
	i := 0
	for !dt.nodes[i].IsLeaf() {
		node := dt.nodes[i]
		if X.At(row, node.Feature) <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
	return dt.nodes[i].Value
}

// UniqueClasses returns the distinct values of y in ascending order.
func UniqueClasses(y []float64) []float64 {
	seen := make(map[float64]struct{}, 2)
	var classes []float64
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)
	return classes
}

// ResolveMaxFeatures turns a max_features setting into a feature count for
// nFeatures columns: "sqrt", "log2", "all" (or empty), or a positive integer.
func ResolveMaxFeatures(setting string, nFeatures int) (int, error) {
	var k int
	switch setting {
	case "", "all":
		return nFeatures, nil
	case "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case "log2":
		k = int(math.Log2(float64(nFeatures)))
	default:
		if _, err := fmt.Sscanf(setting, "%d", &k); err != nil || k <= 0 {
			return 0, errors.NewValidationError("max_features", "must be sqrt, log2, all or a positive integer", setting)
		}
	}
	return min(max(k, 1), nFeatures), nil
}

// builder grows one tree depth first.
type builder struct {
	dt          *DecisionTreeClassifier
	X           mat.Matrix
	y           []int
	nClasses    int
	nFeatures   int
	rng         *rand.Rand
	importances []float64
	total       float64
}

type candidate struct {
	feature   int
	threshold float64
	impurity  float64 // weighted child impurity
}

// build appends the subtree for sample and returns its node index.
func (b *builder) build(sample []int, depth int) int {
	counts := make([]float64, b.nClasses)
	for _, i := range sample {
		counts[b.y[i]]++
	}
	impurity := b.impurity(counts, float64(len(sample)))

	id := len(b.dt.nodes)
	b.dt.nodes = append(b.dt.nodes, Node{
		Feature:  leaf,
		Left:     leaf,
		Right:    leaf,
		Impurity: impurity,
		NSamples: len(sample),
		Value:    normalize(counts),
	})

	if impurity <= 0 ||
		len(sample) < b.dt.minSamplesSplit ||
		len(sample) < 2*b.dt.minSamplesLeaf ||
		(b.dt.maxDepth > 0 && depth >= b.dt.maxDepth) {
		return id
	}

	best, ok := b.bestSplit(sample, counts)
	if !ok {
		return id
	}
	decrease := float64(len(sample)) / b.total * (impurity - best.impurity)
	if decrease < b.dt.minImpurityDecrease {
		return id
	}

	var left, right []int
	for _, i := range sample {
		if b.X.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.importances[best.feature] += decrease

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.dt.nodes[id].Feature = best.feature
	b.dt.nodes[id].Threshold = best.threshold
	b.dt.nodes[id].Left = l
	b.dt.nodes[id].Right = r
	return id
}

// bestSplit scans every candidate feature for the threshold with the lowest
// weighted child impurity. Features are visited in index order after
// sampling so that ties resolve the same way on every run.
func (b *builder) bestSplit(sample []int, counts []float64) (candidate, bool) {
	features := b.features()
	n := len(sample)
	minLeaf := b.dt.minSamplesLeaf

	type pair struct {
		v float64
		c int
	}
	pairs := make([]pair, n)
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)

	best := candidate{impurity: math.Inf(1)}
	found := false
	for _, f := range features {
		for k, i := range sample {
			pairs[k] = pair{v: b.X.At(i, f), c: b.y[i]}
		}
		sort.Slice(pairs, func(a, c int) bool { return pairs[a].v < pairs[c].v })
		if pairs[0].v == pairs[n-1].v {
			continue
		}

		for k := range left {
			left[k] = 0
			right[k] = counts[k]
		}
		for s := 1; s < n; s++ {
			left[pairs[s-1].c]++
			right[pairs[s-1].c]--
			if pairs[s].v == pairs[s-1].v || s < minLeaf || n-s < minLeaf {
				continue
			}
			nl, nr := float64(s), float64(n-s)
			weighted := (nl*b.impurity(left, nl) + nr*b.impurity(right, nr)) / float64(n)
			if weighted < best.impurity {
				best = candidate{
					feature:   f,
					threshold: (pairs[s-1].v + pairs[s].v) / 2,
					impurity:  weighted,
				}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) features() []int {
	all := make([]int, b.nFeatures)
	for j := range all {
		all[j] = j
	}
	k := b.dt.maxFeatures
	if k <= 0 || k >= b.nFeatures {
		return all
	}
	b.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	chosen := all[:k]
	sort.Ints(chosen)
	return chosen
}

func (b *builder) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if b.dt.criterion == CriterionEntropy {
		return entropy(counts, n)
	}
	return gini(counts, n)
}

func gini(counts []float64, n float64) float64 {
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func entropy(counts []float64, n float64) float64 {
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / n
			h -= p * math.Log2(p)
		}
	}
	return h
}

func normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
