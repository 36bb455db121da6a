package tree

import (
	"github.com/YuminosukeSato/achepred/core/model"
	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Snapshot is the exported, gob-encodable state of a fitted tree.
type Snapshot struct {
	Criterion           string
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	MaxFeatures         int
	MinImpurityDecrease float64
	RandomState         int64

	Classes            []float64
	NFeatures          int
	NSamples           int
	Nodes              []Node
	FeatureImportances []float64
}

// Snapshot captures the fitted tree.
func (dt *DecisionTreeClassifier) Snapshot() (*Snapshot, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "Snapshot"); err != nil {
		return nil, err
	}
	_, nSamples := dt.state.GetDimensions()
	nodes := make([]Node, len(dt.nodes))
	for i, n := range dt.nodes {
		n.Value = append([]float64(nil), n.Value...)
		nodes[i] = n
	}
	return &Snapshot{
		Criterion:           dt.criterion,
		MaxDepth:            dt.maxDepth,
		MinSamplesSplit:     dt.minSamplesSplit,
		MinSamplesLeaf:      dt.minSamplesLeaf,
		MaxFeatures:         dt.maxFeatures,
		MinImpurityDecrease: dt.minImpurityDecrease,
		RandomState:         dt.randomState,
		Classes:             append([]float64(nil), dt.classes...),
		NFeatures:           dt.nFeatures,
		NSamples:            nSamples,
		Nodes:               nodes,
		FeatureImportances:  dt.GetFeatureImportances(),
	}, nil
}

// FromSnapshot rebuilds a fitted tree. The node links are checked so a
// corrupted snapshot fails here rather than at prediction time.
func FromSnapshot(s *Snapshot) (*DecisionTreeClassifier, error) {
	if s == nil || len(s.Nodes) == 0 || len(s.Classes) == 0 {
		return nil, errors.NewModelError("tree.FromSnapshot", "snapshot", errors.New("empty tree"))
	}
	for i, n := range s.Nodes {
		if n.IsLeaf() {
			if len(n.Value) != len(s.Classes) {
				return nil, errors.NewModelError("tree.FromSnapshot", "snapshot",
					errors.Newf("node %d has %d class values, want %d", i, len(n.Value), len(s.Classes)))
			}
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(s.Nodes) || n.Right >= len(s.Nodes) ||
			n.Feature < 0 || n.Feature >= s.NFeatures {
			return nil, errors.NewModelError("tree.FromSnapshot", "snapshot",
				errors.Newf("node %d has invalid links", i))
		}
	}

	dt := NewDecisionTreeClassifier(
		WithCriterion(s.Criterion),
		WithMaxDepth(s.MaxDepth),
		WithMinSamplesSplit(s.MinSamplesSplit),
		WithMinSamplesLeaf(s.MinSamplesLeaf),
		WithMaxFeatures(s.MaxFeatures),
		WithMinImpurityDecrease(s.MinImpurityDecrease),
		WithRandomState(s.RandomState),
	)
	dt.nodes = append([]Node(nil), s.Nodes...)
	dt.classes = append([]float64(nil), s.Classes...)
	dt.nClasses_ = len(s.Classes)
	dt.nFeatures = s.NFeatures
	dt.featureImportances = append([]float64(nil), s.FeatureImportances...)
	dt.state = model.NewStateManager()
	dt.state.SetDimensions(s.NFeatures, s.NSamples)
	dt.state.SetFitted()
	return dt, nil
}
