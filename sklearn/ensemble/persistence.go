package ensemble

import (
	"github.com/YuminosukeSato/achepred/core/model"
	"github.com/YuminosukeSato/achepred/pkg/errors"
	"github.com/YuminosukeSato/achepred/sklearn/tree"
)

// ForestSnapshot is the gob-encodable state of a fitted forest.
type ForestSnapshot struct {
	NEstimators     int
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string
	Bootstrap       bool
	RandomState     int64

	Classes            []float64
	NFeatures          int
	NSamples           int
	FeatureImportances []float64
	Trees              []tree.Snapshot
}

// Snapshot captures the fitted forest.
func (rf *RandomForestClassifier) Snapshot() (*ForestSnapshot, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "Snapshot"); err != nil {
		return nil, err
	}
	trees := make([]tree.Snapshot, len(rf.estimators))
	for i, dt := range rf.estimators {
		s, err := dt.Snapshot()
		if err != nil {
			return nil, errors.Wrapf(err, "snapshot tree %d", i)
		}
		trees[i] = *s
	}
	nFeatures, nSamples := rf.state.GetDimensions()
	return &ForestSnapshot{
		NEstimators:        rf.nEstimators,
		Criterion:          rf.criterion,
		MaxDepth:           rf.maxDepth,
		MinSamplesSplit:    rf.minSamplesSplit,
		MinSamplesLeaf:     rf.minSamplesLeaf,
		MaxFeatures:        rf.maxFeatures,
		Bootstrap:          rf.bootstrap,
		RandomState:        rf.randomState,
		Classes:            append([]float64(nil), rf.classes...),
		NFeatures:          nFeatures,
		NSamples:           nSamples,
		FeatureImportances: rf.FeatureImportances(),
		Trees:              trees,
	}, nil
}

// ForestFromSnapshot rebuilds a fitted forest.
func ForestFromSnapshot(s *ForestSnapshot) (*RandomForestClassifier, error) {
	if s == nil || len(s.Trees) == 0 {
		return nil, errors.NewModelError("ensemble.ForestFromSnapshot", "snapshot", errors.New("no trees"))
	}
	rf := NewRandomForestClassifier(
		WithNEstimators(s.NEstimators),
		WithCriterion(s.Criterion),
		WithMaxDepth(s.MaxDepth),
		WithMinSamplesSplit(s.MinSamplesSplit),
		WithMinSamplesLeaf(s.MinSamplesLeaf),
		WithMaxFeatures(s.MaxFeatures),
		WithBootstrap(s.Bootstrap),
		WithRandomState(s.RandomState),
	)
	rf.estimators = make([]*tree.DecisionTreeClassifier, len(s.Trees))
	for i := range s.Trees {
		if len(s.Trees[i].Classes) != len(s.Classes) {
			return nil, errors.NewModelError("ensemble.ForestFromSnapshot", "snapshot",
				errors.Newf("tree %d has %d classes, forest has %d", i, len(s.Trees[i].Classes), len(s.Classes)))
		}
		dt, err := tree.FromSnapshot(&s.Trees[i])
		if err != nil {
			return nil, errors.Wrapf(err, "restore tree %d", i)
		}
		rf.estimators[i] = dt
	}
	rf.classes = append([]float64(nil), s.Classes...)
	rf.featureImportances = append([]float64(nil), s.FeatureImportances...)
	rf.state.SetDimensions(s.NFeatures, s.NSamples)
	rf.state.SetFitted()
	return rf, nil
}

// Save writes the fitted forest to filename.
func (rf *RandomForestClassifier) Save(filename string) error {
	s, err := rf.Snapshot()
	if err != nil {
		return err
	}
	return model.SaveModel(s, filename)
}

// Load reads a forest written by Save.
func Load(filename string) (*RandomForestClassifier, error) {
	var s ForestSnapshot
	if err := model.LoadModel(&s, filename); err != nil {
		return nil, err
	}
	return ForestFromSnapshot(&s)
}
