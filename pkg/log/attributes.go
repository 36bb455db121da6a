package log

// Run and stage context.
const (
	// RunIDKey identifies one execution of the workflow.
	RunIDKey = "run.id"

	// StageKey names the workflow stage emitting the record.
	// Values: StageLoad, StageLabel, StageSplit, StageFilter, ...
	StageKey = "pipeline.stage"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "component"

	// ModelNameKey identifies the estimator type, e.g. "VarianceThreshold".
	ModelNameKey = "model.name"

	// OperationKey names the estimator operation: fit, transform, predict.
	OperationKey = "ml.operation"

	// SourceKey is the dataset location.
	SourceKey = "dataset.source"
)

// Data shape.
const (
	// SamplesKey is the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// RetainedKey is the number of feature columns kept by a filter.
	RetainedKey = "data.retained"

	// DroppedKey is the number of rows or columns removed by a stage.
	DroppedKey = "data.dropped"

	// ThresholdKey is the variance threshold in effect.
	ThresholdKey = "filter.threshold"
)

// Class distribution.
const (
	ActiveKey       = "labels.active"
	InactiveKey     = "labels.inactive"
	IntermediateKey = "labels.intermediate"
)

// Performance and evaluation.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	RecallKey     = "metrics.recall"
	MCCKey        = "metrics.mcc"
	SubsetKey     = "metrics.subset" // "train" or "test"
	RandomSeedKey = "config.random_seed"
	EstimatorsKey = "model.n_estimators"
)

// Error context.
const (
	ErrorKey      = "error"
	StacktraceKey = "stacktrace"
	HintKey       = "error.hint"
)

// Workflow stage names.
const (
	StageLoad      = "load"
	StageLabel     = "label"
	StageSplit     = "split"
	StageFilter    = "filter"
	StagePartition = "partition"
	StageFit       = "fit"
	StageEvaluate  = "evaluate"
	StageReport    = "report"
)

// Estimator operations.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
)
