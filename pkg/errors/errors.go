// Package errors provides the error types and warning system shared by every
// stage of the AChEpred workflow.
//
// Every constructor attaches a stack trace through cockroachdb/errors, and the
// structured types implement zerolog.LogObjectMarshaler so they can be logged
// field by field.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("achepred-warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the fallback warning handler.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs the structured warning sink.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning. The zerolog sink wins when it is installed.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warnings
//
// ===========================================================================

// DataConversionWarning reports that rows or columns were dropped or
// converted on the way through a stage.
type DataConversionWarning struct {
	Op     string
	Reason string
	Count  int
}

func (w *DataConversionWarning) Error() string {
	return fmt.Sprintf("%s: %d item(s) affected: %s", w.Op, w.Count, w.Reason)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *DataConversionWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("operation", w.Op).
		Int("count", w.Count).
		Str("reason", w.Reason).
		Str("type", "DataConversionWarning")
}

// NewDataConversionWarning creates a DataConversionWarning.
func NewDataConversionWarning(op, reason string, count int) *DataConversionWarning {
	return &DataConversionWarning{Op: op, Reason: reason, Count: count}
}

// UndefinedMetricWarning is raised when a metric cannot be computed, e.g.
// recall when the true labels contain no positive sample.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // value returned in that case
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates an UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Workflow errors
//
// ===========================================================================

// ErrEmptyInput is the sentinel matched by every EmptyInputError.
var ErrEmptyInput = errors.New("empty input")

// InvalidScoreError is returned when a potency score is missing or not a
// finite number.
type InvalidScoreError struct {
	Row    int
	Column string
	Value  float64
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("achepred: invalid score in column '%s' at row %d: %v", e.Column, e.Row, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *InvalidScoreError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("row", e.Row).
		Str("column", e.Column).
		Float64("value", e.Value).
		Str("type", "InvalidScoreError")
}

// NewInvalidScoreError creates an InvalidScoreError with a stack trace.
func NewInvalidScoreError(row int, column string, value float64) error {
	return errors.WithStack(&InvalidScoreError{Row: row, Column: column, Value: value})
}

// UnknownLabelError is returned when a label has no entry in the target
// encoding table.
type UnknownLabelError struct {
	Row   int
	Label string
}

func (e *UnknownLabelError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("achepred: label '%s' has no target encoding", e.Label)
	}
	return fmt.Sprintf("achepred: label '%s' at row %d has no target encoding", e.Label, e.Row)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *UnknownLabelError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("row", e.Row).
		Str("label", e.Label).
		Str("type", "UnknownLabelError")
}

// NewUnknownLabelError creates an UnknownLabelError. Use row -1 when the
// label is not tied to a record.
func NewUnknownLabelError(row int, label string) error {
	return errors.WithStack(&UnknownLabelError{Row: row, Label: label})
}

// EmptyInputError is returned when a table has no rows or no columns.
type EmptyInputError struct {
	Op   string
	Rows int
	Cols int
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("achepred: %s: empty input (%d rows x %d columns)", e.Op, e.Rows, e.Cols)
}

func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *EmptyInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("rows", e.Rows).
		Int("cols", e.Cols).
		Str("type", "EmptyInputError")
}

// NewEmptyInputError creates an EmptyInputError with a stack trace.
func NewEmptyInputError(op string, rows, cols int) error {
	return errors.WithStack(&EmptyInputError{Op: op, Rows: rows, Cols: cols})
}

// InvalidThresholdError is returned when a variance threshold is negative or
// not a number.
type InvalidThresholdError struct {
	Threshold float64
}

func (e *InvalidThresholdError) Error() string {
	return fmt.Sprintf("achepred: variance threshold must be a non-negative number, got %v", e.Threshold)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *InvalidThresholdError) MarshalZerologObject(event *zerolog.Event) {
	event.Float64("threshold", e.Threshold).
		Str("type", "InvalidThresholdError")
}

// NewInvalidThresholdError creates an InvalidThresholdError with a stack trace.
func NewInvalidThresholdError(threshold float64) error {
	return errors.WithStack(&InvalidThresholdError{Threshold: threshold})
}

// StageError names the workflow stage an error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("achepred: stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *StageError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("stage", e.Stage).
		Str("cause", e.Err.Error()).
		Str("type", "StageError")
}

// NewStageError wraps err with the stage name. A nil err stays nil.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// ===========================================================================
//
//	Estimator errors
//
// ===========================================================================

// NotFittedError is returned by Predict or Transform on an unfitted estimator.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("achepred: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError is returned when input dimensions disagree.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("achepred: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError is returned when a parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("achepred: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError is returned when an argument has an unusable value, e.g. a
// non-numeric fingerprint cell.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("achepred: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is a general estimator failure.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("achepred: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("achepred: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to err.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// WithHint attaches a user-facing suggestion to err.
func WithHint(err error, hint string) error {
	return errors.WithHint(err, hint)
}

// FlattenHints returns every hint in err's chain joined by newlines.
func FlattenHints(err error) string {
	return errors.FlattenHints(err)
}
