// Package errors provides the error handling and warning system used across
// gbdata. Warnings are recoverable conditions that are reported and then
// ignored (the operation proceeds with the previous value); errors carry
// stack traces via cockroachdb/errors and marshal structured fields into
// zerolog events.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("gbdata-Warning: %v\n", w)
	}
	zerologWarnFunc func(warning error)
)

// SetWarningHandler sets the process-wide warning handler. The default
// handler writes to the standard logger.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc routes warnings through zerolog. Installed lazily by
// pkg/log to avoid an import cycle.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn reports a warning through the installed handler.
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

// ImmutableParamWarning is raised when a caller tries to change a structural
// dataset parameter after construction. The old value is retained.
type ImmutableParamWarning struct {
	Param string
}

func (w *ImmutableParamWarning) Error() string {
	return fmt.Sprintf("cannot change %s after the Dataset has been constructed; keeping the old value", w.Param)
}

// MarshalZerologObject adds structured warning fields to a zerolog event.
func (w *ImmutableParamWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("param", w.Param).Str("type", "ImmutableParamWarning")
}

// NewImmutableParamWarning creates a warning for parameter name param.
func NewImmutableParamWarning(param string) *ImmutableParamWarning {
	return &ImmutableParamWarning{Param: param}
}

// TrivialFeaturesWarning is raised when every feature in the input is
// constant, so there is nothing to bundle or store.
type TrivialFeaturesWarning struct{}

func (w *TrivialFeaturesWarning) Error() string {
	return "there are no meaningful features, as all feature values are constant"
}

// DimensionError reports a mismatch between an array length and the schema
// size it must correspond to.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("gbdata: %s: length mismatch. Expected %d, got %d", e.Op, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// RowCountMismatchError reports an operation that requires two datasets with
// the same number of rows.
type RowCountMismatchError struct {
	Op    string
	Left  int
	Right int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("gbdata: %s: datasets have different numbers of rows (%d vs %d)", e.Op, e.Left, e.Right)
}

// MarshalZerologObject adds structured error fields to a zerolog event.
func (e *RowCountMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("left_rows", e.Left).
		Int("right_rows", e.Right).
		Str("type", "RowCountMismatchError")
}

// NewRowCountMismatchError creates a RowCountMismatchError with a stack trace.
func NewRowCountMismatchError(op string, left, right int) error {
	err := &RowCountMismatchError{Op: op, Left: left, Right: right}
	return errors.WithStack(err)
}

// ValueError reports an argument whose value is invalid for an operation.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gbdata: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// Check panics with a stack-annotated error when cond is false. It is the
// rendering of a structural precondition whose violation means the caller is
// broken, not the data.
func Check(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.Newf("gbdata: check failed: "+format, args...))
	}
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}
