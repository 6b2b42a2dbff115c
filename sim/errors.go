package sim

import (
	"errors"
	"fmt"
)

// ConstructionErrorCode categorizes graph-build failures.
type ConstructionErrorCode string

const (
	// CodeDuplicateName: a node or sub-scope with the same local name already exists.
	CodeDuplicateName ConstructionErrorCode = "DUPLICATE_NAME"
	// CodeLookup: a dotted path segment could not be resolved.
	CodeLookup ConstructionErrorCode = "LOOKUP"
	// CodeArity: a binding list is malformed (nil node, repeated parameter name, wrong count).
	CodeArity ConstructionErrorCode = "ARITY"
	// CodeType: an argument has the wrong kind (e.g. neither a Node nor a Scope with a functionality).
	CodeType ConstructionErrorCode = "TYPE"
	// CodeFinalized: a declaration targeted a scope whose construction block already exited.
	CodeFinalized ConstructionErrorCode = "FINALIZED"
	// CodeWriterConflict: a node would get a second writer (Function output or State Transition).
	CodeWriterConflict ConstructionErrorCode = "WRITER_CONFLICT"
	// CodeCycle: Functions depend on each other's outputs within one forward pass.
	CodeCycle ConstructionErrorCode = "CYCLE"
	// CodeReadOnly: a Parameter or State was assigned directly.
	CodeReadOnly ConstructionErrorCode = "READ_ONLY"
	// CodeInvalidValue: a value is outside its admissible range (e.g. dt <= 0).
	CodeInvalidValue ConstructionErrorCode = "INVALID_VALUE"
)

// Sentinels matched by ConstructionError.Is.
var (
	ErrDuplicateName  = errors.New("duplicate name")
	ErrLookup         = errors.New("unresolved path")
	ErrArity          = errors.New("bad binding arity")
	ErrType           = errors.New("wrong argument type")
	ErrFinalized      = errors.New("scope finalized")
	ErrWriterConflict = errors.New("node already has a writer")
	ErrCycle          = errors.New("dependency cycle")
	ErrReadOnly       = errors.New("node is read-only")
	ErrInvalidValue   = errors.New("invalid value")

	// ErrNonConforming is wrapped by EvaluationError when a combinator returns
	// a value whose shape does not match the output node's kind.
	ErrNonConforming = errors.New("non-conforming combinator result")

	// ErrPhase is returned by Transition when no successful Forward is pending.
	ErrPhase = errors.New("transition without a pending forward pass")
)

var constructionSentinels = map[ConstructionErrorCode]error{
	CodeDuplicateName:  ErrDuplicateName,
	CodeLookup:         ErrLookup,
	CodeArity:          ErrArity,
	CodeType:           ErrType,
	CodeFinalized:      ErrFinalized,
	CodeWriterConflict: ErrWriterConflict,
	CodeCycle:          ErrCycle,
	CodeReadOnly:       ErrReadOnly,
	CodeInvalidValue:   ErrInvalidValue,
}

// ConstructionError is raised synchronously while the graph is being built.
// It is always fatal to the construction call that produced it.
type ConstructionError struct {
	Code    ConstructionErrorCode
	Path    string // full path of the offending node or scope, if known
	Message string
}

func (e *ConstructionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets errors.Is match the code-specific sentinel.
func (e *ConstructionError) Is(target error) bool {
	return constructionSentinels[e.Code] == target
}

// NewConstructionError builds a ConstructionError for mechanisms layered on
// top of the engine.
func NewConstructionError(code ConstructionErrorCode, path, format string, args ...any) *ConstructionError {
	return constructionErr(code, path, format, args...)
}

func constructionErr(code ConstructionErrorCode, path, format string, args ...any) *ConstructionError {
	return &ConstructionError{Code: code, Path: path, Message: fmt.Sprintf(format, args...)}
}

// EvaluationError reports a Function or Transition that failed during Forward.
// The step is aborted: no State is committed.
type EvaluationError struct {
	Path string // full path of the output node (Function) or target State (Transition)
	Kind string // "function" or "transition"
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// EventError reports a calendar callback that failed. It never aborts a step.
type EventError struct {
	Name        string
	ScheduledAt float64
	Now         float64
	Err         error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event %q scheduled at %g failed at t=%g: %v", e.Name, e.ScheduledAt, e.Now, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

// ScheduleError is returned when an event is scheduled before the current time.
// It is recoverable: the calendar is left unchanged.
type ScheduleError struct {
	Name string
	At   float64
	Now  float64
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("cannot schedule event %q at t=%g: clock is already at t=%g", e.Name, e.At, e.Now)
}

// IsConstructionError returns true if err is (or wraps) a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// IsEvaluationError returns true if err is (or wraps) an EvaluationError.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}
