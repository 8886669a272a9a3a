package seqflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDisposed is the cancellation cause injected into a producer when
	// its enumerator is closed while the producer is still running. It
	// matches [context.Canceled] under [errors.Is].
	ErrDisposed = fmt.Errorf("seqflow: enumerator disposed: %w", context.Canceled)

	// ErrYieldAfterBreak is returned by [Yield.Return] once the producer
	// has already called [Yield.Break].
	ErrYieldAfterBreak = errors.New("seqflow: yield after break")

	// ErrEmptySequence is returned by aggregates that are undefined on an
	// empty sequence, such as [Average].
	ErrEmptySequence = errors.New("seqflow: sequence contains no elements")
)

// IsCancellation reports whether err is a cancellation outcome rather than
// a failure: context cancellation, an expired deadline, or [ErrDisposed].
// Cancellation outcomes are never wrapped into faults.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ValidationError reports bad arguments detected before any work starts.
// Constructors that receive invalid arguments panic with a
// *ValidationError; the query layer returns one listing every issue found.
type ValidationError struct {
	// Op names the operation that rejected its arguments.
	Op string

	// Issues lists each problem found, in discovery order.
	Issues []string
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return fmt.Sprintf("%s: invalid arguments", e.Op)
	case 1:
		return fmt.Sprintf("%s: %s", e.Op, e.Issues[0])
	default:
		return fmt.Sprintf("%s: %d issues: %s", e.Op, len(e.Issues), strings.Join(e.Issues, "; "))
	}
}

// NewValidationError returns a ValidationError for op listing issues.
func NewValidationError(op string, issues ...string) *ValidationError {
	return &ValidationError{Op: op, Issues: issues}
}

func invalid(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Issues: []string{fmt.Sprintf(format, args...)}}
}

// IsValidationError reports whether err (or any error in its chain) is a
// [*ValidationError].
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ProducerFault wraps an error raised by user-supplied code: a generator
// body, or the function passed to an operator such as [Select]. It is
// delivered to the consumer call that was waiting on that code.
type ProducerFault struct {
	// Op names the operator whose user code failed ("Create", "Select", ...).
	Op  string
	Err error
}

func (e *ProducerFault) Error() string {
	return fmt.Sprintf("seqflow: %s: %v", e.Op, e.Err)
}

func (e *ProducerFault) Unwrap() error {
	return e.Err
}

// fault wraps err as a ProducerFault for op. Cancellations and errors that
// already carry a ProducerFault pass through unchanged.
func fault(op string, err error) error {
	if err == nil || IsCancellation(err) {
		return err
	}
	var pf *ProducerFault
	if errors.As(err, &pf) {
		return err
	}
	return &ProducerFault{Op: op, Err: err}
}

// AggregateFault collects every failure of a fan-out instead of keeping
// only the first. Faults are ordered by the position of the failing target.
type AggregateFault struct {
	Op     string
	Faults []error
}

func (e *AggregateFault) Error() string {
	msgs := make([]string, len(e.Faults))
	for i, f := range e.Faults {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s: %d fault(s): %s", e.Op, len(e.Faults), strings.Join(msgs, "; "))
}

func (e *AggregateFault) Unwrap() []error {
	return e.Faults
}

// NewAggregateFault returns nil when faults is empty, the aggregate
// otherwise. Nil entries are skipped.
func NewAggregateFault(op string, faults []error) error {
	var kept []error
	for _, f := range faults {
		if f != nil {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &AggregateFault{Op: op, Faults: kept}
}

// TaskError wraps an error together with the [TaskInfo] of the task that
// produced it. Scope error aggregation wraps every task failure in a
// TaskError so callers can attribute errors to specific tasks.
type TaskError struct {
	Task TaskInfo
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// TaskOf extracts the [TaskInfo] from the first [*TaskError] in err's chain.
// Returns false if no TaskError is found.
func TaskOf(err error) (TaskInfo, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Task, true
	}
	return TaskInfo{}, false
}

// CauseOf unwraps the first [*TaskError] or [*ProducerFault] in err's chain
// and returns its underlying cause. Any other error is returned as-is.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var te *TaskError
	if errors.As(err, &te) {
		return te.Err
	}
	var pf *ProducerFault
	if errors.As(err, &pf) {
		return pf.Err
	}
	return err
}
