package seqflow

import (
	"fmt"
	"time"
)

// Policy decides what a [Scope] does when one of its tasks fails.
// Tasks started through [Spawn] never fail their scope: their outcome goes
// to the [Handle] instead.
type Policy int

const (
	// FailFast cancels the scope on the first task error; Wait returns it.
	FailFast Policy = iota

	// Collect lets every task run to the end; Wait returns all task errors
	// joined with [errors.Join]. The query provider runs its executions in
	// Collect scopes so one failed query never cancels another.
	Collect
)

func (p Policy) valid() bool {
	return p == FailFast || p == Collect
}

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case Collect:
		return "collect"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// TaskInfo names a task in hooks and in [*TaskError]. Handles spawned by
// the query provider are named after their execution mode, for example
// "query.offloaded".
type TaskInfo struct {
	Name string
}

type scopeConfig struct {
	policy     Policy
	limit      int
	panicAsErr bool
	onStart    func(TaskInfo)
	onDone     func(TaskInfo, error, time.Duration)
}

// Option configures a [Scope]. Options validate their arguments when they
// are created, so a bad option panics at the call site that built it.
type Option func(*scopeConfig)

func newScopeConfig(opts []Option) scopeConfig {
	cfg := scopeConfig{policy: FailFast}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithPolicy selects how task errors are handled. The default is FailFast.
func WithPolicy(p Policy) Option {
	if !p.valid() {
		panic(invalid("WithPolicy", "unknown policy %d", int(p)))
	}
	return func(c *scopeConfig) { c.policy = p }
}

// WithLimit bounds how many tasks run at once. Queued tasks wait for a
// slot or for the scope to be cancelled; a queued [Spawn] handle that never
// gets a slot completes with the cancellation cause. Zero means no bound.
func WithLimit(n int) Option {
	if n < 0 {
		panic(invalid("WithLimit", "limit must be non-negative, got %d", n))
	}
	return func(c *scopeConfig) { c.limit = n }
}

// WithPanicAsError returns task panics from Wait as [*PanicError] instead
// of re-raising them. Handles always receive panics as errors.
func WithPanicAsError() Option {
	return func(c *scopeConfig) { c.panicAsErr = true }
}

// WithOnStart registers a hook run on the task's goroutine just before the
// task body.
func WithOnStart(fn func(TaskInfo)) Option {
	return func(c *scopeConfig) { c.onStart = fn }
}

// WithOnDone registers a hook run on the task's goroutine after the task
// body, with its error and wall-clock duration.
func WithOnDone(fn func(TaskInfo, error, time.Duration)) Option {
	return func(c *scopeConfig) { c.onDone = fn }
}
