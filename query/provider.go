package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/baxromumarov/seqflow"
	"github.com/google/uuid"
)

// ErrClosed is returned when executing against a closed [Provider].
var ErrClosed = errors.New("query: provider closed")

// SourceFunc is a synchronous source: it blocks until all items are loaded.
type SourceFunc func(ctx context.Context) ([]any, error)

// Mode records how a plan was executed.
type Mode int

const (
	// Inline: run by Execute on the calling goroutine.
	Inline Mode = iota
	// Native: every source was a sequence; the plan was drained as one.
	Native
	// Offloaded: the plan reads a synchronous source, so it ran on a
	// goroutine owned by the provider.
	Offloaded
)

func (m Mode) String() string {
	switch m {
	case Inline:
		return "inline"
	case Native:
		return "native"
	case Offloaded:
		return "offloaded"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Result is the outcome of one execution. Aggregate plans set Scalar;
// every other plan sets Items.
type Result struct {
	ID     uuid.UUID
	Items  []any
	Scalar any
	Mode   Mode
}

type source struct {
	seq *seqflow.Sequence[any]
	fn  SourceFunc
}

// Option configures a [Provider].
type Option func(*Provider)

// WithLogger sets the logger for execution events. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxConcurrent bounds how many offloaded executions run at once.
// Zero means no bound. It panics if n is negative.
func WithMaxConcurrent(n int) Option {
	if n < 0 {
		panic(seqflow.NewValidationError("WithMaxConcurrent", fmt.Sprintf("limit must be non-negative, got %d", n)))
	}
	return func(p *Provider) { p.maxConcurrent = n }
}

// Provider executes plans against named sources. Sources registered with
// [Provider.RegisterSequence] are pulled lazily; sources registered with
// [Provider.RegisterFunc] block until loaded, and plans reading them are
// run off the caller's goroutine by [Provider.ExecuteAsync].
//
// Asynchronous executions run inside scopes owned by the provider; Close
// cancels and joins them.
type Provider struct {
	logger        *slog.Logger
	maxConcurrent int

	mu       sync.RWMutex
	sources  map[string]source
	closed   bool
	native   *seqflow.Scope
	blocking *seqflow.Scope
}

// NewProvider returns a provider whose asynchronous executions are
// cancelled when ctx is.
func NewProvider(ctx context.Context, opts ...Option) *Provider {
	p := &Provider{
		logger:  slog.Default(),
		sources: make(map[string]source),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.native = seqflow.NewScope(ctx, seqflow.WithPolicy(seqflow.Collect))
	p.blocking = seqflow.NewScope(ctx,
		seqflow.WithPolicy(seqflow.Collect),
		seqflow.WithLimit(p.maxConcurrent),
	)
	return p
}

// RegisterSequence registers seq as the source called name, replacing any
// previous source of that name. Use [Items] to register a typed sequence.
func (p *Provider) RegisterSequence(name string, seq *seqflow.Sequence[any]) {
	if name == "" || seq == nil {
		panic(seqflow.NewValidationError("RegisterSequence", "name and sequence are required"))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[name] = source{seq: seq}
}

// RegisterFunc registers a synchronous source called name.
func (p *Provider) RegisterFunc(name string, fn SourceFunc) {
	if name == "" || fn == nil {
		panic(seqflow.NewValidationError("RegisterFunc", "name and function are required"))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[name] = source{fn: fn}
}

// Items converts a typed sequence to the item sequence plans run over.
func Items[T any](s *seqflow.Sequence[T]) *seqflow.Sequence[any] {
	return seqflow.Select(s, func(_ context.Context, v T) (any, error) { return v, nil })
}

// Has reports whether a source called name is registered.
func (p *Provider) Has(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.sources[name]
	return ok
}

func (p *Provider) lookup(name string) (source, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sources[name]
	return s, ok
}

// prepare validates and compiles plan.
func (p *Provider) prepare(plan Plan) (*compiled, error) {
	if err := Validate(plan, p); err != nil {
		return nil, err
	}
	return compile(plan, p.lookup)
}

// Execute validates plan and runs it to completion on the calling
// goroutine.
func (p *Provider) Execute(ctx context.Context, plan Plan) (Result, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return Result{}, ErrClosed
	}

	c, err := p.prepare(plan)
	if err != nil {
		return Result{}, err
	}
	return p.run(ctx, c, Inline)
}

// ExecuteAsync validates plan and starts it in the background. Validation
// errors are returned immediately. Plans whose sources are all sequences
// run as [Native]; plans reading a synchronous source run as [Offloaded],
// bounded by [WithMaxConcurrent]. Cancelling ctx, or the returned handle,
// cancels the execution.
func (p *Provider) ExecuteAsync(ctx context.Context, plan Plan) (*seqflow.Handle[Result], error) {
	c, err := p.prepare(plan)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	mode, sc := Native, p.native
	if !c.native {
		mode, sc = Offloaded, p.blocking
	}
	return seqflow.Spawn(sc, "query."+mode.String(), func(taskCtx context.Context) (Result, error) {
		runCtx, cancel := context.WithCancelCause(taskCtx)
		defer cancel(nil)
		stop := context.AfterFunc(ctx, func() { cancel(context.Cause(ctx)) })
		defer stop()
		return p.run(runCtx, c, mode)
	}), nil
}

func (p *Provider) run(ctx context.Context, c *compiled, mode Mode) (Result, error) {
	res := Result{ID: uuid.Must(uuid.NewV7()), Mode: mode}
	log := p.logger.With("exec_id", res.ID.String(), "mode", mode.String())
	log.DebugContext(ctx, "query: execution started")
	start := time.Now()

	var err error
	if c.agg != nil {
		res.Scalar, err = aggregate(ctx, c.seq, c.agg)
	} else {
		res.Items, err = c.seq.ToSlice(ctx)
	}

	if err != nil {
		log.DebugContext(ctx, "query: execution failed", "err", err, "elapsed", time.Since(start))
		return Result{ID: res.ID, Mode: mode}, err
	}
	log.DebugContext(ctx, "query: execution finished", "items", len(res.Items), "elapsed", time.Since(start))
	return res, nil
}

// Close cancels running asynchronous executions and waits for them.
// Later executions fail with [ErrClosed].
func (p *Provider) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.native.Cancel(ErrClosed)
	p.blocking.Cancel(ErrClosed)
	err := errors.Join(p.native.Wait(), p.blocking.Wait())
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}
