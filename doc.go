// Package seqflow provides lazy pull sequences driven by generator
// producers, together with the structured-concurrency pieces they run on.
//
// # Sequences
//
// A [Sequence] is an immutable description; every call to
// [Sequence.Enumerate] returns an independent [Enumerator]. Nothing runs
// until Next is called, and each enumeration replays the sequence from the
// start:
//
//	evens := seqflow.Range(0, 100).Where(func(v int) bool { return v%2 == 0 })
//	first, err := evens.Take(3).ToSlice(ctx) // [0 2 4]
//
// Sources are [FromSlice], [Of], [Range], [Repeat], [Empty], [Create] and
// the hot [FromChan]. Methods such as [Sequence.Where], [Sequence.Take],
// [Sequence.Skip], [Sequence.Peek] and [Sequence.Concat] compose lazily;
// [Select], [SelectMany] and [ParallelSelect] are functions because Go does
// not allow type parameters on methods. Terminal operations ([Sequence.ToSlice],
// [Sequence.ForEach], [Sequence.Count], [Sum], [Average], [Reduce], ...)
// always close the enumerator they open.
//
// # Generators
//
// [Create] turns a producer function into a sequence. The producer runs on
// its own goroutine and hands items to the consumer through [Yield.Return],
// one at a time: it never runs more than one item ahead. Closing the
// enumerator cancels the producer context with cause [ErrDisposed], fails a
// pending Return, and waits for the producer to return, so early exits such
// as Take release the producer's resources before the consumer moves on.
//
// # Errors
//
//   - Cancellation ([context.Canceled], [context.DeadlineExceeded],
//     [ErrDisposed]) is reported as is; test for it with [IsCancellation].
//   - Failures of user code are wrapped in [*ProducerFault].
//   - Fan-out failures are collected in [*AggregateFault].
//   - Bad arguments panic with a [*ValidationError] at construction time.
//   - Panics are recovered into [*PanicError].
//
// A fault nobody can receive any more, such as a producer failing after its
// enumerator was closed, goes to the handler installed with
// [SetUnhandledHandler]; the default logs it through log/slog.
//
// # Scopes and Handles
//
// A [Scope] owns goroutines with a shared context: [Scope.Wait] joins every
// task, applies the [Policy] (FailFast or Collect), and re-raises captured
// panics unless [WithPanicAsError] is set. [WithLimit] bounds concurrency.
// [Spawn] starts a task returning a [Handle], an asynchronous result that
// can be awaited with a context, cancelled, or chained with [Handle.Then].
//
// [Gate] is a context-aware mutex used to serialise notifications in the
// push subpackage.
//
// # Subpackages
//
// [github.com/baxromumarov/seqflow/push] holds push streams: subjects,
// composite observers, the windowed join, and bridges to and from
// sequences. [github.com/baxromumarov/seqflow/query] compiles declarative
// plans into sequences and executes them inline or in the background.
// [github.com/baxromumarov/seqflow/chanx] has the context-aware channel
// helpers shared by both.
package seqflow
