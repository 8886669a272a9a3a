package seqflow

import (
	"log/slog"
	"sync/atomic"
)

// UnhandledHandler receives faults that no live consumer or observer can
// take: a producer failing after its consumer closed the enumerator, an
// error pushed into a subject that was already terminated or disposed, a
// duration source failing after its join finished.
type UnhandledHandler func(err error)

var unhandled atomic.Pointer[UnhandledHandler]

func defaultUnhandled(err error) {
	slog.Error("seqflow: unhandled fault", "err", err)
}

// SetUnhandledHandler installs fn as the process-wide unhandled-fault
// handler and returns a function restoring the previous one. A nil fn
// restores the default handler, which logs through [slog.Default].
func SetUnhandledHandler(fn UnhandledHandler) (restore func()) {
	var next *UnhandledHandler
	if fn != nil {
		next = &fn
	}
	prev := unhandled.Swap(next)
	return func() { unhandled.Store(prev) }
}

// ReportUnhandled routes err to the unhandled-fault handler.
// Nil errors and cancellations are dropped.
func ReportUnhandled(err error) {
	if err == nil || IsCancellation(err) {
		return
	}
	if h := unhandled.Load(); h != nil {
		(*h)(err)
		return
	}
	defaultUnhandled(err)
}
