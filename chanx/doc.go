// Package chanx holds the context-aware channel primitives that seqflow's
// bridges are built on.
//
// Sends to closed channels panic and blocked sends leak goroutines. chanx
// covers both:
//
//   - [Send] and [Recv]: send and receive that unblock on cancellation.
//   - [Closable]: a channel with idempotent Close whose senders get
//     [ErrClosed] instead of a panic, even when Close races a blocked send.
package chanx
