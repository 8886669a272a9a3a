// Package push is the push side of seqflow: observers, subjects that
// broadcast to them, and operators over push streams.
//
// A push stream calls its [Observer] with zero or more OnNext
// notifications followed by at most one OnError or OnCompleted. Streams are
// [Observable]; subscribing returns a [Subscription] that detaches the
// observer when disposed.
//
// [Subject] comes in three kinds sharing one observer set: multicast,
// single (the latest subscriber replaces the previous one) and composite
// (concurrent fan-out). [Join] correlates two streams by overlapping
// windows, and [FromSequence], [ToSequence], [ToChan] and [ToChanDropping]
// bridge between push streams, pull sequences and channels.
package push
