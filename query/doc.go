// Package query runs declarative plans over seqflow sequences.
//
// A [Plan] is a tree of sources, filters, projections, limits,
// concatenations, joins and an optional root aggregate. Plans are built in
// Go, through the [Query] builder, or decoded from YAML with [ParsePlan].
// [Validate] reports every problem of a plan at once, and [Explain]
// renders it as a tree.
//
// A [Provider] holds the named sources. Sequence sources are pulled
// lazily; function sources block while they load, so ExecuteAsync runs
// plans that read them on a goroutine owned by the provider. Executing the
// same plan twice enumerates every source afresh and gives the same result
// for replayable sources.
package query
