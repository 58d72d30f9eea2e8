// Package sink provides the single-threaded commit side of subscriber
// pipelines.
//
// Executor is the one goroutine allowed to mutate sink state; every
// pipeline posts its window commits there, so commits interleave but never
// run concurrently. Store is a bounded ordered collection committed to in
// bulk: one append-plus-trim mutation and one change notification per
// batch, independent of batch size.
package sink
