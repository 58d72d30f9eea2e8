// Package pebblestore wraps Pebble with the fsync policy, batch, and
// iterator helpers the capture log needs.
//
// The wrapper owns the durability decision: callers commit batches and the
// store applies the configured WAL sync mode, so the capture path never
// has to pick a sync flag per write.
package pebblestore
