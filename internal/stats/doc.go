// Package stats tracks per-session ingestion counters.
//
// Each counter has exactly one writer goroutine for the lifetime of a
// session: received and enqueued/dropped are written from the broker
// callback, delivered from the pump. Readers poll Snapshot at their own
// interval and tolerate staleness on that order.
package stats
