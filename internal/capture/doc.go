// Package capture persists tapped messages to Pebble as an append-only,
// per-session log.
//
// The recorder pipeline appends one batch per window; readers page through
// a session's records by sequence and can block for new appends when
// tailing. Retention is size-based and trims from the oldest record.
package capture
