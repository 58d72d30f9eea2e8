// Package id provides a 128-bit, lexicographically sortable identifier.
//
// mqtap names capture sessions with these IDs: because byte-wise (and
// hex-string) comparison preserves chronological order, session keys in
// the capture store list oldest-first with a plain prefix scan.
//
// # Format
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// IDs generated within the same millisecond remain strictly increasing by
// sequence.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity:
//   - If the system clock regresses, it pins to the last seen millisecond and
//     increments the sequence to avoid going backwards.
//   - If the sequence would overflow within a millisecond, it waits for the
//     next millisecond before emitting the next ID.
//
// Usage
//
//	g := id.NewGenerator()
//	sessionID := g.Next().String() // hex, sorts chronologically
package id
