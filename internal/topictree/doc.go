// Package topictree maintains a trie of slash-delimited topics with
// per-node message state.
//
// Updates are split in two phases so the expensive walk happens off the
// sink goroutine: Stage runs on the pump goroutine, resolving each event's
// path against the live tree and creating detached nodes for the levels
// that do not exist yet, grouped by the parent they will attach under.
// Apply runs on the sink executor and performs one bulk child attachment
// per touched parent, then records the staged payloads. Readers traverse
// concurrently under per-node read locks; each node has exactly one writer
// (the sink executor), so snapshots never observe a half-attached batch.
package topictree
