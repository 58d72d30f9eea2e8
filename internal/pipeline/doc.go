// Package pipeline composes the per-subscriber path from the session bus
// to the sink executor.
//
// Each attached pipeline transforms events on the publishing (pump)
// goroutine, collects the results into time windows, and posts every
// non-empty window to the sink executor as one bulk commit. The expensive
// work (transform, allocation) therefore happens off the sink goroutine,
// and the sink sees one mutation per window regardless of event rate.
package pipeline
