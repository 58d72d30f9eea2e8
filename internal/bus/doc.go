// Package bus implements the hot multicast point between the pump and its
// subscriber pipelines.
//
// A Bus delivers each published value to every currently-attached handler,
// in publish order, on the publishing goroutine. There is no replay and no
// internal buffering: with zero subscribers a publish is a no-op. Handlers
// are expected to only stage/offload work; unbounded synchronous work in a
// handler stalls the pump.
package bus
