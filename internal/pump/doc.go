// Package pump runs the single consumer loop between a session's inbox
// and its bus.
//
// Exactly one pump goroutine exists per inbox. It blocks until the inbox
// is readable, drains everything available, and republishes item by item,
// incrementing the delivered counter and optionally pacing with a fixed
// per-item delay. Because publication happens from this one goroutine,
// everything downstream needs no extra ordering synchronization.
package pump
