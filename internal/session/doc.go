// Package session owns the lifecycle of one tapped stream: the ingress
// inbox, the pump that drains it, the multicast bus subscribers attach to,
// and the counters that account for every event.
//
// A session begins when the source connects and ends when it disconnects.
// Teardown is ordered so no event is lost to a race: the pump context is
// cancelled, the inbox is sealed, the pump is joined, and only then does
// the bus complete so subscribers can flush their final window.
package session
