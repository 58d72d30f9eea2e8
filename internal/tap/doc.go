// Package tap assembles the subscriber side of the daemon: the shared
// sink executor, the live message store, the topic tree, and the optional
// durable recorder.
//
// Tap listens for session lifecycle and attaches one pipeline per view to
// each new session's bus. All view mutations are serialized on the sink
// executor; readers (the HTTP layer) see consistent snapshots at any time.
package tap
