// Package mqtt connects to the tapped broker and feeds received messages
// into the current session.
//
// The broker callback never blocks on downstream work: messages are
// offered to the session inbox and overflow is handled there. Connection
// and loss events drive session lifecycle through the session manager.
package mqtt
