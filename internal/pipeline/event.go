package pipeline

import (
	"strings"
	"time"
)

// Event is one message observed on the tapped stream. Events are immutable
// once constructed; pipelines move and transform references only.
type Event struct {
	// Seq is the session-scoped receive sequence assigned by the source.
	Seq uint64
	// Topic is the full slash-delimited key.
	Topic string
	// Segments is Topic split on '/'. Cached at construction because every
	// trie walk needs it.
	Segments []string
	// Payload is the raw message body, owned by the event.
	Payload []byte
	// QoS is the broker delivery level the message arrived with.
	QoS byte
	// Retained marks broker-retained messages.
	Retained bool
	// ReceivedAt is the local receive timestamp.
	ReceivedAt time.Time
}

// SplitTopic splits a topic into its path segments. Empty segments are
// preserved ("a//b" has three segments) because MQTT treats them as
// distinct levels.
func SplitTopic(topic string) []string {
	if topic == "" {
		return nil
	}
	return strings.Split(topic, "/")
}

// NewEvent builds an Event, splitting the topic once.
func NewEvent(seq uint64, topic string, payload []byte, qos byte, retained bool, at time.Time) Event {
	return Event{
		Seq:        seq,
		Topic:      topic,
		Segments:   SplitTopic(topic),
		Payload:    payload,
		QoS:        qos,
		Retained:   retained,
		ReceivedAt: at,
	}
}
