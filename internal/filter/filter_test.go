package filter

import (
	"testing"
	"time"
)

func msg(topic, payload string) Message {
	return Message{Topic: topic, Payload: []byte(payload), At: time.Now()}
}

func TestEmptyExpressionMatchesAll(t *testing.T) {
	f, err := Compile("   ")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Enabled() {
		t.Fatal("blank filter should be disabled")
	}
	if !f.Eval(msg("any/topic", "x")) {
		t.Fatal("disabled filter must match")
	}
}

func TestCompileRejectsBadExpression(t *testing.T) {
	if _, err := Compile("topic =="); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Compile("nosuchvar > 1"); err == nil {
		t.Fatal("expected check error for unknown variable")
	}
}

func TestTopicAndSegments(t *testing.T) {
	f, err := Compile(`topic.startsWith("home/") && segments[1] == "kitchen"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(msg("home/kitchen/temp", "{}")) {
		t.Fatal("expected match")
	}
	if f.Eval(msg("home/garage/door", "{}")) {
		t.Fatal("expected no match")
	}
}

func TestSegmentsMatchTreeSegmentation(t *testing.T) {
	f, err := Compile(`size(segments) == 0`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	// an empty topic has no segments, same as the trie's split
	if !f.Eval(msg("", "x")) {
		t.Fatal("empty topic should have zero segments")
	}
	if f.Eval(msg("a", "x")) {
		t.Fatal("one-level topic should have one segment")
	}

	f, err = Compile(`size(segments) == 3 && segments[1] == ""`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(msg("a//b", "x")) {
		t.Fatal("empty segments are levels")
	}
}

func TestJSONPayloadFields(t *testing.T) {
	f, err := Compile(`json.temp > 20.0`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(msg("t", `{"temp": 21.5}`)) {
		t.Fatal("expected match on temp 21.5")
	}
	if f.Eval(msg("t", `{"temp": 19.0}`)) {
		t.Fatal("expected no match on temp 19")
	}
	// non-JSON payload: evaluation error counts as no match
	if f.Eval(msg("t", "plain text")) {
		t.Fatal("expected no match on unparsable payload")
	}
}

func TestQoSRetainedAndSize(t *testing.T) {
	f, err := Compile(`qos >= 1 && retained && size < 10`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	m := Message{Topic: "t", Payload: []byte("small"), QoS: 1, Retained: true, At: time.Now()}
	if !f.Eval(m) {
		t.Fatal("expected match")
	}
	m.Retained = false
	if f.Eval(m) {
		t.Fatal("expected no match without retained")
	}
}

func TestTimestampWindow(t *testing.T) {
	f, err := Compile(`now_ms - ts_ms < 60000`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(Message{Topic: "t", At: time.Now()}) {
		t.Fatal("fresh message should match")
	}
	if f.Eval(Message{Topic: "t", At: time.Now().Add(-time.Hour)}) {
		t.Fatal("stale message should not match")
	}
}

func TestNonBooleanResultIsNoMatch(t *testing.T) {
	f, err := Compile(`size + 1`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Eval(msg("t", "x")) {
		t.Fatal("non-boolean result must not match")
	}
}
