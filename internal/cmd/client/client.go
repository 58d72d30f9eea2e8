package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// getJSON fetches path from the API and decodes the JSON response into out.
func getJSON(baseURL BaseURLFunc, path string, query url.Values, out any) error {
	u := baseURL() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError drains the body and surfaces the server's error message when
// the response carries one.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return fmt.Errorf("http error: %s: %s", resp.Status, body.Error)
	}
	return fmt.Errorf("http error: %s", resp.Status)
}

// decodedMessage renders a tapped message with one of payload_json,
// payload_text, or payload_b64 depending on what the payload looks like.
func decodedMessage(topic string, payload []byte, qos byte, retained bool, at time.Time) map[string]any {
	out := map[string]any{
		"topic": topic,
		"qos":   qos,
		"at":    at.Format(time.RFC3339Nano),
	}
	if retained {
		out["retained"] = true
	}
	// Try JSON first if it looks like JSON
	if len(payload) > 0 && (payload[0] == '{' || payload[0] == '[') {
		var v any
		if json.Unmarshal(payload, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	// Then UTF-8 text if valid
	if utf8.Valid(payload) {
		out["payload_text"] = string(payload)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(payload)
	return out
}

// wireMessage matches the JSON shape the server emits for stored and
// captured messages.
type wireMessage struct {
	Seq        uint64    `json:"seq"`
	Topic      string    `json:"topic"`
	Payload    []byte    `json:"payload"`
	QoS        byte      `json:"qos"`
	Retained   bool      `json:"retained"`
	ReceivedAt time.Time `json:"receivedAt"`
}
