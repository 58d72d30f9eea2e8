package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func testServer(t *testing.T, routes map[string]any) (*httptest.Server, BaseURLFunc) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}))
	t.Cleanup(srv.Close)
	return srv, func() string { return srv.URL }
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	return buf.String()
}

func TestStatsCommand(t *testing.T) {
	_, base := testServer(t, map[string]any{
		"/v1/stats": map[string]any{
			"session": "s1",
			"counters": map[string]any{
				"received": 3, "enqueued": 3, "delivered": 3,
			},
			"messages":  3,
			"treeNodes": 2,
		},
	})
	out := runCommand(t, NewStatsCommand(base))
	if !strings.Contains(out, `"session": "s1"`) || !strings.Contains(out, `"received": 3`) {
		t.Fatalf("output: %s", out)
	}
}

func TestMessagesCommandRendersPayloads(t *testing.T) {
	_, base := testServer(t, map[string]any{
		"/v1/messages": map[string]any{
			"messages": []map[string]any{
				{"seq": 1, "topic": "a/b", "payload": []byte(`{"v":1}`), "qos": 0, "receivedAt": "2026-01-01T00:00:00Z"},
				{"seq": 2, "topic": "a/c", "payload": []byte("plain"), "qos": 1, "receivedAt": "2026-01-01T00:00:01Z"},
			},
			"count": 2,
		},
	})
	out := runCommand(t, NewMessagesCommand(base))
	if !strings.Contains(out, `"payload_json":{"v":1}`) {
		t.Fatalf("json payload not decoded: %s", out)
	}
	if !strings.Contains(out, `"payload_text":"plain"`) {
		t.Fatalf("text payload not decoded: %s", out)
	}
}

func TestCaptureSessionsCommand(t *testing.T) {
	_, base := testServer(t, map[string]any{
		"/v1/capture/sessions": map[string]any{"sessions": []string{"s1", "s2"}},
	})
	out := runCommand(t, NewCaptureCommand(base), "sessions")
	if out != "s1\ns2\n" {
		t.Fatalf("output: %q", out)
	}
}

func TestCapturePurgeRequiresConfirm(t *testing.T) {
	_, base := testServer(t, map[string]any{})
	cmd := NewCaptureCommand(base)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"purge", "--session", "s1"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--confirm") {
		t.Fatalf("err = %v", err)
	}
}

func TestTailCommandStreamsFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"seq\":1,\"topic\":\"live/a\",\"payload\":\"eA==\",\"qos\":0,\"receivedAt\":\"2026-01-01T00:00:00Z\"}\n\n"))
	}))
	defer srv.Close()

	out := runCommand(t, NewTailCommand(func() string { return srv.URL }), "--limit", "1")
	if !strings.Contains(out, `"topic":"live/a"`) {
		t.Fatalf("output: %s", out)
	}
}

func TestAPIErrorSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "filter: bad syntax"})
	}))
	defer srv.Close()

	cmd := NewStatsCommand(func() string { return srv.URL })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "bad syntax") {
		t.Fatalf("err = %v", err)
	}
}
