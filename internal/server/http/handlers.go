package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rzbill/mqtap/internal/capture"
	"github.com/rzbill/mqtap/internal/filter"
	"github.com/rzbill/mqtap/internal/stats"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	connected := s.deps.Manager.Current() != nil
	if !connected {
		status = "disconnected"
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status, "connected": connected})
}

type statsResponse struct {
	Session   string         `json:"session,omitempty"`
	StartedAt *time.Time     `json:"startedAt,omitempty"`
	Counters  stats.Snapshot `json:"counters"`
	Messages  int            `json:"messages"`
	TreeNodes int64          `json:"treeNodes"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := statsResponse{
		Messages:  s.deps.Tap.MessageCount(),
		TreeNodes: s.deps.Tap.TreeNodeCount(),
	}
	if sess := s.deps.Manager.Current(); sess != nil {
		resp.Session = sess.ID()
		started := sess.StartedAt()
		resp.StartedAt = &started
		resp.Counters = sess.Counters().Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Tap.TreeSnapshot())
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := queryInt(r, "limit", 0)
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "filter: "+err.Error())
		return
	}

	msgs := s.deps.Tap.Messages(limit)
	if f.Enabled() {
		kept := msgs[:0]
		for _, m := range msgs {
			if f.Eval(filter.Message{Topic: m.Topic, Payload: m.Payload, QoS: m.QoS, Retained: m.Retained, At: m.ReceivedAt}) {
				kept = append(kept, m)
			}
		}
		msgs = kept
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs, "count": len(msgs)})
}

func (s *Server) handleCaptureSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessions, err := capture.Sessions(s.deps.CaptureDB)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

type capturedMessage struct {
	Seq        uint64    `json:"seq"`
	Topic      string    `json:"topic"`
	Payload    []byte    `json:"payload,omitempty"`
	QoS        byte      `json:"qos"`
	Retained   bool      `json:"retained,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (s *Server) handleCaptureMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "filter: "+err.Error())
		return
	}

	log, err := capture.OpenLog(s.deps.CaptureDB, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	opts := capture.ReadOptions{
		Limit:   queryInt(r, "limit", 100),
		Reverse: r.URL.Query().Get("reverse") == "true",
	}
	if start := queryInt(r, "start", 0); start > 0 {
		opts.Start = capture.TokenFromSeq(uint64(start))
	}

	items, next := log.Read(opts)
	out := make([]capturedMessage, 0, len(items))
	for _, it := range items {
		if f.Enabled() && !f.Eval(filter.Message{Topic: it.Topic, Payload: it.Payload, QoS: it.QoS, Retained: it.Retained, At: it.At}) {
			continue
		}
		out = append(out, capturedMessage{
			Seq:        it.Seq,
			Topic:      it.Topic,
			Payload:    it.Payload,
			QoS:        it.QoS,
			Retained:   it.Retained,
			ReceivedAt: it.At,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": out,
		"count":    len(out),
		"next":     next.Seq(),
	})
}

type purgeReq struct {
	Session string `json:"session"`
}

func (s *Server) handleCapturePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req purgeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Session == "" {
		writeError(w, http.StatusBadRequest, "session is required")
		return
	}
	if cur := s.deps.Manager.Current(); cur != nil && cur.ID() == req.Session {
		writeError(w, http.StatusConflict, "session is live")
		return
	}
	if err := capture.Purge(s.deps.CaptureDB, req.Session); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
