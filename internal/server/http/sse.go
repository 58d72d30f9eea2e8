package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/rzbill/mqtap/internal/filter"
	"github.com/rzbill/mqtap/internal/pipeline"
	"github.com/rzbill/mqtap/internal/tap"
)

// handleTail streams live messages as SSE data events. The bus handler
// runs on the pump goroutine, so it only forwards into a buffered channel;
// a full channel drops for this viewer without touching the stream.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f, err := filter.Compile(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "filter: "+err.Error())
		return
	}
	sess := s.deps.Manager.Current()
	if sess == nil {
		writeError(w, http.StatusServiceUnavailable, "no live session")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flush(w)

	events := make(chan pipeline.Event, 256)
	done := make(chan struct{})
	sub := sess.Bus().Subscribe(func(e pipeline.Event) {
		select {
		case events <- e:
		default:
		}
	}, func() { close(done) })
	defer sub.Close()

	for {
		select {
		case e := <-events:
			if f.Enabled() && !f.Eval(filter.Message{Topic: e.Topic, Payload: e.Payload, QoS: e.QoS, Retained: e.Retained, At: e.ReceivedAt}) {
				continue
			}
			if err := sendEvent(w, e); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func sendEvent(w http.ResponseWriter, e pipeline.Event) error {
	b, _ := json.Marshal(tap.StoredMessage{
		Seq:        e.Seq,
		Topic:      e.Topic,
		Payload:    e.Payload,
		QoS:        e.QoS,
		Retained:   e.Retained,
		ReceivedAt: e.ReceivedAt,
	})
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
