package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/mqtap/internal/session"
	pebblestore "github.com/rzbill/mqtap/internal/storage/pebble"
	"github.com/rzbill/mqtap/internal/tap"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Deps are the server's collaborators.
type Deps struct {
	Manager *session.Manager
	Tap     *tap.Tap
	// CaptureDB enables the capture endpoints when non-nil.
	CaptureDB *pebblestore.DB
	// Registry serves /metrics when non-nil.
	Registry *prometheus.Registry
	Logger   logpkg.Logger
}

// Server is the HTTP API server.
type Server struct {
	deps   Deps
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds the server and its routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	mux := http.NewServeMux()
	s := &Server{deps: deps, srv: &http.Server{Handler: cors(mux)}, logger: logger.With(logpkg.Component("http"))}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/tree", s.handleTree)
	mux.HandleFunc("/v1/messages", s.handleMessages)
	mux.HandleFunc("/v1/tail", s.handleTail)
	if deps.CaptureDB != nil {
		mux.HandleFunc("/v1/capture/sessions", s.handleCaptureSessions)
		mux.HandleFunc("/v1/capture/messages", s.handleCaptureMessages)
		mux.HandleFunc("/v1/capture/purge", s.handleCapturePurge)
	}
	if deps.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
