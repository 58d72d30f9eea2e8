package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/rzbill/mqtap/internal/config"
	"github.com/rzbill/mqtap/internal/inbox"
	"github.com/rzbill/mqtap/internal/mqtt"
	"github.com/rzbill/mqtap/internal/pipeline"
	httpserver "github.com/rzbill/mqtap/internal/server/http"
	"github.com/rzbill/mqtap/internal/session"
	"github.com/rzbill/mqtap/internal/stats"
	pebblestore "github.com/rzbill/mqtap/internal/storage/pebble"
	"github.com/rzbill/mqtap/internal/tap"
	logpkg "github.com/rzbill/mqtap/pkg/log"
)

// Run wires the daemon from cfg and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg cfgpkg.Config) error {
	// Layer a local signal context over the provided one so callers
	// without signal handling still shut down cleanly.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := inbox.ParsePolicy(cfg.Buffer.Policy)
	if err != nil {
		return err
	}

	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	// Pebble and paho log through the standard library
	logpkg.RedirectStdLog(logger)

	registry := prometheus.NewRegistry()

	var db *pebblestore.DB
	if cfg.Capture.Enabled {
		dataDir := cfg.Capture.DataDir
		if dataDir == "" {
			dataDir = cfgpkg.DefaultDataDir()
		}
		fsync, err := pebblestore.ParseFsyncMode(cfg.Capture.Fsync)
		if err != nil {
			return err
		}
		db, err = pebblestore.Open(pebblestore.Options{
			DataDir: dataDir,
			Fsync:   fsync,
			Metrics: stats.NewStorageMetrics(registry),
		})
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Info("capture enabled",
			logpkg.Str("data_dir", dataDir),
			logpkg.Int64("max_bytes", cfg.Capture.MaxBytes))
	}

	pipeCfg := pipeline.Config{
		Window:      cfg.Tap.Window.Std(),
		MaxSinkSize: cfg.Tap.MaxMessages,
		TrimBatch:   cfg.Tap.TrimBatch,
	}
	tp := tap.New(tap.Options{
		TreeRetain:           cfg.Tap.TreeRetain,
		CaptureDB:            db,
		CaptureMaxBytes:      cfg.Capture.MaxBytes,
		CaptureTrimBatchKeys: cfg.Capture.TrimBatchKeys,
		Logger:               logger,
	}, pipeCfg)
	defer tp.Close()

	mgr := session.NewManager(session.Options{
		Capacity: cfg.Buffer.Capacity,
		Policy:   policy,
		Delay:    cfg.Buffer.Delay.Std(),
		Pipeline: pipeCfg,
		Logger:   logger,
	})
	mgr.AddListener(tp)

	registry.MustRegister(stats.NewCollector(func() stats.Snapshot {
		if s := mgr.Current(); s != nil {
			return s.Counters().Snapshot()
		}
		return stats.Snapshot{}
	}))

	logger.Info("starting mqtap",
		logpkg.Str("broker", cfg.MQTT.BrokerURL),
		logpkg.Str("http", cfg.HTTP.Addr),
		logpkg.Int("capacity", cfg.Buffer.Capacity),
		logpkg.Str("policy", policy.String()),
		logpkg.Dur("window", pipeCfg.Window))

	src := mqtt.NewSource(mqtt.Options{
		BrokerURL: cfg.MQTT.BrokerURL,
		ClientID:  cfg.MQTT.ClientID,
		Username:  cfg.MQTT.Username,
		Password:  cfg.MQTT.Password,
		Topics:    cfg.MQTT.Topics,
		QoS:       byte(cfg.MQTT.QoS),
		KeepAlive: cfg.MQTT.KeepAlive.Std(),
		Logger:    logger,
	}, mgr)
	go func() {
		// connect retries run inside the client; Start only fails on
		// a misconfigured broker URL
		if err := src.Start(sctx); err != nil {
			logger.Error("mqtt start failed", logpkg.Err(err))
		}
	}()
	defer src.Close()

	hsrv := httpserver.New(httpserver.Deps{
		Manager:   mgr,
		Tap:       tp,
		CaptureDB: db,
		Registry:  registry,
		Logger:    logger,
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, cfg.HTTP.Addr); err != nil && sctx.Err() == nil {
			logger.Error("http server error", logpkg.Err(err))
		}
	}()

	if interval := cfg.Tap.SampleInterval.Std(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sampleLoop(sctx, mgr, tp, interval, logger)
		}()
	}

	<-sctx.Done()
	hsrv.Close()
	wg.Wait()
	return nil
}

// sampleLoop periodically logs the live counters so drops are visible
// without scraping /metrics.
func sampleLoop(ctx context.Context, mgr *session.Manager, tp *tap.Tap, interval time.Duration, logger logpkg.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last stats.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := mgr.Current()
			if s == nil {
				continue
			}
			snap := s.Counters().Snapshot()
			if snap == last {
				continue
			}
			last = snap
			logger.Debug("tap sample",
				logpkg.Uint64("received", snap.Received),
				logpkg.Uint64("delivered", snap.Delivered),
				logpkg.Uint64("dropped", snap.Dropped),
				logpkg.Uint64("buffered", snap.Buffered),
				logpkg.Int("messages", tp.MessageCount()),
				logpkg.Int64("tree_nodes", tp.TreeNodeCount()))
		}
	}
}
