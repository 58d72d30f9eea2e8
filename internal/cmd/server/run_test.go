package serverrun

import (
	"context"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/mqtap/internal/config"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*cfgpkg.Config)
	}{
		{
			name:   "missing broker url",
			mutate: func(c *cfgpkg.Config) { c.MQTT.BrokerURL = "" },
		},
		{
			name:   "unknown policy",
			mutate: func(c *cfgpkg.Config) { c.Buffer.Policy = "drop-everything" },
		},
		{
			name:   "unknown fsync mode",
			mutate: func(c *cfgpkg.Config) { c.Capture.Fsync = "sometimes" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cfgpkg.Default()
			tt.mutate(&cfg)
			if err := Run(context.Background(), cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

// TestRunShutsDownOnCancel verifies Run can come up without a reachable
// broker and exits cleanly when the context is cancelled. This is a
// minimal test since Run starts actual servers.
func TestRunShutsDownOnCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := cfgpkg.Default()
	// unroutable broker; connect retries run in the background
	cfg.MQTT.BrokerURL = "tcp://127.0.0.1:1"
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Capture.Enabled = true
	cfg.Capture.DataDir = t.TempDir()
	cfg.Capture.Fsync = "never"
	cfg.Tap.SampleInterval = cfgpkg.Duration(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := Run(ctx, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
}
