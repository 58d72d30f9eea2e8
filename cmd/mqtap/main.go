package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/mqtap/internal/cmd/client"
	serverrun "github.com/rzbill/mqtap/internal/cmd/server"
	cfgpkg "github.com/rzbill/mqtap/internal/config"
	logpkg "github.com/rzbill/mqtap/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect MQTAP_LOG_LEVEL for CLI output before the server config
	// takes over.
	level := os.Getenv("MQTAP_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "mqtap",
		Short: "mqtap CLI",
		Long:  "mqtap taps an MQTT broker and serves live views of the stream. This CLI manages the daemon and inspects a running tap.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the mqtap daemon",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			applyFlags(cmd, &cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, cfg); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("broker", "", "MQTT broker URL, e.g. tcp://127.0.0.1:1883")
	serverStartCmd.Flags().StringSlice("topics", nil, "Topic filters to subscribe (default #)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8077)")
	serverStartCmd.Flags().Int("buffer-capacity", -1, "Ingress buffer capacity (0 = unbounded)")
	serverStartCmd.Flags().String("policy", "", "Overflow policy: wait|drop-newest|drop-oldest|drop-write")
	serverStartCmd.Flags().Duration("window", 0, "Batch window for the live views")
	serverStartCmd.Flags().Bool("capture", false, "Record the stream to disk")
	serverStartCmd.Flags().String("data-dir", "", "Capture directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("fsync", "", "Capture fsync mode: always|interval|never")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client commands (talk to a running daemon over HTTP)
	rootCmd.AddCommand(clientcmd.NewStatsCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewTreeCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewMessagesCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewTailCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewCaptureCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyFlags overlays explicitly set flags on top of file and env config.
func applyFlags(cmd *cobra.Command, cfg *cfgpkg.Config) {
	if v, _ := cmd.Flags().GetString("broker"); v != "" {
		cfg.MQTT.BrokerURL = v
	}
	if v, _ := cmd.Flags().GetStringSlice("topics"); len(v) > 0 {
		cfg.MQTT.Topics = v
	}
	if v, _ := cmd.Flags().GetString("http"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v, _ := cmd.Flags().GetInt("buffer-capacity"); v >= 0 {
		cfg.Buffer.Capacity = v
	}
	if v, _ := cmd.Flags().GetString("policy"); v != "" {
		cfg.Buffer.Policy = v
	}
	if v, _ := cmd.Flags().GetDuration("window"); v > 0 {
		cfg.Tap.Window = cfgpkg.Duration(v)
	}
	if cmd.Flags().Changed("capture") {
		cfg.Capture.Enabled, _ = cmd.Flags().GetBool("capture")
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.Capture.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("fsync"); v != "" {
		cfg.Capture.Fsync = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
}

func apiURL() string {
	if v := os.Getenv("MQTAP_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8077"
}
