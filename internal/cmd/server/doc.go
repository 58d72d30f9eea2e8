// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the mqtap daemon, handling lifecycle and shutdown.
//
// Example:
//
//	cfg := cfgpkg.Default()
//	cfg.MQTT.BrokerURL = "tcp://127.0.0.1:1883"
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, cfg)
package serverrun
