// Package config loads daemon configuration from defaults, an optional
// JSON or YAML file, and MQTAP_* environment overrides, in that order.
//
// Example:
//
//	cfg, err := config.Load("/etc/mqtap.yaml")
//	if err != nil { /* handle */ }
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil { /* handle */ }
package config
