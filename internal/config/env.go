package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnv overlays MQTAP_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	envStr("MQTAP_MQTT_BROKER_URL", &cfg.MQTT.BrokerURL)
	envStr("MQTAP_MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	envStr("MQTAP_MQTT_USERNAME", &cfg.MQTT.Username)
	envStr("MQTAP_MQTT_PASSWORD", &cfg.MQTT.Password)
	envInt("MQTAP_MQTT_QOS", &cfg.MQTT.QoS)
	envDur("MQTAP_MQTT_KEEP_ALIVE", &cfg.MQTT.KeepAlive)
	if v := os.Getenv("MQTAP_MQTT_TOPICS"); v != "" {
		var topics []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				topics = append(topics, p)
			}
		}
		if len(topics) > 0 {
			cfg.MQTT.Topics = topics
		}
	}

	envInt("MQTAP_BUFFER_CAPACITY", &cfg.Buffer.Capacity)
	envStr("MQTAP_BUFFER_POLICY", &cfg.Buffer.Policy)
	envDur("MQTAP_BUFFER_DELAY", &cfg.Buffer.Delay)

	envDur("MQTAP_TAP_WINDOW", &cfg.Tap.Window)
	envInt("MQTAP_TAP_MAX_MESSAGES", &cfg.Tap.MaxMessages)
	envInt("MQTAP_TAP_TRIM_BATCH", &cfg.Tap.TrimBatch)
	envInt("MQTAP_TAP_TREE_RETAIN", &cfg.Tap.TreeRetain)
	envDur("MQTAP_TAP_SAMPLE_INTERVAL", &cfg.Tap.SampleInterval)

	if v := os.Getenv("MQTAP_CAPTURE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Capture.Enabled = b
		}
	}
	envStr("MQTAP_CAPTURE_DATA_DIR", &cfg.Capture.DataDir)
	if v := os.Getenv("MQTAP_CAPTURE_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Capture.MaxBytes = n
		}
	}
	envInt("MQTAP_CAPTURE_TRIM_BATCH_KEYS", &cfg.Capture.TrimBatchKeys)
	envStr("MQTAP_CAPTURE_FSYNC", &cfg.Capture.Fsync)

	envStr("MQTAP_HTTP_ADDR", &cfg.HTTP.Addr)
	envStr("MQTAP_LOG_LEVEL", &cfg.Log.Level)
	envStr("MQTAP_LOG_FORMAT", &cfg.Log.Format)
}

func envStr(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDur(name string, dst *Duration) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}
