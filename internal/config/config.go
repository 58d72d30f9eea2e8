package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	MQTT    MQTT    `json:"mqtt" yaml:"mqtt"`
	Buffer  Buffer  `json:"buffer" yaml:"buffer"`
	Tap     Tap     `json:"tap" yaml:"tap"`
	Capture Capture `json:"capture" yaml:"capture"`
	HTTP    HTTP    `json:"http" yaml:"http"`
	Log     Log     `json:"log" yaml:"log"`
}

// MQTT configures the broker connection being tapped.
type MQTT struct {
	BrokerURL string   `json:"brokerUrl" yaml:"brokerUrl"`
	ClientID  string   `json:"clientId" yaml:"clientId"`
	Username  string   `json:"username" yaml:"username"`
	Password  string   `json:"password" yaml:"password"`
	Topics    []string `json:"topics" yaml:"topics"`
	QoS       int      `json:"qos" yaml:"qos"`
	KeepAlive Duration `json:"keepAlive" yaml:"keepAlive"`
}

// Buffer configures the ingress inbox between the broker callback and the
// pump.
type Buffer struct {
	// Capacity bounds the inbox; 0 selects the unbounded inbox.
	Capacity int `json:"capacity" yaml:"capacity"`
	// Policy is one of wait, drop-newest, drop-oldest, drop-write.
	Policy string `json:"policy" yaml:"policy"`
	// Delay throttles the pump after each delivered event.
	Delay Duration `json:"delay" yaml:"delay"`
}

// Tap configures the in-memory views built from the stream.
type Tap struct {
	// Window is the batching interval for all subscriber pipelines.
	Window Duration `json:"window" yaml:"window"`
	// MaxMessages bounds the live message store.
	MaxMessages int `json:"maxMessages" yaml:"maxMessages"`
	// TrimBatch evicts in chunks of this size when the store overflows.
	TrimBatch int `json:"trimBatch" yaml:"trimBatch"`
	// TreeRetain is the number of recent payloads kept per topic node.
	TreeRetain int `json:"treeRetain" yaml:"treeRetain"`
	// SampleInterval is the stats sampling period.
	SampleInterval Duration `json:"sampleInterval" yaml:"sampleInterval"`
}

// Capture configures durable recording of the stream.
type Capture struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// DataDir is the Pebble directory; empty uses DefaultDataDir.
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// MaxBytes bounds a session's stored size; 0 disables trimming.
	MaxBytes int64 `json:"maxBytes" yaml:"maxBytes"`
	// TrimBatchKeys bounds keys per trim commit.
	TrimBatchKeys int `json:"trimBatchKeys" yaml:"trimBatchKeys"`
	// Fsync is one of always, interval, never.
	Fsync string `json:"fsync" yaml:"fsync"`
}

// HTTP configures the API server.
type HTTP struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Log configures logging.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Duration unmarshals from Go duration strings in both JSON and YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		MQTT: MQTT{
			BrokerURL: "tcp://127.0.0.1:1883",
			ClientID:  "mqtap",
			Topics:    []string{"#"},
			KeepAlive: Duration(30 * time.Second),
		},
		Buffer: Buffer{
			Capacity: 5000,
			Policy:   "drop-newest",
		},
		Tap: Tap{
			Window:         Duration(100 * time.Millisecond),
			MaxMessages:    10000,
			TrimBatch:      500,
			TreeRetain:     10,
			SampleInterval: Duration(time.Second),
		},
		Capture: Capture{
			MaxBytes:      256 << 20,
			TrimBatchKeys: 1024,
			Fsync:         "interval",
		},
		HTTP: HTTP{Addr: ":8077"},
		Log:  Log{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a JSON or YAML file by extension. An empty
// path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate rejects option combinations the daemon cannot run with.
func (c Config) Validate() error {
	if c.MQTT.BrokerURL == "" {
		return fmt.Errorf("mqtt.brokerUrl is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1, or 2")
	}
	if c.Buffer.Capacity < 0 {
		return fmt.Errorf("buffer.capacity must be >= 0")
	}
	switch c.Buffer.Policy {
	case "", "wait", "drop-newest", "drop-oldest", "drop-write":
	default:
		return fmt.Errorf("buffer.policy %q is not a policy", c.Buffer.Policy)
	}
	if c.Tap.MaxMessages <= 0 {
		return fmt.Errorf("tap.maxMessages must be positive")
	}
	switch c.Capture.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("capture.fsync %q is not a mode", c.Capture.Fsync)
	}
	return nil
}
