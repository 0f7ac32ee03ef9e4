package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete isl-bridge configuration
type Config struct {
	InstanceID       string            `yaml:"instance_id"`
	ShutdownTimeoutS int               `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	Service          ServiceConfig     `yaml:"service"`
	Camera           CameraConfig      `yaml:"camera"`
	Sampler          SamplerConfig     `yaml:"sampler"`
	Recognition      RecognitionConfig `yaml:"recognition"`
	Translation      TranslationConfig `yaml:"translation"`
	Training         TrainingConfig    `yaml:"training"`
	Dictionary       DictionaryConfig  `yaml:"dictionary"`
	HTTP             HTTPConfig        `yaml:"http"`
	MQTT             MQTTConfig        `yaml:"mqtt"`
}

// ServiceConfig points at the remote recognition/translation service
type ServiceConfig struct {
	BaseURL         string `yaml:"base_url"`          // default http://localhost:5000/api
	RequestTimeoutS int    `yaml:"request_timeout_s"` // transport timeout (default: 30)
}

// CameraConfig contains camera settings
type CameraConfig struct {
	Device        string `yaml:"device"`          // V4L2 device (default: /dev/video0)
	Resolution    string `yaml:"resolution"`      // vga, 720p, qvga or WxH (default: vga)
	JPEGQuality   int    `yaml:"jpeg_quality"`    // 1-100 (default: 80)
	Mirror        *bool  `yaml:"mirror"`          // horizontal flip (default: true)
	AutoStart     bool   `yaml:"auto_start"`      // acquire the camera on startup
	StartTimeoutS int    `yaml:"start_timeout_s"` // pipeline handshake timeout (default: 5)
	FrameStaleMs  int    `yaml:"frame_stale_ms"`  // frames older than this are not captured (default: 2000)
}

// SamplerConfig contains recognition loop settings
type SamplerConfig struct {
	IntervalMs   int `yaml:"interval_ms"`    // tick period (default: 1000)
	CallTimeoutS int `yaml:"call_timeout_s"` // per-call bound (default: 10)
}

// RecognitionConfig contains token acceptance settings
type RecognitionConfig struct {
	MinConfidence float64 `yaml:"min_confidence"` // exclusive, 0-1 (default: 0.5)
	HistorySize   int     `yaml:"history_size"`   // default: 10
}

// TranslationConfig contains text-to-sign settings
type TranslationConfig struct {
	RecentSize int `yaml:"recent_size"` // default: 5
}

// TrainingConfig contains training recorder settings
type TrainingConfig struct {
	IntervalMs    int `yaml:"interval_ms"`    // default: 500
	TargetSamples int `yaml:"target_samples"` // default: 20
}

// DictionaryConfig contains dictionary cache settings
type DictionaryConfig struct {
	CacheTTLS int `yaml:"cache_ttl_s"` // default: 300
}

// HTTPConfig contains the local API listener
type HTTPConfig struct {
	Addr string `yaml:"addr"` // default 127.0.0.1:8080, "-" disables
}

// MQTTConfig contains MQTT broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker   string          `yaml:"broker"`
	ClientID string          `yaml:"client_id"`
	Payload  string          `yaml:"payload"` // json or msgpack (default: json)
	Topics   MQTTTopics      `yaml:"topics"`
	QoS      map[string]byte `yaml:"qos"`
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Control   string `yaml:"control"`
	Updates   string `yaml:"updates"`
	Responses string `yaml:"responses"`
}

// Enabled reports whether MQTT is configured
func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a validated configuration with every default applied
func Default() *Config {
	cfg := &Config{InstanceID: "isl-bridge"}
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not validate: %v", err))
	}
	return cfg
}

// Durations

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

func (c ServiceConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutS) * time.Second
}

func (c CameraConfig) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutS) * time.Second
}

func (c CameraConfig) FrameStaleAfter() time.Duration {
	return time.Duration(c.FrameStaleMs) * time.Millisecond
}

func (c SamplerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c SamplerConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutS) * time.Second
}

func (c TrainingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c DictionaryConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}
