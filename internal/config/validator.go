package config

import (
	"fmt"
	"net/url"
	"regexp"

	cameracapture "github.com/jubileetitus07/isl-bridge-dynamic-words/modules/camera-capture"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills in defaults
func Validate(cfg *Config) error {
	// Validate instance_id
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.ShutdownTimeoutS < 0 {
		return fmt.Errorf("shutdown_timeout_s must be >= 0")
	}
	if cfg.ShutdownTimeoutS == 0 {
		cfg.ShutdownTimeoutS = 5
	}

	if err := validateService(&cfg.Service); err != nil {
		return err
	}
	if err := validateCamera(&cfg.Camera); err != nil {
		return err
	}

	// Sampler
	if cfg.Sampler.IntervalMs < 0 || cfg.Sampler.CallTimeoutS < 0 {
		return fmt.Errorf("sampler.interval_ms and sampler.call_timeout_s must be >= 0")
	}
	if cfg.Sampler.IntervalMs == 0 {
		cfg.Sampler.IntervalMs = 1000
	}
	if cfg.Sampler.CallTimeoutS == 0 {
		cfg.Sampler.CallTimeoutS = 10
	}

	// Recognition
	if cfg.Recognition.MinConfidence < 0 || cfg.Recognition.MinConfidence >= 1 {
		return fmt.Errorf("recognition.min_confidence must be in [0, 1), got %v", cfg.Recognition.MinConfidence)
	}
	if cfg.Recognition.MinConfidence == 0 {
		cfg.Recognition.MinConfidence = 0.5
	}
	if cfg.Recognition.HistorySize < 0 {
		return fmt.Errorf("recognition.history_size must be >= 0")
	}
	if cfg.Recognition.HistorySize == 0 {
		cfg.Recognition.HistorySize = 10
	}

	// Translation
	if cfg.Translation.RecentSize < 0 {
		return fmt.Errorf("translation.recent_size must be >= 0")
	}
	if cfg.Translation.RecentSize == 0 {
		cfg.Translation.RecentSize = 5
	}

	// Training
	if cfg.Training.IntervalMs < 0 || cfg.Training.TargetSamples < 0 {
		return fmt.Errorf("training.interval_ms and training.target_samples must be >= 0")
	}
	if cfg.Training.IntervalMs == 0 {
		cfg.Training.IntervalMs = 500
	}
	if cfg.Training.TargetSamples == 0 {
		cfg.Training.TargetSamples = 20
	}

	// Dictionary
	if cfg.Dictionary.CacheTTLS < 0 {
		return fmt.Errorf("dictionary.cache_ttl_s must be >= 0")
	}
	if cfg.Dictionary.CacheTTLS == 0 {
		cfg.Dictionary.CacheTTLS = 300
	}

	// HTTP
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = "127.0.0.1:8080"
	}

	return validateMQTT(cfg)
}

func validateService(svc *ServiceConfig) error {
	if svc.BaseURL == "" {
		svc.BaseURL = "http://localhost:5000/api"
	}
	u, err := url.Parse(svc.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("service.base_url must be an http(s) URL, got %q", svc.BaseURL)
	}

	if svc.RequestTimeoutS < 0 {
		return fmt.Errorf("service.request_timeout_s must be >= 0")
	}
	if svc.RequestTimeoutS == 0 {
		svc.RequestTimeoutS = 30
	}
	return nil
}

func validateCamera(cam *CameraConfig) error {
	if cam.Device == "" {
		cam.Device = "/dev/video0"
	}

	res, err := cameracapture.ParseResolution(cam.Resolution)
	if err != nil {
		return fmt.Errorf("camera.resolution: %w", err)
	}
	cam.Resolution = res.String()

	if cam.JPEGQuality == 0 {
		cam.JPEGQuality = 80
	}
	if cam.JPEGQuality < 1 || cam.JPEGQuality > 100 {
		return fmt.Errorf("camera.jpeg_quality must be 1-100, got %d", cam.JPEGQuality)
	}

	if cam.Mirror == nil {
		mirror := true
		cam.Mirror = &mirror
	}

	if cam.StartTimeoutS < 0 || cam.FrameStaleMs < 0 {
		return fmt.Errorf("camera.start_timeout_s and camera.frame_stale_ms must be >= 0")
	}
	if cam.StartTimeoutS == 0 {
		cam.StartTimeoutS = 5
	}
	if cam.FrameStaleMs == 0 {
		cam.FrameStaleMs = 2000
	}
	return nil
}

func validateMQTT(cfg *Config) error {
	m := &cfg.MQTT
	if !m.Enabled() {
		return nil
	}

	switch m.Payload {
	case "":
		m.Payload = "json"
	case "json", "msgpack":
	default:
		return fmt.Errorf("mqtt.payload must be json or msgpack, got %q", m.Payload)
	}

	if m.ClientID == "" {
		m.ClientID = cfg.InstanceID
	}

	// Set default topics if not provided
	if m.Topics.Control == "" {
		m.Topics.Control = fmt.Sprintf("isl/control/%s", cfg.InstanceID)
	}
	if m.Topics.Updates == "" {
		m.Topics.Updates = fmt.Sprintf("isl/updates/%s", cfg.InstanceID)
	}
	if m.Topics.Responses == "" {
		m.Topics.Responses = fmt.Sprintf("isl/responses/%s", cfg.InstanceID)
	}

	// Set default QoS if not provided
	if m.QoS == nil {
		m.QoS = map[string]byte{
			"control":   1,
			"updates":   0,
			"responses": 1,
		}
	}
	for topic, qos := range m.QoS {
		if qos > 2 {
			return fmt.Errorf("mqtt.qos[%s] must be 0, 1 or 2, got %d", topic, qos)
		}
	}

	return nil
}
