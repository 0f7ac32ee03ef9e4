package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("instance_id: kiosk-1\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.Service.BaseURL != "http://localhost:5000/api" {
		t.Errorf("Service.BaseURL = %q", cfg.Service.BaseURL)
	}
	if cfg.Camera.Device != "/dev/video0" || cfg.Camera.Resolution != "640x480" || cfg.Camera.JPEGQuality != 80 {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Mirror == nil || !*cfg.Camera.Mirror {
		t.Error("Camera.Mirror should default to true")
	}
	if cfg.Sampler.Interval().Seconds() != 1 || cfg.Sampler.CallTimeout().Seconds() != 10 {
		t.Errorf("Sampler = %+v", cfg.Sampler)
	}
	if cfg.Recognition.MinConfidence != 0.5 || cfg.Recognition.HistorySize != 10 {
		t.Errorf("Recognition = %+v", cfg.Recognition)
	}
	if cfg.Translation.RecentSize != 5 {
		t.Errorf("Translation.RecentSize = %d", cfg.Translation.RecentSize)
	}
	if cfg.Training.IntervalMs != 500 || cfg.Training.TargetSamples != 20 {
		t.Errorf("Training = %+v", cfg.Training)
	}
	if cfg.ShutdownTimeoutS != 5 {
		t.Errorf("ShutdownTimeoutS = %d", cfg.ShutdownTimeoutS)
	}
	if cfg.MQTT.Enabled() {
		t.Error("MQTT enabled without broker")
	}
}

func TestParse_MQTTDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
instance_id: kiosk-1
mqtt:
  broker: tcp://localhost:1883
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	m := cfg.MQTT
	if !m.Enabled() || m.Payload != "json" || m.ClientID != "kiosk-1" {
		t.Errorf("MQTT = %+v", m)
	}
	if m.Topics.Control != "isl/control/kiosk-1" || m.Topics.Updates != "isl/updates/kiosk-1" || m.Topics.Responses != "isl/responses/kiosk-1" {
		t.Errorf("Topics = %+v", m.Topics)
	}
	if m.QoS["control"] != 1 {
		t.Errorf("QoS = %v", m.QoS)
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
instance_id: kiosk-2
service:
  base_url: https://signs.example.com/api
camera:
  resolution: 720p
  mirror: false
  auto_start: true
recognition:
  min_confidence: 0.7
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.Camera.Resolution != "1280x720" || *cfg.Camera.Mirror || !cfg.Camera.AutoStart {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	if cfg.Recognition.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %v", cfg.Recognition.MinConfidence)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing instance", "service: {}\n", "instance_id is required"},
		{"bad instance", "instance_id: Kiosk_1\n", "instance_id must match"},
		{"bad base url", "instance_id: k\nservice:\n  base_url: localhost:5000\n", "service.base_url"},
		{"bad resolution", "instance_id: k\ncamera:\n  resolution: 8k\n", "camera.resolution"},
		{"bad quality", "instance_id: k\ncamera:\n  jpeg_quality: 101\n", "jpeg_quality"},
		{"bad confidence", "instance_id: k\nrecognition:\n  min_confidence: 1.2\n", "min_confidence"},
		{"bad payload", "instance_id: k\nmqtt:\n  broker: tcp://x:1883\n  payload: xml\n", "mqtt.payload"},
		{"bad qos", "instance_id: k\nmqtt:\n  broker: tcp://x:1883\n  qos:\n    control: 3\n", "mqtt.qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isl-bridge.yaml")
	if err := os.WriteFile(path, []byte("instance_id: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.InstanceID != "from-file" {
		t.Errorf("InstanceID = %q", cfg.InstanceID)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of missing file expected error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTP.Addr != "127.0.0.1:8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
}
