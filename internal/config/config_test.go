package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
log:
  level: debug
database:
  path: ${TRIGGERD_TEST_DB:/tmp/default.sqlite}
settings:
  at_home: true
  exclude: ["Garage"]
devices:
  - name: Garage
    motion: true
    motion_trigger: true
    motion_timeout: 2
  - name: Front Door
    uuid: 7d444840-9dc0-11d1-b245-5ffdce74fad2
    motion: true
    doorbell: true
    doorbell_trigger: true
    hsv: true
    gpio_pin: 17
mqtt:
  enabled: true
  broker: tcp://localhost:1883
  topic_prefix: camera-ui/
engine:
  pulse_delay: 750ms
`

func TestParse_Sample(t *testing.T) {
	t.Setenv("TRIGGERD_TEST_DB", "/var/lib/triggerd.sqlite")

	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Database.Path != "/var/lib/triggerd.sqlite" {
		t.Errorf("Database.Path = %q, want env expansion", cfg.Database.Path)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(cfg.Devices))
	}
	if got := cfg.Devices[0].GetMotionTimeout(); got != 2 {
		t.Errorf("Garage timeout = %v, want 2", got)
	}
	if got := cfg.Devices[1].GetMotionTimeout(); got != 1 {
		t.Errorf("Front Door timeout = %v, want default 1", got)
	}
	if cfg.Devices[1].GPIOPin == nil || *cfg.Devices[1].GPIOPin != 17 {
		t.Errorf("Front Door gpio_pin = %v, want 17", cfg.Devices[1].GPIOPin)
	}
	if !cfg.Settings.AtHome || len(cfg.Settings.Exclude) != 1 {
		t.Errorf("Settings = %+v", cfg.Settings)
	}
	if cfg.MQTT.TopicPrefix != "camera-ui" {
		t.Errorf("TopicPrefix = %q, want trailing slash trimmed", cfg.MQTT.TopicPrefix)
	}
	if cfg.Engine.PulseDelay.Duration() != 750*time.Millisecond {
		t.Errorf("PulseDelay = %v, want 750ms", cfg.Engine.PulseDelay.Duration())
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("devices: []\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Database.Path != "./triggerd.sqlite" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Engine.PulseDelay.Duration() != 500*time.Millisecond {
		t.Errorf("PulseDelay = %v, want 500ms", cfg.Engine.PulseDelay.Duration())
	}
	if cfg.HTTP.Port != 8087 {
		t.Errorf("HTTP.Port = %d, want 8087", cfg.HTTP.Port)
	}
	if cfg.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.GetShutdownTimeout())
	}
	if cfg.EventBus.GetWorkers() != 4 || cfg.EventBus.GetQueueSize() != 100 {
		t.Errorf("EventBus defaults = %d/%d", cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	}
	if cfg.Ledger.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", cfg.Ledger.RetentionDays)
	}
}

func TestParse_ExplicitZeroTimeout(t *testing.T) {
	cfg, err := Parse([]byte("devices:\n  - name: A\n    motion: true\n    motion_timeout: 0\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cfg.Devices[0].GetMotionTimeout(); got != 0 {
		t.Errorf("timeout = %v, want explicit 0 kept", got)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty_name",
			yaml:    "devices:\n  - name: ''\n    motion: true\n",
			wantErr: "name is required",
		},
		{
			name:    "duplicate_name",
			yaml:    "devices:\n  - name: A\n    motion: true\n  - name: A\n    doorbell: true\n",
			wantErr: "duplicate device name",
		},
		{
			name:    "bad_uuid",
			yaml:    "devices:\n  - name: A\n    uuid: nope\n    motion: true\n",
			wantErr: "invalid uuid",
		},
		{
			name:    "no_capability",
			yaml:    "devices:\n  - name: A\n",
			wantErr: "at least one of motion or doorbell",
		},
		{
			name:    "mqtt_without_broker",
			yaml:    "mqtt:\n  enabled: true\n",
			wantErr: "broker is required",
		},
		{
			name:    "bad_qos",
			yaml:    "mqtt:\n  qos: 3\n",
			wantErr: "qos must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.GetLevel() != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.GetLevel())
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil for missing file")
	}
}

func TestDuration_InvalidValue(t *testing.T) {
	if _, err := Parse([]byte("shutdown_timeout: soon\n")); err == nil {
		t.Error("Parse() error = nil for invalid duration")
	}
}

func TestParse_NonPositiveIntervalsDefault(t *testing.T) {
	cfg, err := Parse([]byte("gpio:\n  poll: -1s\nledger:\n  cleanup_interval: -5m\nshutdown_timeout: 0s\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.GPIO.Poll.Duration() != 100*time.Millisecond {
		t.Errorf("GPIO.Poll = %v, want 100ms", cfg.GPIO.Poll.Duration())
	}
	if cfg.Ledger.CleanupInterval.Duration() != 24*time.Hour {
		t.Errorf("Ledger.CleanupInterval = %v, want 24h", cfg.Ledger.CleanupInterval.Duration())
	}
	if cfg.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.GetShutdownTimeout())
	}
}
