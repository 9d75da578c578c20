package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Database        DatabaseConfig `yaml:"database"`
	Engine          EngineConfig   `yaml:"engine"`
	Settings        SettingsConfig `yaml:"settings"`
	Devices         []DeviceConfig `yaml:"devices"`
	HTTP            HTTPConfig     `yaml:"http"`
	Healthcheck     HealthConfig   `yaml:"healthcheck"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
	InfluxDB        InfluxDBConfig `yaml:"influxdb"`
	HAP             HAPConfig      `yaml:"hap"`
	GPIO            GPIOConfig     `yaml:"gpio"`
	Hooks           HooksConfig    `yaml:"hooks"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	EventBus        EventBusConfig `yaml:"eventbus"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EngineConfig tunes the debounce engine
type EngineConfig struct {
	PulseDelay Duration `yaml:"pulse_delay"` // Delay before a rejected trigger switch flips back off (default: 500ms)
}

// SettingsConfig seeds the general settings on first start.
// Once stored, the database copy wins and is edited through the API.
type SettingsConfig struct {
	AtHome  bool     `yaml:"at_home"`
	Exclude []string `yaml:"exclude"`
}

// DeviceConfig describes one camera accessory
type DeviceConfig struct {
	Name            string   `yaml:"name"`
	UUID            string   `yaml:"uuid"` // Optional, derived from the name when empty
	Motion          bool     `yaml:"motion"`
	MotionTrigger   bool     `yaml:"motion_trigger"`
	Doorbell        bool     `yaml:"doorbell"`
	DoorbellTrigger bool     `yaml:"doorbell_trigger"`
	MotionTimeout   *float64 `yaml:"motion_timeout"` // Seconds, shared by motion and doorbell (default: 1)
	MotionDoorbell  bool     `yaml:"motion_doorbell"`
	HSV             bool     `yaml:"hsv"`
	GPIOPin         *int     `yaml:"gpio_pin"` // Optional PIR input line
}

// GetMotionTimeout returns the motion timeout in seconds with default
func (c *DeviceConfig) GetMotionTimeout() float64 {
	if c.MotionTimeout == nil {
		return 1
	}
	return *c.MotionTimeout
}

// HTTPConfig contains webhook and API server settings
type HTTPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // Empty disables auth on the manual API
}

// HealthConfig contains health check server settings
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// MQTTConfig contains MQTT broker settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Publish     bool   `yaml:"publish"` // Publish recorded events back to the broker
}

// InfluxDBConfig contains InfluxDB settings for the event time series
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // Seconds
}

// HAPConfig contains HomeKit bridge settings
type HAPConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Name        string `yaml:"name"`
	Pin         string `yaml:"pin"`
	StoragePath string `yaml:"storage_path"`
}

// GPIOConfig contains PIR input settings
type GPIOConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Chip      string   `yaml:"chip"`
	Poll      Duration `yaml:"poll"`
	Settle    Duration `yaml:"settle"` // Level must hold this long before it is reported
	ActiveLow bool     `yaml:"active_low"`
}

// HooksConfig contains Lua hook settings
type HooksConfig struct {
	Script    string `yaml:"script"` // Empty disables hooks
	QueueSize int    `yaml:"queue_size"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./triggerd.sqlite"
	}
	if cfg.Engine.PulseDelay == 0 {
		cfg.Engine.PulseDelay = Duration(500 * time.Millisecond)
	}

	// HTTP defaults
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8087
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "triggerd"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "triggerd"
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")

	// InfluxDB defaults
	if cfg.InfluxDB.BatchSize <= 0 {
		cfg.InfluxDB.BatchSize = 100
	}
	if cfg.InfluxDB.FlushInterval <= 0 {
		cfg.InfluxDB.FlushInterval = 10
	}

	// HAP defaults
	if cfg.HAP.Name == "" {
		cfg.HAP.Name = "triggerd"
	}
	if cfg.HAP.Pin == "" {
		cfg.HAP.Pin = "00102003"
	}
	if cfg.HAP.StoragePath == "" {
		cfg.HAP.StoragePath = "./hap"
	}

	// GPIO defaults
	if cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = "gpiochip0"
	}
	if cfg.GPIO.Poll <= 0 {
		cfg.GPIO.Poll = Duration(100 * time.Millisecond)
	}
	if cfg.GPIO.Settle <= 0 {
		cfg.GPIO.Settle = Duration(250 * time.Millisecond)
	}

	if cfg.Hooks.QueueSize <= 0 {
		cfg.Hooks.QueueSize = 100
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval <= 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate checks the device list and cross-field settings
func (cfg *Config) Validate() error {
	seen := make(map[string]bool, len(cfg.Devices))
	for i, d := range cfg.Devices {
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("devices[%d]: duplicate device name %q", i, d.Name)
		}
		seen[d.Name] = true

		if d.UUID != "" {
			if _, err := uuid.Parse(d.UUID); err != nil {
				return fmt.Errorf("devices[%d] %q: invalid uuid: %w", i, d.Name, err)
			}
		}
		if !d.Motion && !d.Doorbell {
			return fmt.Errorf("devices[%d] %q: at least one of motion or doorbell must be enabled", i, d.Name)
		}
		if d.GPIOPin != nil && *d.GPIOPin < 0 {
			return fmt.Errorf("devices[%d] %q: gpio_pin must not be negative", i, d.Name)
		}
	}

	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt: broker is required when enabled")
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2")
	}
	if cfg.InfluxDB.Enabled && cfg.InfluxDB.URL == "" {
		return fmt.Errorf("influxdb: url is required when enabled")
	}
	return nil
}

// GetShutdownTimeout returns the shutdown timeout as time.Duration
func (cfg *Config) GetShutdownTimeout() time.Duration {
	return cfg.ShutdownTimeout.Duration()
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
