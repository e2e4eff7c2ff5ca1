package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Log     LogConfig     `yaml:"log"`
	AIS     AISConfig     `yaml:"ais"`
	GNSS    StreamConfig  `yaml:"gnss"`
	Javad   JavadConfig   `yaml:"javad"`
	Unicore UnicoreConfig `yaml:"unicore"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	UDP     UDPConfig     `yaml:"udp"`
	Web     WebConfig     `yaml:"web"`
	Capture CaptureConfig `yaml:"capture"`
}

type AppConfig struct {
	// Period drives the decoder poll loop.
	Period time.Duration `yaml:"period"`
	// PublishPeriod is how often a telemetry snapshot is published.
	PublishPeriod time.Duration `yaml:"publish_period"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	File        string `yaml:"file"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	BufferLines int    `yaml:"buffer_lines"`
}

// StreamConfig describes one byte source: a TCP endpoint or a serial port.
type StreamConfig struct {
	Enable         bool          `yaml:"enable"`
	Source         string        `yaml:"source"`
	Addr           string        `yaml:"addr"`
	Device         string        `yaml:"device"`
	Baud           int           `yaml:"baud"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type AISConfig struct {
	StreamConfig `yaml:",inline"`
	OwnVessel    bool          `yaml:"own_vessel"`
	TTL          time.Duration `yaml:"ttl"`
	MaxTargets   int           `yaml:"max_targets"`
}

type JavadConfig struct {
	StreamConfig `yaml:",inline"`
	// Window is how many trailing bytes are kept for latest-message scans.
	Window int `yaml:"window"`
}

type UnicoreConfig struct {
	StreamConfig `yaml:",inline"`
	BufSize      int `yaml:"buf_size"`
}

type MQTTConfig struct {
	Enable      bool          `yaml:"enable"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
}

// UDPConfig sends each published record as a JSON datagram.
type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type CaptureConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills defaults in place and rejects inconsistent
// settings.
func DefaultAndValidate(cfg *Config) error {
	if cfg.App.Period <= 0 {
		cfg.App.Period = 10 * time.Millisecond
	}
	if cfg.App.PublishPeriod <= 0 {
		cfg.App.PublishPeriod = 100 * time.Millisecond
	}
	if cfg.App.PublishPeriod < cfg.App.Period {
		return fmt.Errorf("app.publish_period must be >= app.period")
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	switch cfg.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error")
	}
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json")
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB <= 0 {
			cfg.Log.MaxSizeMB = 10
		}
		if cfg.Log.MaxBackups <= 0 {
			cfg.Log.MaxBackups = 3
		}
		if cfg.Log.MaxAgeDays <= 0 {
			cfg.Log.MaxAgeDays = 7
		}
	}
	if cfg.Log.BufferLines <= 0 {
		cfg.Log.BufferLines = 2000
	}

	if err := defaultStream("gnss", &cfg.GNSS, 4800); err != nil {
		return err
	}
	if err := defaultStream("ais", &cfg.AIS.StreamConfig, 38400); err != nil {
		return err
	}
	if cfg.AIS.TTL <= 0 {
		cfg.AIS.TTL = 10 * time.Minute
	}
	if cfg.AIS.MaxTargets <= 0 {
		cfg.AIS.MaxTargets = 500
	}

	if err := defaultStream("javad", &cfg.Javad.StreamConfig, 115200); err != nil {
		return err
	}
	if cfg.Javad.Window <= 0 {
		cfg.Javad.Window = 4096
	}
	if cfg.Javad.Window < 64 {
		return fmt.Errorf("javad.window must be >= 64")
	}

	if err := defaultStream("unicore", &cfg.Unicore.StreamConfig, 115200); err != nil {
		return err
	}
	if cfg.Unicore.BufSize == 0 {
		cfg.Unicore.BufSize = 1024
	}
	if cfg.Unicore.BufSize < 256 {
		return fmt.Errorf("unicore.buf_size must be >= 256")
	}

	if cfg.MQTT.Enable {
		if strings.TrimSpace(cfg.MQTT.Broker) == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt.enable is true")
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "navstream"
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = "navstream"
		}
		if cfg.MQTT.Timeout <= 0 {
			cfg.MQTT.Timeout = 5 * time.Second
		}
	}

	if cfg.UDP.Enable && strings.TrimSpace(cfg.UDP.Dest) == "" {
		return fmt.Errorf("udp.dest is required when udp.enable is true")
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.Capture.Enable && cfg.Capture.Path == "" {
		return fmt.Errorf("capture.path is required when capture.enable is true")
	}
	return nil
}

func defaultStream(name string, s *StreamConfig, baud int) error {
	if !s.Enable {
		return nil
	}
	s.Source = strings.ToLower(strings.TrimSpace(s.Source))
	if s.Source == "" {
		s.Source = "serial"
	}
	if s.ReconnectDelay <= 0 {
		s.ReconnectDelay = 2 * time.Second
	}
	switch s.Source {
	case "tcp":
		if strings.TrimSpace(s.Addr) == "" {
			return fmt.Errorf("%s.addr is required when %s.source is tcp", name, name)
		}
	case "serial":
		// An empty device is auto-detected when the stream starts.
		if s.Baud == 0 {
			s.Baud = baud
		}
		if s.Baud < 0 {
			return fmt.Errorf("%s.baud must be > 0", name)
		}
	default:
		return fmt.Errorf("%s.source must be tcp or serial", name)
	}
	return nil
}
