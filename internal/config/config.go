// Package config loads and saves colortrack profiles. Values come from
// defaults, then an optional profile file (YAML, JSON or TOML), then
// COLORTRACK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teslashibe/colortrack/internal/log"
	"github.com/teslashibe/colortrack/pkg/movement"
	"github.com/teslashibe/colortrack/pkg/tracking"
	"github.com/teslashibe/colortrack/pkg/video"
	"github.com/teslashibe/colortrack/pkg/web"
)

// EnvPrefix prefixes environment overrides, e.g. COLORTRACK_TRACKING_COLOR.
const EnvPrefix = "COLORTRACK"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Source kinds.
const (
	SourceCapture  = "capture"
	SourceSnapshot = "snapshot"
)

// Actuator kinds.
const (
	ActuatorLog    = "log"
	ActuatorBridge = "bridge"
)

// SourceConfig selects the frame source.
type SourceConfig struct {
	Kind    string               `mapstructure:"kind" json:"kind"`
	Device  string               `mapstructure:"device" json:"device"` // Camera index, file or stream URL
	URL     string               `mapstructure:"url" json:"url"`       // Snapshot endpoint
	Capture video.CaptureOptions `mapstructure:"capture" json:"capture"`
}

// ActuatorConfig selects where motion goes.
type ActuatorConfig struct {
	Kind string `mapstructure:"kind" json:"kind"`
	URL  string `mapstructure:"url" json:"url"` // Bridge websocket URL
	// Hold treats every button as pressed when running dry
	Hold bool `mapstructure:"hold" json:"hold"`
	// Buttons is an optional byte stream of raw button states, e.g. a serial device
	Buttons string `mapstructure:"buttons" json:"buttons"`
}

// QueueConfig sizes the step queue.
type QueueConfig struct {
	Size int `mapstructure:"size" json:"size"`
}

// WebConfig enables the dashboard.
type WebConfig struct {
	Enabled     bool `mapstructure:"enabled" json:"enabled"`
	web.Options `mapstructure:",squash"`
}

// Config is a complete colortrack profile.
type Config struct {
	Log      log.Options     `mapstructure:"log" json:"log"`
	Tracking tracking.Config `mapstructure:"tracking" json:"tracking"`
	Source   SourceConfig    `mapstructure:"source" json:"source"`
	Actuator ActuatorConfig  `mapstructure:"actuator" json:"actuator"`
	Queue    QueueConfig     `mapstructure:"queue" json:"queue"`
	Web      WebConfig       `mapstructure:"web" json:"web"`
}

// Default returns the built-in profile.
func Default() Config {
	return Config{
		Log:      log.DefaultOptions(),
		Tracking: tracking.DefaultConfig(),
		Source:   SourceConfig{Kind: SourceCapture, Device: "0"},
		Actuator: ActuatorConfig{Kind: ActuatorLog},
		Queue:    QueueConfig{Size: movement.DefaultQueueSize},
		Web: WebConfig{
			Enabled: true,
			Options: web.Options{Addr: "127.0.0.1:8765", StatusInterval: web.DefaultStatusInterval},
		},
	}
}

// SetDefaults registers every key of the built-in profile on v.
func SetDefaults(v *viper.Viper) {
	for key, val := range flatten("", Settings(Default())) {
		v.SetDefault(key, val)
	}
}

// Load reads the profile at path, or searches ./colortrack.* and
// ~/.config/colortrack/ when path is empty. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("colortrack")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/colortrack")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to path. The format follows the file extension.
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	v := viper.New()
	if err := v.MergeConfigMap(Settings(cfg)); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks the whole profile and wraps failures in ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	if err := c.Tracking.Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Source.Kind {
	case SourceCapture:
		if strings.TrimSpace(c.Source.Device) == "" {
			errs = append(errs, errors.New("source.device is required for capture"))
		}
	case SourceSnapshot:
		if c.Source.URL == "" {
			errs = append(errs, errors.New("source.url is required for snapshot"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}

	switch c.Actuator.Kind {
	case ActuatorLog:
	case ActuatorBridge:
		if c.Actuator.URL == "" {
			errs = append(errs, errors.New("actuator.url is required for bridge"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown actuator.kind %q", c.Actuator.Kind))
	}

	if c.Queue.Size <= 0 {
		errs = append(errs, fmt.Errorf("queue.size must be positive, got %d", c.Queue.Size))
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		errs = append(errs, errors.New("web.addr is required when the dashboard is enabled"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

