// Package config loads and validates the application configuration from an
// optional YAML file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Mercari MercariConfig `mapstructure:"mercari"`
	Line    LineConfig    `mapstructure:"line"`
	Display DisplayConfig `mapstructure:"display"`
	SeenSet SeenSetConfig `mapstructure:"seen_set"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// TriggerSecret gates GET /cron when set. Empty leaves the endpoint open.
	TriggerSecret string `mapstructure:"trigger_secret"`
}

// FetchConfig defines the scheduled fetch behavior.
type FetchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	WindowMinutes   int           `mapstructure:"window_minutes"`
	OverlapMinutes  int           `mapstructure:"overlap_minutes"`
	Keyword         string        `mapstructure:"keyword"`
	MaxDisplayItems int           `mapstructure:"max_display_items"`
}

// MercariConfig defines the Mercari search API settings.
type MercariConfig struct {
	Endpoint  string          `mapstructure:"endpoint"`
	PageSize  int             `mapstructure:"page_size"`
	Timeout   time.Duration   `mapstructure:"timeout"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig defines Mercari API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `mapstructure:"per_second"`
	Burst      int     `mapstructure:"burst"`
	DailyLimit int64   `mapstructure:"daily_limit"`
}

// LineConfig defines LINE Messaging API settings. An empty channel token
// swaps in the no-op notifier.
type LineConfig struct {
	ChannelToken string `mapstructure:"channel_token"`
	BaseURL      string `mapstructure:"base_url"`
}

// DisplayConfig defines how timestamps are rendered in notifications.
type DisplayConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// SeenSetConfig defines optional trimming of the broadcast dedup set. The
// set grows without bound when trimming is disabled; that is the accepted
// default.
type SeenSetConfig struct {
	TrimEnabled bool `mapstructure:"trim_enabled"`
	// TrimKeepWindows is how many fetch windows of history to retain.
	TrimKeepWindows int `mapstructure:"trim_keep_windows"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Load reads the optional YAML config file at path, applies environment
// variable overrides (dots become underscores, e.g. LINE_CHANNEL_TOKEN),
// fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.trigger_secret", "")

	v.SetDefault("fetch.interval", "10m")
	v.SetDefault("fetch.window_minutes", 60)
	v.SetDefault("fetch.overlap_minutes", 2)
	v.SetDefault("fetch.keyword", "")
	v.SetDefault("fetch.max_display_items", 5)

	v.SetDefault("mercari.endpoint", "https://api.mercari.jp/v2/entities:search")
	v.SetDefault("mercari.page_size", 120)
	v.SetDefault("mercari.timeout", "15s")
	v.SetDefault("mercari.rate_limit.per_second", 2.0)
	v.SetDefault("mercari.rate_limit.burst", 5)
	v.SetDefault("mercari.rate_limit.daily_limit", 5000)

	v.SetDefault("line.channel_token", "")
	v.SetDefault("line.base_url", "https://api.line.me")

	v.SetDefault("display.timezone", "Asia/Taipei")

	v.SetDefault("seen_set.trim_enabled", false)
	v.SetDefault("seen_set.trim_keep_windows", 24)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Fetch.Keyword == "" {
		errs = append(errs, fmt.Errorf("fetch.keyword is required"))
	}
	if cfg.Fetch.WindowMinutes < 0 {
		errs = append(errs, fmt.Errorf("fetch.window_minutes must not be negative"))
	}
	if cfg.Fetch.OverlapMinutes < 0 {
		errs = append(errs, fmt.Errorf("fetch.overlap_minutes must not be negative"))
	}
	if cfg.Fetch.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("fetch.interval must be at least 1m (got %s)", cfg.Fetch.Interval))
	}
	if cfg.Fetch.MaxDisplayItems <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_display_items must be positive"))
	}
	if cfg.Mercari.Endpoint == "" {
		errs = append(errs, fmt.Errorf("mercari.endpoint is required"))
	}
	if cfg.SeenSet.TrimEnabled && cfg.SeenSet.TrimKeepWindows <= 0 {
		errs = append(errs, fmt.Errorf("seen_set.trim_keep_windows must be positive when trimming is enabled"))
	}

	return errors.Join(errs...)
}
