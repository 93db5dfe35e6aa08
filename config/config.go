// CLAUDE:SUMMARY footalk configuration: YAML file plus FOOTALK_* environment overrides, with defaults and validation.
// Package config loads footalk configuration from a YAML file and the
// environment. Priority: ENV > YAML > defaults (env-default tags).
package config

import (
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Settings SettingsConfig `yaml:"settings"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Page     PageConfig     `yaml:"page"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	Browser  BrowserConfig  `yaml:"browser"`
	Sinks    []SinkConfig   `yaml:"sinks"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  env:"FOOTALK_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"FOOTALK_LOG_FORMAT" env-default:"json"`
}

// SettingsConfig locates the settings database and tunes hot reload.
type SettingsConfig struct {
	Path          string        `yaml:"path"           env:"FOOTALK_SETTINGS"       env-default:"footalk.db"`
	WatchInterval time.Duration `yaml:"watch_interval" env:"FOOTALK_WATCH_INTERVAL" env-default:"1s"`
	WatchDebounce time.Duration `yaml:"watch_debounce" env:"FOOTALK_WATCH_DEBOUNCE" env-default:"250ms"`
}

// ProfilesConfig points at extra profile data. Empty uses the builtins.
type ProfilesConfig struct {
	Path string `yaml:"path" env:"FOOTALK_PROFILES"`
}

// PageConfig names the page an engine serves. Host selects per-site
// settings; it defaults to the hostname of URL.
type PageConfig struct {
	URL  string `yaml:"url"  env:"FOOTALK_PAGE_URL"`
	Host string `yaml:"host" env:"FOOTALK_HOST"`
	ID   string `yaml:"id"   env:"FOOTALK_PAGE_ID"`
}

// HTTPConfig controls the engine's HTTP API. An empty Addr disables it.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"             env:"FOOTALK_HTTP_ADDR"        env-default:"127.0.0.1:8765"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"FOOTALK_HTTP_SHUTDOWN"    env-default:"5s"`
}

// RedisConfig enables the pub/sub transport when URL is set.
type RedisConfig struct {
	URL string `yaml:"url" env:"FOOTALK_REDIS_URL"`
}

// BrowserConfig controls Chrome for render --url.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"            env:"FOOTALK_BROWSER_REMOTE"`
	DisableStealth   bool          `yaml:"disable_stealth"   env:"FOOTALK_BROWSER_NO_STEALTH"`
	ResourceBlocking []string      `yaml:"resource_blocking" env:"FOOTALK_BROWSER_BLOCK"   env-separator:","`
	NavTimeout       time.Duration `yaml:"nav_timeout"       env:"FOOTALK_BROWSER_TIMEOUT" env-default:"30s"`
}

// SinkConfig defines an output backend for patches and overlays.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// PageHost returns the configured host, or the hostname of the page URL.
func (c *Config) PageHost() string {
	if c.Page.Host != "" {
		return c.Page.Host
	}
	if u, err := url.Parse(c.Page.URL); err == nil {
		return u.Hostname()
	}
	return ""
}

// SlogLevel maps Log.Level to a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the process logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.ToLower(c.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func (c *Config) applyDefaults() {
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
}
