package config

import (
	"fmt"
	"strings"
)

// Validate checks the loaded configuration. Load calls it.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error (got %q)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}
	if c.Settings.Path == "" {
		return fmt.Errorf("settings.path is required")
	}
	if c.Settings.WatchInterval <= 0 {
		return fmt.Errorf("settings.watch_interval must be > 0 (got %v)", c.Settings.WatchInterval)
	}
	if c.Settings.WatchDebounce < 0 {
		return fmt.Errorf("settings.watch_debounce must be >= 0 (got %v)", c.Settings.WatchDebounce)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("sinks[%d]: webhook needs a url", i)
			}
		default:
			return fmt.Errorf("sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
