package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Bookaj/footalk/config"
	"github.com/Bookaj/footalk/profile"
	"github.com/Bookaj/footalk/settings"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "footalk",
	Short:         "Reversible leveled script substitution for live pages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $FOOTALK_CONFIG, else env only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")
}

// app is what every command starts from.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	reg    *profile.Registry
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "footalk:", err)
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := cfg.Log.Logger(os.Stderr)

	reg := profile.Builtin()
	if cfg.Profiles.Path != "" {
		extra, err := profile.LoadFile(cfg.Profiles.Path)
		if err != nil {
			logger.Error("footalk: load profiles", "path", cfg.Profiles.Path, "error", err)
			return nil, err
		}
		reg = reg.Merge(extra)
	}
	return &app{cfg: cfg, logger: logger, reg: reg}, nil
}

func (a *app) openSettings() (*settings.Store, error) {
	s, err := settings.Open(a.cfg.Settings.Path, settings.WithLogger(a.logger))
	if err != nil {
		a.logger.Error("footalk: open settings", "path", a.cfg.Settings.Path, "error", err)
		return nil, err
	}
	return s, nil
}

// fail logs err for commands and returns it so cobra exits non-zero.
func (a *app) fail(msg string, err error) error {
	a.logger.Error("footalk: "+msg, "error", err)
	return fmt.Errorf("%s: %w", msg, err)
}
