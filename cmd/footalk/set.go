package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Bookaj/footalk/engine"
	"github.com/Bookaj/footalk/settings"
	"github.com/Bookaj/footalk/transport"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a setting and notify the running page",
	Long: "Persist a setting, then send one UPDATE_STATE message carrying only\n" +
		"the fields whose resolved value changed for --host.",
}

func init() {
	setCmd.PersistentFlags().String("host", "", "Page host (default: page.host from config)")
	setCmd.PersistentFlags().String("notify", "http", "Notification transport: http, redis or none")

	setCmd.AddCommand(&cobra.Command{
		Use:   "language <id>",
		Short: "Select a language profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, func(ctx context.Context, a *app, s *settings.Store, host string) error {
				if _, ok := a.reg.Get(args[0]); !ok {
					return fmt.Errorf("unknown language %q", args[0])
				}
				return s.SetLanguage(ctx, args[0])
			})
		},
	})

	levelCmd := &cobra.Command{
		Use:   "level <n>",
		Short: "Set the level for the selected (or --language) profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, _ := cmd.Flags().GetString("language")
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("level must be an integer: %w", err)
			}
			return runSet(cmd, func(ctx context.Context, a *app, s *settings.Store, host string) error {
				if lang == "" {
					cur, err := s.Load(ctx)
					if err != nil {
						return err
					}
					lang = cur.SelectedLanguage
				}
				p, ok := a.reg.Get(lang)
				if !ok {
					return fmt.Errorf("unknown language %q", lang)
				}
				if n < 0 || n > p.MaxLevel() {
					return fmt.Errorf("level %d out of range 0..%d for %s", n, p.MaxLevel(), lang)
				}
				return s.SetLevel(ctx, lang, n)
			})
		},
	}
	levelCmd.Flags().StringP("language", "l", "", "Profile whose level to set")
	setCmd.AddCommand(levelCmd)

	setCmd.AddCommand(&cobra.Command{
		Use:   "site <on|off>",
		Short: "Enable or disable footalk on --host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return runSet(cmd, func(ctx context.Context, a *app, s *settings.Store, host string) error {
				if host == "" {
					return errors.New("site needs --host or page.host")
				}
				return s.SetSiteEnabled(ctx, host, on)
			})
		},
	})

	setCmd.AddCommand(&cobra.Command{
		Use:   "hover <on|off>",
		Short: "Show or hide the original text on hover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return runSet(cmd, func(ctx context.Context, a *app, s *settings.Store, host string) error {
				return s.SetHover(ctx, on)
			})
		},
	})

	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Choose which language groups are offered",
		Long: "Update the language filter. Only the flags given are changed. If the\n" +
			"selected language is no longer offered, the first visible one is selected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, func(ctx context.Context, a *app, s *settings.Store, host string) error {
				cur, err := s.Load(ctx)
				if err != nil {
					return err
				}
				f := cur.Filter
				flags := cmd.Flags()
				for name, dst := range map[string]*bool{
					"fun":      &f.FunModes,
					"cyrillic": &f.Cyrillic,
					"greek":    &f.Greek,
					"armenian": &f.Armenian,
					"korean":   &f.Korean,
				} {
					if flags.Changed(name) {
						*dst, _ = flags.GetBool(name)
					}
				}
				if err := s.SetFilter(ctx, f); err != nil {
					return err
				}
				cur.Filter = f
				return reconcile(ctx, a, s, cur)
			})
		},
	}
	filterCmd.Flags().Bool("fun", false, "Offer fun modes")
	filterCmd.Flags().Bool("cyrillic", true, "Offer Cyrillic targets")
	filterCmd.Flags().Bool("greek", true, "Offer Greek targets")
	filterCmd.Flags().Bool("armenian", true, "Offer Armenian targets")
	filterCmd.Flags().Bool("korean", true, "Offer Korean targets")
	setCmd.AddCommand(filterCmd)

	rootCmd.AddCommand(setCmd)
}

// runSet applies fn to the settings store and sends exactly one message
// with whatever fn changed for the host. A failed notification is logged;
// the setting stays persisted and the daemon's watcher will pick it up.
func runSet(cmd *cobra.Command, fn func(ctx context.Context, a *app, s *settings.Store, host string) error) error {
	a, err := setup()
	if err != nil {
		return err
	}
	via, _ := cmd.Flags().GetString("notify")
	host, _ := cmd.Flags().GetString("host")
	if host == "" {
		host = a.cfg.PageHost()
	}

	store, err := a.openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	p, err := settings.Change(ctx, store, host, func(ctx context.Context, s *settings.Store) error {
		return fn(ctx, a, s, host)
	})
	if err != nil {
		return a.fail("set", err)
	}
	notify(ctx, a, via, host, p)
	return nil
}

// notify sends p once through via. Nothing is sent for an empty partial.
func notify(ctx context.Context, a *app, via, host string, p engine.Partial) {
	if p.Empty() {
		a.logger.Debug("footalk: nothing changed, no message sent")
		return
	}
	n, closeFn, err := notifier(a, via, host)
	if err != nil {
		a.logger.Warn("footalk: notify", "via", via, "error", err)
		return
	}
	defer closeFn()
	if n == nil {
		return
	}
	ack, err := n.Notify(ctx, transport.UpdateMessage(p))
	if err != nil {
		a.logger.Warn("footalk: notify", "via", via, "error", err)
		return
	}
	a.logger.Info("footalk: notified", "via", via, "host", host, "status", ack.Status)
}

// reconcile persists the fallback language when the filter hides the
// selected one.
func reconcile(ctx context.Context, a *app, s *settings.Store, cur settings.Settings) error {
	lang, changed := cur.ReconcileLanguage(a.reg)
	if !changed {
		return nil
	}
	a.logger.Info("footalk: selected language hidden by filter", "from", cur.SelectedLanguage, "to", lang)
	return s.SetLanguage(ctx, lang)
}

func parseSwitch(s string) (bool, error) {
	switch s {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}
