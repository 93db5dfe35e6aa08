package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bookaj/footalk/profile"
	"github.com/Bookaj/footalk/settings"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List language profiles grouped by source script",
		Args:  cobra.NoArgs,
		RunE:  runLanguages,
	}
	cmd.Flags().Bool("all", false, "Ignore the stored filter")
	cmd.Flags().Bool("json", false, "Print JSON")
	cmd.Flags().String("host", "", "Page host to notify (default: page.host from config)")
	cmd.Flags().String("notify", "http", "Notification transport: http, redis or none")
	rootCmd.AddCommand(cmd)
}

type languageEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MaxLevel int    `json:"max_level"`
	Selected bool   `json:"selected,omitempty"`
}

type languageGroup struct {
	Source    string          `json:"source"`
	Languages []languageEntry `json:"languages"`
}

func runLanguages(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")
	via, _ := cmd.Flags().GetString("notify")
	host, _ := cmd.Flags().GetString("host")

	a, err := setup()
	if err != nil {
		return err
	}
	if host == "" {
		host = a.cfg.PageHost()
	}
	store, err := a.openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	cur, err := store.Load(ctx)
	if err != nil {
		return a.fail("settings", err)
	}

	// A hidden selection falls back to the first visible profile.
	if _, changed := cur.ReconcileLanguage(a.reg); changed {
		p, err := settings.Change(ctx, store, host, func(ctx context.Context, s *settings.Store) error {
			return reconcile(ctx, a, s, cur)
		})
		if err != nil {
			return a.fail("reconcile", err)
		}
		notify(ctx, a, via, host, p)
		if cur, err = store.Load(ctx); err != nil {
			return a.fail("settings", err)
		}
	}

	profiles := a.reg.Visible(cur.Filter)
	if all {
		profiles = a.reg.List()
	}
	groups := listGroups(profiles, cur.SelectedLanguage)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}
	for _, g := range groups {
		fmt.Printf("%s\n", g.Source)
		for _, l := range g.Languages {
			mark := " "
			if l.Selected {
				mark = "*"
			}
			fmt.Printf(" %s %-16s %s (levels 1-%d)\n", mark, l.ID, l.Name, l.MaxLevel)
		}
	}
	return nil
}

func listGroups(profiles []*profile.Profile, selected string) []languageGroup {
	var out []languageGroup
	for _, g := range profile.Grouped(profiles) {
		lg := languageGroup{Source: g.Source}
		for _, p := range g.Profiles {
			lg.Languages = append(lg.Languages, languageEntry{
				ID:       p.ID,
				Name:     p.Name,
				MaxLevel: p.MaxLevel(),
				Selected: p.ID == selected,
			})
		}
		out = append(out, lg)
	}
	return out
}
