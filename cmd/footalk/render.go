package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"

	"github.com/Bookaj/footalk/browser"
	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/engine"
	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/profile"
	"github.com/Bookaj/footalk/settings"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render [file|-]",
		Short: "Transform an HTML document once and print it",
		Long: "Transform an HTML file, stdin, or (with --url) a page rendered by Chrome.\n" +
			"Language and level default to the stored settings.",
		Args: cobra.MaximumNArgs(1),
		RunE: runRender,
	}
	cmd.Flags().String("url", "", "Render this page in Chrome instead of reading a file")
	cmd.Flags().StringP("format", "f", "html", "Output format: html, text or markdown")
	cmd.Flags().StringP("language", "l", "", "Language profile (default: selected language)")
	cmd.Flags().IntP("level", "L", -1, "Level (default: stored level for the language)")
	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(cmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	pageURL, _ := cmd.Flags().GetString("url")
	formatFlag, _ := cmd.Flags().GetString("format")
	lang, _ := cmd.Flags().GetString("language")
	level, _ := cmd.Flags().GetInt("level")
	outPath, _ := cmd.Flags().GetString("out")

	a, err := setup()
	if err != nil {
		return err
	}
	format, err := dom.ParseFormat(formatFlag)
	if err != nil {
		return a.fail("format", err)
	}
	if (pageURL == "") == (len(args) == 0) {
		return a.fail("input", fmt.Errorf("give exactly one of a file argument or --url"))
	}

	st, err := renderState(cmd.Context(), a, lang, level, pageURL)
	if err != nil {
		return a.fail("settings", err)
	}
	if _, ok := a.reg.Get(st.Language); !ok {
		return a.fail("language", fmt.Errorf("unknown language %q", st.Language))
	}

	snap, err := renderSource(cmd.Context(), a, pageURL, args)
	if err != nil {
		return a.fail("source", err)
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return a.fail("output", err)
		}
		defer f.Close()
		w = f
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	eng := engine.New(engine.Config{
		Resolver: profile.NewResolver(a.reg),
		Logger:   a.logger,
		Initial:  st,
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if err := eng.Load(ctx, snap); err != nil {
		return a.fail("parse", err)
	}
	if err := eng.Render(ctx, w, format); err != nil {
		return a.fail("render", err)
	}
	if format != dom.FormatHTML {
		fmt.Fprintln(w)
	}
	return nil
}

// renderState starts from the stored settings for the page's host and
// applies the command-line overrides. A one-shot render is always enabled.
func renderState(ctx context.Context, a *app, lang string, level int, pageURL string) (engine.State, error) {
	set := settings.Defaults()
	if store, err := settings.Open(a.cfg.Settings.Path, settings.WithLogger(a.logger)); err == nil {
		loaded, err := store.Load(ctx)
		store.Close()
		if err != nil {
			return engine.State{}, err
		}
		set = loaded
	} else {
		a.logger.Warn("footalk: settings unavailable, using defaults", "error", err)
	}

	host := a.cfg.PageHost()
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	st := set.Resolve(host)
	if lang != "" {
		st.Language = lang
		st.Level = set.Level(lang)
	}
	if level >= 0 {
		st.Level = level
	}
	st.Enabled = true
	st.HoverEnabled = false
	return st, nil
}

func renderSource(ctx context.Context, a *app, pageURL string, args []string) (*mutation.Snapshot, error) {
	if pageURL != "" {
		br, err := browser.Open(ctx, browser.Config{
			RemoteURL:        a.cfg.Browser.Remote,
			Stealth:          !a.cfg.Browser.DisableStealth,
			ResourceBlocking: a.cfg.Browser.ResourceBlocking,
			NavTimeout:       a.cfg.Browser.NavTimeout,
			Logger:           a.logger,
		})
		if err != nil {
			return nil, err
		}
		defer br.Close()
		return br.Fetch(ctx, pageURL)
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, err
	}
	return &mutation.Snapshot{
		ID:       mutation.NewID(),
		PageURL:  args[0],
		HTML:     data,
		HTMLHash: mutation.HashHTML(data),
	}, nil
}
