// Package browser renders pages in Chrome through Rod so footalk can work
// on the DOM a script-heavy site actually shows, not its raw HTML.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bookaj/footalk/mutation"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Config configures a Browser.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// Stealth opens pages with go-rod/stealth evasions.
	Stealth bool

	// ResourceBlocking lists resource types not to load (images, fonts,
	// media, stylesheets).
	ResourceBlocking []string

	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser is a connected Chrome.
type Browser struct {
	cfg  Config
	b    *rod.Browser
	lnch *launcher.Launcher
}

// Open launches Chrome (or connects to cfg.RemoteURL).
func Open(ctx context.Context, cfg Config) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger
	br := &Browser{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		br.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		br.Close()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	br.b = b
	return br, nil
}

// Fetch navigates to pageURL, waits for load, and returns the rendered
// document as a snapshot.
func (br *Browser) Fetch(ctx context.Context, pageURL string) (*mutation.Snapshot, error) {
	log := br.cfg.Logger

	var page *rod.Page
	var err error
	if br.cfg.Stealth {
		page, err = stealth.Page(br.b)
	} else {
		page, err = br.b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	if len(br.cfg.ResourceBlocking) > 0 {
		router := blockResources(page, br.cfg.ResourceBlocking)
		defer router.Stop()
	}

	navCtx, cancel := context.WithTimeout(ctx, br.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	res, err := page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	html := []byte(res.Value.Str())

	return &mutation.Snapshot{
		ID:        mutation.NewID(),
		PageURL:   pageURL,
		HTML:      html,
		HTMLHash:  mutation.HashHTML(html),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Close shuts Chrome down.
func (br *Browser) Close() error {
	if br.b != nil {
		br.b.Close()
		br.b = nil
	}
	if br.lnch != nil {
		br.lnch.Cleanup()
		br.lnch = nil
	}
	return nil
}
