package settings

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Bookaj/footalk/engine"
)

// ChangeDetector reads a version token. Two calls returning different
// values mean the settings changed.
type ChangeDetector func(ctx context.Context, db *sql.DB) (int64, error)

// DataVersion uses PRAGMA data_version, which moves whenever another
// connection (usually another process) commits to the database file.
func DataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v)
	return v, err
}

// LastUpdate uses the newest updated_at in the table. It also sees writes
// made through the watcher's own connection.
func LastUpdate(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(updated_at), 0) FROM settings").Scan(&v)
	return v, err
}

// WatchOptions tunes a Watcher.
type WatchOptions struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// Debounce is the quiet period after a change before reloading; more
	// changes during the window restart it. 0 reloads immediately.
	Debounce time.Duration
	// Detector defaults to DataVersion.
	Detector ChangeDetector
	Logger   *slog.Logger
}

func (o *WatchOptions) defaults() {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Detector == nil {
		o.Detector = DataVersion
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher polls the store and reloads settings when they change.
type Watcher struct {
	store   *Store
	opts    WatchOptions
	version atomic.Int64
	reloads atomic.Int64
}

// NewWatcher creates a Watcher on store.
func NewWatcher(store *Store, opts WatchOptions) *Watcher {
	opts.defaults()
	return &Watcher{store: store, opts: opts}
}

// Reloads is the number of successful reloads so far.
func (w *Watcher) Reloads() int64 { return w.reloads.Load() }

// Follow blocks until ctx is cancelled. On every settings change it
// resolves the state for host and calls notify with only the fields that
// differ from the last state notify accepted, starting from current.
// A failed load or notify is retried on the next change.
func (w *Watcher) Follow(ctx context.Context, host string, current engine.State, notify func(context.Context, engine.Partial) error) {
	w.OnChange(ctx, func() error {
		set, err := w.store.Load(ctx)
		if err != nil {
			return err
		}
		next := set.Resolve(host)
		p := current.Diff(next)
		if p.Empty() {
			return nil
		}
		if err := notify(ctx, p); err != nil {
			return err
		}
		current = next
		return nil
	})
}

// OnChange blocks until ctx is cancelled, polling at the configured
// interval. When the version moves and the debounce window passes without
// further movement, action runs. If action fails the version is not
// advanced, so the next poll retries.
func (w *Watcher) OnChange(ctx context.Context, action func() error) {
	log := w.opts.Logger
	db := w.store.DB()

	if v, err := w.opts.Detector(ctx, db); err != nil {
		log.Warn("settings: initial version check failed", "error", err)
	} else {
		w.version.Store(v)
	}

	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceCh <-chan time.Time
	pending := int64(-1)

	log.Debug("settings: watching", "interval", w.opts.Interval, "debounce", w.opts.Debounce)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case <-ticker.C:
			cur, err := w.opts.Detector(ctx, db)
			if err != nil {
				log.Warn("settings: version check failed", "error", err)
				continue
			}
			if cur == w.version.Load() || cur == pending {
				continue
			}
			pending = cur
			if w.opts.Debounce <= 0 {
				w.fire(action, pending)
				pending = -1
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(w.opts.Debounce)
			debounceCh = debounce.C

		case <-debounceCh:
			debounceCh = nil
			if pending >= 0 {
				w.fire(action, pending)
				pending = -1
			}
		}
	}
}

func (w *Watcher) fire(action func() error, ver int64) {
	if err := action(); err != nil {
		w.opts.Logger.Error("settings: reload failed", "version", ver, "error", err)
		return
	}
	w.reloads.Add(1)
	w.version.Store(ver)
	w.opts.Logger.Info("settings: reloaded", "version", ver)
}
