package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Bookaj/footalk/profile"
)

// Store is the SQLite settings table. Values are JSON documents.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
	logger      *slog.Logger
}

// WithBusyTimeout sets PRAGMA busy_timeout. Default: 10s.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) { o.busyTimeout = d }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Open opens (creating if needed) the settings database at path.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: 10 * time.Second, logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	db, err := openDB(path, o.busyTimeout)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: o.logger}, nil
}

// DB exposes the handle, for watchers.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Get decodes the value stored under key into v. It reports false when
// the key is absent.
func (s *Store) Get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("settings: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("settings: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		return put(ctx, tx, key, v)
	})
}

func put(ctx context.Context, tx *sql.Tx, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("settings: encode %s: %w", key, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

// Load reads the whole table over the defaults. A value that does not
// decode is logged and its default kept.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	set := Defaults()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return set, fmt.Errorf("settings: load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return Defaults(), fmt.Errorf("settings: load: %w", err)
		}
		if err := set.decode(key, []byte(raw)); err != nil {
			s.logger.Warn("settings: bad value, using default", "key", key, "error", err)
		}
	}
	if err := rows.Err(); err != nil {
		return Defaults(), fmt.Errorf("settings: load: %w", err)
	}
	return set, nil
}

func (s *Settings) decode(key string, raw []byte) error {
	var dst any
	switch key {
	case KeySelectedLanguage:
		dst = &s.SelectedLanguage
	case KeyDisabledSites:
		dst = &s.DisabledSites
	case KeyHoverEnabled:
		dst = &s.HoverEnabled
	case KeyShowFunModes:
		dst = &s.Filter.FunModes
	case KeyShowCyrillic:
		dst = &s.Filter.Cyrillic
	case KeyShowGreek:
		dst = &s.Filter.Greek
	case KeyShowArmenian:
		dst = &s.Filter.Armenian
	case KeyShowKorean:
		dst = &s.Filter.Korean
	default:
		lang, ok := levelLang(key)
		if !ok {
			return nil
		}
		var level int
		if err := json.Unmarshal(raw, &level); err != nil {
			return err
		}
		s.Levels[lang] = level
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// SetLanguage selects a language profile.
func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	return s.Set(ctx, KeySelectedLanguage, lang)
}

// SetLevel stores the level for lang. Levels are kept per language.
func (s *Store) SetLevel(ctx context.Context, lang string, level int) error {
	if level < 0 {
		return fmt.Errorf("settings: negative level %d", level)
	}
	return s.Set(ctx, LevelKey(lang), level)
}

// SetHover turns hover reveal on or off.
func (s *Store) SetHover(ctx context.Context, enabled bool) error {
	return s.Set(ctx, KeyHoverEnabled, enabled)
}

// SetSiteEnabled adds host to, or removes it from, the disabled list.
func (s *Store) SetSiteEnabled(ctx context.Context, host string, enabled bool) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		var sites []string
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, KeyDisabledSites).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("settings: read %s: %w", KeyDisabledSites, err)
		default:
			if err := json.Unmarshal([]byte(raw), &sites); err != nil {
				return fmt.Errorf("settings: decode %s: %w", KeyDisabledSites, err)
			}
		}

		has := slices.Contains(sites, host)
		switch {
		case enabled && has:
			sites = slices.DeleteFunc(sites, func(h string) bool { return h == host })
		case !enabled && !has:
			sites = append(sites, host)
		default:
			return nil
		}
		if sites == nil {
			sites = []string{}
		}
		return put(ctx, tx, KeyDisabledSites, sites)
	})
}

// SetFilter stores the control-surface profile filter.
func (s *Store) SetFilter(ctx context.Context, f profile.Filter) error {
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, kv := range []struct {
			key string
			val bool
		}{
			{KeyShowFunModes, f.FunModes},
			{KeyShowCyrillic, f.Cyrillic},
			{KeyShowGreek, f.Greek},
			{KeyShowArmenian, f.Armenian},
			{KeyShowKorean, f.Korean},
		} {
			if err := put(ctx, tx, kv.key, kv.val); err != nil {
				return err
			}
		}
		return nil
	})
}
