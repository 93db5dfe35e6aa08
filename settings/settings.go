// Package settings persists footalk's user settings in SQLite and resolves
// them into the engine state for one site. A Watcher polls the database and
// reports changes made by other processes, such as footalk set.
package settings

import (
	"slices"
	"strings"

	"github.com/Bookaj/footalk/engine"
	"github.com/Bookaj/footalk/profile"
)

// Keys of the settings table.
const (
	KeySelectedLanguage = "selectedLanguage"
	KeyDisabledSites    = "disabledSites"
	KeyHoverEnabled     = "hoverEnabled"
	KeyShowFunModes     = "showFunModes"
	KeyShowCyrillic     = "showCyrillic"
	KeyShowGreek        = "showGreek"
	KeyShowArmenian     = "showArmenian"
	KeyShowKorean       = "showKorean"

	levelPrefix = "level_"
)

// DefaultLanguage is selected until the user picks another profile.
const DefaultLanguage = "ru"

// LevelKey is the key holding the level chosen for lang.
func LevelKey(lang string) string { return levelPrefix + lang }

// Settings is the whole settings table, decoded.
type Settings struct {
	SelectedLanguage string
	DisabledSites    []string
	Levels           map[string]int
	HoverEnabled     bool
	Filter           profile.Filter
}

// Defaults is what an empty store holds.
func Defaults() Settings {
	return Settings{
		SelectedLanguage: DefaultLanguage,
		Levels:           map[string]int{},
		HoverEnabled:     true,
		Filter:           profile.DefaultFilter(),
	}
}

// Level returns the level chosen for lang; 0 when never set.
func (s Settings) Level(lang string) int { return s.Levels[lang] }

// SiteEnabled reports whether host is absent from the disabled list.
// Hosts compare by exact string equality.
func (s Settings) SiteEnabled(host string) bool {
	return !slices.Contains(s.DisabledSites, host)
}

// Resolve computes the engine state for a page on host.
func (s Settings) Resolve(host string) engine.State {
	return engine.State{
		Language:     s.SelectedLanguage,
		Level:        s.Level(s.SelectedLanguage),
		Enabled:      s.SiteEnabled(host),
		HoverEnabled: s.HoverEnabled,
	}
}

// ReconcileLanguage returns the language a control surface should select
// under the current filter: the selected one when it is visible, otherwise
// the first visible profile. changed reports a fallback.
func (s Settings) ReconcileLanguage(reg *profile.Registry) (lang string, changed bool) {
	visible := reg.Visible(s.Filter)
	for _, p := range visible {
		if p.ID == s.SelectedLanguage {
			return s.SelectedLanguage, false
		}
	}
	if len(visible) == 0 {
		return s.SelectedLanguage, false
	}
	return visible[0].ID, true
}

func levelLang(key string) (string, bool) {
	if !strings.HasPrefix(key, levelPrefix) {
		return "", false
	}
	return key[len(levelPrefix):], true
}
