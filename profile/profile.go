// Package profile holds the static language profiles: per-level
// substitution maps authored offline, plus the resolver that turns a
// (language, level) pair into an ordered rule list.
package profile

import (
	"regexp"
	"strings"
)

// LevelMap maps a source substring to its replacement. Each level's map is
// cumulative: level N carries every rule that applies at N.
type LevelMap map[string]string

// PostProcessor rewrites fully substituted text (e.g. final-form letters).
type PostProcessor func(string) string

// Profile is one target script with its level maps.
type Profile struct {
	ID   string
	Name string

	// Levels[0] is level 1. Level 0 is implicit and never transforms.
	Levels []LevelMap

	PostProcess PostProcessor

	// PostProcessName is the registry name PostProcess was bound from.
	PostProcessName string
}

// MaxLevel is the highest level with a map.
func (p *Profile) MaxLevel() int { return len(p.Levels) }

// Level returns the map for level, or nil for level 0 and out-of-range levels.
func (p *Profile) Level(level int) LevelMap {
	if level < 1 || level > len(p.Levels) {
		return nil
	}
	return p.Levels[level-1]
}

// Decomposing reports whether text must be split into base glyphs (NFD)
// before rules match, and recomposed afterwards.
func (p *Profile) Decomposing() bool {
	return IsDecomposing(p.ID) || strings.Contains(strings.ToLower(p.Name), "korean")
}

// IsDecomposing applies the decomposing-script naming convention to an id.
func IsDecomposing(id string) bool {
	return strings.Contains(strings.ToLower(id), "korean")
}

var sourceRe = regexp.MustCompile(`^([^-]+)\s*->`)

// Source is the script the profile reads from, taken from the
// "<Source> -> <Target>" naming convention. "Other" when absent.
func (p *Profile) Source() string {
	m := sourceRe.FindStringSubmatch(p.Name)
	if m == nil {
		return "Other"
	}
	return strings.TrimSpace(m[1])
}
