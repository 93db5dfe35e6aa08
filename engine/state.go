package engine

// State is the engine's effective configuration for one page.
type State struct {
	Language     string `json:"language"`
	Level        int    `json:"level"`
	Enabled      bool   `json:"enabled"`
	HoverEnabled bool   `json:"hoverEnabled"`
}

// EffectiveLevel is the level actually applied: 0 when the site is
// disabled, whatever level is selected.
func (s State) EffectiveLevel() int {
	if !s.Enabled || s.Level < 0 {
		return 0
	}
	return s.Level
}

// Partial is a state update. Absent fields keep their current value.
type Partial struct {
	Language     *string `json:"language,omitempty"`
	Level        *int    `json:"level,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
	HoverEnabled *bool   `json:"hoverEnabled,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Partial) Empty() bool {
	return p.Language == nil && p.Level == nil && p.Enabled == nil && p.HoverEnabled == nil
}

// Merge returns s with every field present in p applied.
func (s State) Merge(p Partial) State {
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.Level != nil {
		s.Level = *p.Level
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.HoverEnabled != nil {
		s.HoverEnabled = *p.HoverEnabled
	}
	return s
}

// Full returns a Partial carrying every field of s.
func (s State) Full() Partial {
	return Partial{
		Language:     &s.Language,
		Level:        &s.Level,
		Enabled:      &s.Enabled,
		HoverEnabled: &s.HoverEnabled,
	}
}

// Diff returns a Partial holding only the fields where next differs from s.
func (s State) Diff(next State) Partial {
	var p Partial
	if next.Language != s.Language {
		p.Language = &next.Language
	}
	if next.Level != s.Level {
		p.Level = &next.Level
	}
	if next.Enabled != s.Enabled {
		p.Enabled = &next.Enabled
	}
	if next.HoverEnabled != s.HoverEnabled {
		p.HoverEnabled = &next.HoverEnabled
	}
	return p
}
