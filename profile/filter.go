package profile

import "strings"

// funKeywords mark historical/novelty profiles hidden unless fun modes are on.
var funKeywords = []string{"phoenician", "morse", "futhark", "glagolitic"}

// groupOrder is the display order of source-script groups.
var groupOrder = []string{"Latin", "Cyrillic", "Greek", "Armenian", "Korean", "Other"}

// Filter selects which profiles a control surface offers.
type Filter struct {
	FunModes bool
	Cyrillic bool
	Greek    bool
	Armenian bool
	Korean   bool
}

// DefaultFilter shows every real script and hides fun modes.
func DefaultFilter() Filter {
	return Filter{Cyrillic: true, Greek: true, Armenian: true, Korean: true}
}

// Group is the profiles reading from one source script.
type Group struct {
	Source   string
	Profiles []*Profile
}

// Visible returns the profiles f lets through, in declaration order.
func (r *Registry) Visible(f Filter) []*Profile {
	var out []*Profile
	for _, p := range r.order {
		if f.allows(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f Filter) allows(p *Profile) bool {
	id := p.ID
	name := strings.ToLower(p.Name)

	if !f.FunModes {
		for _, k := range funKeywords {
			if strings.Contains(id, k) || strings.Contains(name, k) {
				return false
			}
		}
	}
	if !f.Cyrillic && (strings.Contains(id, "cyr") || strings.Contains(name, "cyrillic")) {
		return false
	}
	if !f.Greek && (strings.Contains(id, "el") || strings.Contains(id, "gre") || strings.Contains(name, "greek")) {
		return false
	}
	if !f.Armenian && (strings.Contains(id, "arm") || strings.Contains(name, "armenian")) {
		return false
	}
	if !f.Korean && (strings.Contains(id, "korean") || strings.Contains(name, "korean")) {
		return false
	}
	return true
}

// Grouped buckets profiles by source script. Empty groups are omitted.
func Grouped(profiles []*Profile) []Group {
	buckets := make(map[string][]*Profile)
	for _, p := range profiles {
		src := p.Source()
		known := false
		for _, g := range groupOrder {
			if g == src {
				known = true
				break
			}
		}
		if !known {
			src = "Other"
		}
		buckets[src] = append(buckets[src], p)
	}

	var out []Group
	for _, g := range groupOrder {
		if ps := buckets[g]; len(ps) > 0 {
			out = append(out, Group{Source: g, Profiles: ps})
		}
	}
	return out
}
