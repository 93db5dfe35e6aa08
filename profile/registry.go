// CLAUDE:SUMMARY Loads language profiles from YAML (file or embedded builtin set) into an ordered registry.
package profile

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Registry is an immutable, ordered set of profiles.
type Registry struct {
	byID  map[string]*Profile
	order []*Profile
}

// NewRegistry builds a registry from profiles, keeping their order.
// A later profile with a duplicate ID replaces the earlier one in place.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{byID: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if prev, ok := r.byID[p.ID]; ok {
			for i, q := range r.order {
				if q == prev {
					r.order[i] = p
				}
			}
		} else {
			r.order = append(r.order, p)
		}
		r.byID[p.ID] = p
	}
	return r
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (*Profile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns all profiles in declaration order.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, len(r.order))
	copy(out, r.order)
	return out
}

type fileFormat struct {
	Profiles []profileYAML `yaml:"profiles"`
}

type profileYAML struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	PostProcess string              `yaml:"post_process"`
	Levels      []map[string]string `yaml:"levels"`
}

// Load parses profile data.
func Load(data []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}

	profiles := make([]*Profile, 0, len(f.Profiles))
	for i, py := range f.Profiles {
		if py.ID == "" {
			return nil, fmt.Errorf("profile: entry %d: missing id", i)
		}
		pp, err := lookupPostProcessor(py.PostProcess)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", py.ID, err)
		}
		p := &Profile{
			ID:              py.ID,
			Name:            py.Name,
			PostProcess:     pp,
			PostProcessName: py.PostProcess,
		}
		if p.Name == "" {
			p.Name = py.ID
		}
		for _, m := range py.Levels {
			p.Levels = append(p.Levels, LevelMap(m))
		}
		profiles = append(profiles, p)
	}
	return NewRegistry(profiles...), nil
}

// LoadFile reads profile data from a YAML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return Load(data)
}

// Builtin returns the profiles compiled into the binary.
func Builtin() *Registry {
	r, err := Load(builtinYAML)
	if err != nil {
		panic("profile: builtin data: " + err.Error())
	}
	return r
}

// Merge returns a registry holding r's profiles followed by other's; a
// profile in other replaces the one in r with the same ID.
func (r *Registry) Merge(other *Registry) *Registry {
	return NewRegistry(append(r.List(), other.List()...)...)
}
