package profile

import (
	"sort"
	"sync"
	"unicode/utf8"
)

// Rule is one literal substitution.
type Rule struct {
	Key   string
	Value string
}

// RuleSet is an ordered rule list, longest key first.
type RuleSet []Rule

type cacheKey struct {
	lang  string
	level int
}

// Resolver builds and caches rule sets. Safe for concurrent use.
type Resolver struct {
	reg *Registry

	mu    sync.Mutex
	cache map[cacheKey]RuleSet
}

// NewResolver creates a Resolver over reg.
func NewResolver(reg *Registry) *Resolver {
	return &Resolver{reg: reg, cache: make(map[cacheKey]RuleSet)}
}

// Registry returns the profiles the resolver reads from.
func (r *Resolver) Registry() *Registry { return r.reg }

// Resolve returns the rule set for (lang, level). Unknown languages, level 0
// and levels without a map yield an empty set, never an error; misses are
// not cached.
func (r *Resolver) Resolve(lang string, level int) RuleSet {
	k := cacheKey{lang, level}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rs, ok := r.cache[k]; ok {
		return rs
	}

	p, ok := r.reg.Get(lang)
	if !ok {
		return nil
	}
	m := p.Level(level)
	if m == nil {
		return nil
	}

	rs := make(RuleSet, 0, len(m))
	for key, v := range m {
		if key == "" {
			continue
		}
		rs = append(rs, Rule{Key: key, Value: v})
	}
	sort.Slice(rs, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(rs[i].Key), utf8.RuneCountInString(rs[j].Key)
		if li != lj {
			return li > lj
		}
		return rs[i].Key < rs[j].Key
	})

	r.cache[k] = rs
	return rs
}
