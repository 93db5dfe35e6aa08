// Package transmute rewrites text units: it restores a unit to its origin,
// applies the resolved rule set, and records the origin the first time the
// unit's text actually changes.
package transmute

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/profile"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Transformer applies rule sets to text units.
type Transformer struct {
	resolver *profile.Resolver
	origins  *OriginStore
	logger   *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the transformer logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) { t.logger = l }
}

// New creates a Transformer. origins may be shared with readers such as
// hover reveal; the transformer is its only writer.
func New(resolver *profile.Resolver, origins *OriginStore, opts ...Option) *Transformer {
	t := &Transformer{
		resolver: resolver,
		origins:  origins,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Origins returns the store the transformer writes.
func (t *Transformer) Origins() *OriginStore { return t.origins }

// Apply rewrites unit for (level, lang). It always starts from the unit's
// pristine text, so repeated calls never compound, and level 0 or an
// unknown language restores the origin. It reports whether the unit's
// displayed text changed.
func (t *Transformer) Apply(unit *html.Node, level int, lang string) bool {
	before := unit.Data

	if origin, ok := t.origins.Origin(unit); ok {
		unit.Data = origin
	}
	pristine := unit.Data

	if strings.TrimSpace(pristine) == "" {
		return unit.Data != before
	}

	rules := t.resolver.Resolve(lang, level)
	if len(rules) == 0 {
		return unit.Data != before
	}

	result, err := t.rewrite(pristine, lang, rules)
	if err != nil {
		t.logger.Warn("transmute: unit left pristine", "lang", lang, "level", level, "error", err)
		return unit.Data != before
	}

	if result != pristine {
		t.origins.remember(unit, pristine)
		unit.Data = result
	}
	return unit.Data != before
}

// Text rewrites a detached string with the same rules Apply uses.
func (t *Transformer) Text(text string, level int, lang string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	rules := t.resolver.Resolve(lang, level)
	if len(rules) == 0 {
		return text
	}
	out, err := t.rewrite(text, lang, rules)
	if err != nil {
		return text
	}
	return out
}

// rewrite runs the substitution pipeline. A panicking post-processor is
// contained to the unit being rewritten.
func (t *Transformer) rewrite(text, lang string, rules profile.RuleSet) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transmute: rewrite panicked: %v", r)
		}
	}()

	p, _ := t.resolver.Registry().Get(lang)
	decompose := profile.IsDecomposing(lang) || (p != nil && p.Decomposing())

	out = text
	if decompose {
		out = norm.NFD.String(out)
	}
	for _, r := range rules {
		out = strings.ReplaceAll(out, r.Key, r.Value)
	}
	if p != nil && p.PostProcess != nil {
		out = p.PostProcess(out)
	}
	if decompose {
		out = norm.NFC.String(out)
	}
	return out, nil
}

// Change is one unit whose displayed text a scan changed.
type Change struct {
	Unit *html.Node
	Old  string
}

// Scan rewrites every eligible unit under root. Units are collected
// before any is rewritten; the returned changes are in document order.
func (t *Transformer) Scan(root *html.Node, level int, lang string) []Change {
	units := dom.Collect(root)
	var changes []Change
	for _, u := range units {
		old := u.Data
		if t.Apply(u, level, lang) {
			changes = append(changes, Change{Unit: u, Old: old})
		}
	}
	return changes
}
