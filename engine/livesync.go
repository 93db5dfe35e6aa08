package engine

import (
	"log/slog"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/transmute"
	"golang.org/x/net/html"
)

// LiveSync rewrites content as it is inserted into the document, using the
// controller's current state. It is IDLE while the effective level is 0
// and does no work at all; otherwise it is ARMED.
type LiveSync struct {
	tr      *transmute.Transformer
	state   func() State
	logger  *slog.Logger
	pending []transmute.Change
}

// Armed reports whether inserted content is being rewritten.
func (l *LiveSync) Armed() bool { return l.state().EffectiveLevel() > 0 }

// Handle processes one batch of inserted nodes. It is registered as a
// dom.InsertFunc.
func (l *LiveSync) Handle(nodes []*html.Node) {
	st := l.state()
	level := st.EffectiveLevel()
	if level == 0 {
		return
	}
	for _, n := range nodes {
		if dom.IsOverlay(n) {
			continue
		}
		switch n.Type {
		case html.TextNode:
			if !dom.Eligible(n) {
				continue
			}
			old := n.Data
			if l.tr.Apply(n, level, st.Language) {
				l.pending = append(l.pending, transmute.Change{Unit: n, Old: old})
			}
		case html.ElementNode:
			l.pending = append(l.pending, l.tr.Scan(n, level, st.Language)...)
		}
	}
}

// drain returns and clears the changes made since the last drain.
func (l *LiveSync) drain() []transmute.Change {
	out := l.pending
	l.pending = nil
	return out
}

func (l *LiveSync) transition(from, to int) {
	switch {
	case from == 0:
		l.logger.Info("engine: live sync armed", "level", to)
	case to == 0:
		l.logger.Info("engine: live sync idle", "previous_level", from)
	default:
		l.logger.Info("engine: live sync level changed", "from", from, "to", to)
	}
}
