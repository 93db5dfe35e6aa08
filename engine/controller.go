package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/sink"
	"github.com/Bookaj/footalk/transmute"
)

// Controller owns the state of one document. Every state update merges
// into the current state and rescans the whole document at the resulting
// effective level.
type Controller struct {
	doc     *dom.Document
	tr      *transmute.Transformer
	live    *LiveSync
	patches *patcher
	logger  *slog.Logger
	state   State
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// SetState merges p, logs any live-sync transition, and scans the whole
// document. It returns the resulting state.
func (c *Controller) SetState(ctx context.Context, p Partial) State {
	prev := c.state
	c.state = prev.Merge(p)
	if from, to := prev.EffectiveLevel(), c.state.EffectiveLevel(); from != to {
		c.live.transition(from, to)
	}
	c.scan(ctx)
	return c.state
}

// scan rewrites the whole document at the current effective level. Level 0
// restores every unit that has an origin.
func (c *Controller) scan(ctx context.Context) {
	st := c.state
	changes := c.tr.Scan(c.doc.Root(), st.EffectiveLevel(), st.Language)
	c.logger.Debug("engine: full scan",
		"language", st.Language, "level", st.EffectiveLevel(), "changed", len(changes))
	c.patches.emit(ctx, changes)
}

// patcher turns unit changes into OpText batches for the sink.
type patcher struct {
	doc     *dom.Document
	sink    sink.Sink
	newID   mutation.IDGenerator
	logger  *slog.Logger
	pageURL string
	pageID  string
	seq     uint64
}

func (p *patcher) page(url, id string) {
	if url != "" {
		p.pageURL = url
	}
	if id != "" {
		p.pageID = id
	}
}

func (p *patcher) emit(ctx context.Context, changes []transmute.Change) {
	var recs []mutation.Record
	for _, ch := range changes {
		// A unit rewritten and then detached within one batch has nothing
		// left to patch.
		if !p.doc.Contains(ch.Unit) {
			continue
		}
		recs = append(recs, mutation.Record{
			Op:       mutation.OpText,
			XPath:    dom.XPath(ch.Unit),
			NodeType: mutation.TextNode,
			Value:    ch.Unit.Data,
			OldValue: ch.Old,
		})
	}
	if len(recs) == 0 {
		return
	}

	p.seq++
	b := mutation.Batch{
		ID:        p.newID(),
		PageURL:   p.pageURL,
		PageID:    p.pageID,
		Seq:       p.seq,
		Records:   recs,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := p.sink.Send(ctx, b); err != nil {
		p.logger.Warn("engine: send patches", "seq", b.Seq, "records", len(recs), "error", err)
	}
}
