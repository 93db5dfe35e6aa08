// Package engine runs footalk against one live document: a controller that
// owns the language/level state and rescans on every update, a live-sync
// coordinator that rewrites inserted content, and hover reveal.
//
// All work happens on the goroutine running Engine.Run. Callers submit
// state updates, mutation batches, snapshots and pointer events through
// Engine methods, which block until the work is done. A state update
// finishes its full scan before the next event is taken.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/profile"
	"github.com/Bookaj/footalk/sink"
	"github.com/Bookaj/footalk/transmute"
	"golang.org/x/net/html"
)

// ErrStopped is returned for work submitted after Run returned.
var ErrStopped = errors.New("engine: stopped")

// Config configures an Engine.
type Config struct {
	// Document is the tree to rewrite. Nil starts from an empty document,
	// typically replaced by the first snapshot.
	Document *dom.Document
	Resolver *profile.Resolver
	// Sink receives patch batches and overlay states. Nil discards them.
	Sink    sink.Sink
	Logger  *slog.Logger
	Initial State
	PageURL string
	PageID  string
	// NewID generates batch IDs. Default: mutation.NewID.
	NewID mutation.IDGenerator
}

type request struct {
	fn   func(ctx context.Context)
	done chan struct{}
}

// Engine serialises all work on one document.
type Engine struct {
	doc     *dom.Document
	origins *transmute.OriginStore
	ctrl    *Controller
	live    *LiveSync
	hover   *HoverReveal
	sink    sink.Sink
	logger  *slog.Logger

	lastOverlay mutation.Overlay

	reqs    chan request
	stopped chan struct{}
}

// New wires an Engine. Run must be called to start processing.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	doc := cfg.Document
	if doc == nil {
		doc = dom.Empty(dom.WithLogger(logger))
	}
	out := cfg.Sink
	if out == nil {
		out = sink.Discard{}
	}
	newID := cfg.NewID
	if newID == nil {
		newID = mutation.NewID
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = profile.NewResolver(profile.Builtin())
	}

	origins := transmute.NewOriginStore()
	tr := transmute.New(resolver, origins, transmute.WithLogger(logger))

	e := &Engine{
		doc:     doc,
		origins: origins,
		sink:    out,
		logger:  logger,
		reqs:    make(chan request),
		stopped: make(chan struct{}),
	}
	e.ctrl = &Controller{
		doc:    doc,
		tr:     tr,
		logger: logger,
		state:  cfg.Initial,
		patches: &patcher{
			doc:     doc,
			sink:    out,
			newID:   newID,
			logger:  logger,
			pageURL: cfg.PageURL,
			pageID:  cfg.PageID,
		},
	}
	e.live = &LiveSync{tr: tr, state: e.ctrl.State, logger: logger}
	e.ctrl.live = e.live
	e.hover = &HoverReveal{loc: doc, origins: origins, doc: doc}
	doc.Observe(e.live.Handle)
	doc.OnDetach(origins.Forget)
	return e
}

// Run scans the document with the initial state, then processes submitted
// work until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)

	st := e.ctrl.State()
	if st.EffectiveLevel() > 0 {
		e.live.transition(0, st.EffectiveLevel())
	}
	e.ctrl.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-e.reqs:
			req.fn(ctx)
			close(req.done)
		}
	}
}

// do runs fn on the engine goroutine and waits for it.
func (e *Engine) do(ctx context.Context, fn func(ctx context.Context)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case e.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Update merges a state update and rescans the document.
func (e *Engine) Update(ctx context.Context, p Partial) (State, error) {
	var st State
	err := e.do(ctx, func(ctx context.Context) {
		st = e.ctrl.SetState(ctx, p)
	})
	return st, err
}

// State returns the current state.
func (e *Engine) State(ctx context.Context) (State, error) {
	var st State
	err := e.do(ctx, func(context.Context) { st = e.ctrl.State() })
	return st, err
}

// Apply replays a watcher batch onto the document. Inserted content is
// rewritten by live sync and the resulting patches are sent as one batch.
// Records that cannot be applied are skipped and reported in the error.
func (e *Engine) Apply(ctx context.Context, b *mutation.Batch) error {
	var applyErr error
	err := e.do(ctx, func(ctx context.Context) {
		applyErr = e.apply(ctx, b)
	})
	if err != nil {
		return err
	}
	return applyErr
}

func (e *Engine) apply(ctx context.Context, b *mutation.Batch) error {
	e.ctrl.patches.page(b.PageURL, b.PageID)

	// Detached subtrees drop their origins through OnDetach.
	err := e.doc.Apply(b.Records)
	e.ctrl.patches.emit(ctx, e.live.drain())
	if err != nil {
		return fmt.Errorf("engine: batch %s: %w", b.ID, err)
	}
	return nil
}

// Load replaces the document with a snapshot and rescans it.
func (e *Engine) Load(ctx context.Context, snap *mutation.Snapshot) error {
	root, err := html.Parse(bytes.NewReader(snap.HTML))
	if err != nil {
		return fmt.Errorf("engine: load snapshot %s: %w", snap.ID, err)
	}
	return e.do(ctx, func(ctx context.Context) {
		old := e.doc.Root()
		e.doc.Reset(root)
		e.origins.Forget(old)
		e.hover.reset()
		e.lastOverlay = mutation.Overlay{}
		e.ctrl.patches.page(snap.PageURL, snap.PageID)
		e.ctrl.scan(ctx)
	})
}

// Pointer handles a pointer event and returns the overlay state. The sink
// only hears about overlay changes.
func (e *Engine) Pointer(ctx context.Context, p mutation.Pointer) (mutation.Overlay, error) {
	var ov mutation.Overlay
	err := e.do(ctx, func(ctx context.Context) {
		ov = e.hover.Reveal(p, e.ctrl.State())
		if ov == e.lastOverlay {
			return
		}
		e.lastOverlay = ov
		if err := e.sink.SendOverlay(ctx, ov); err != nil {
			e.logger.Warn("engine: send overlay", "error", err)
		}
	})
	return ov, err
}

// Render writes the current document in format f.
func (e *Engine) Render(ctx context.Context, w io.Writer, f dom.Format) error {
	var renderErr error
	err := e.do(ctx, func(context.Context) {
		renderErr = e.doc.Render(w, f)
	})
	if err != nil {
		return err
	}
	return renderErr
}
