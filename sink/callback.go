// CLAUDE:SUMMARY In-process callback sink delivering patches and overlays via Go function calls.
package sink

import (
	"context"

	"github.com/Bookaj/footalk/mutation"
)

// BatchFunc is called for each patch batch.
type BatchFunc func(ctx context.Context, batch mutation.Batch) error

// OverlayFunc is called for each overlay state.
type OverlayFunc func(ctx context.Context, overlay mutation.Overlay) error

// Callback delivers to Go functions, for embedding footalk in a process
// that owns the page connection itself.
type Callback struct {
	onBatch   BatchFunc
	onOverlay OverlayFunc
}

// NewCallback creates a Callback sink. Either handler may be nil.
func NewCallback(onBatch BatchFunc, onOverlay OverlayFunc) *Callback {
	return &Callback{onBatch: onBatch, onOverlay: onOverlay}
}

func (c *Callback) Send(ctx context.Context, batch mutation.Batch) error {
	if c.onBatch != nil {
		return c.onBatch(ctx, batch)
	}
	return nil
}

func (c *Callback) SendOverlay(ctx context.Context, overlay mutation.Overlay) error {
	if c.onOverlay != nil {
		return c.onOverlay(ctx, overlay)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
