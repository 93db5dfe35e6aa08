// Package sink defines output backends for the patches and overlay states
// footalk produces.
package sink

import (
	"context"

	"github.com/Bookaj/footalk/mutation"
)

// Sink is the output interface. Implementations deliver text patches and
// hover overlay states to a backend (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, batch mutation.Batch) error
	SendOverlay(ctx context.Context, overlay mutation.Overlay) error
	Close() error
}

// Discard drops everything.
type Discard struct{}

func (Discard) Send(context.Context, mutation.Batch) error         { return nil }
func (Discard) SendOverlay(context.Context, mutation.Overlay) error { return nil }
func (Discard) Close() error                                        { return nil }
