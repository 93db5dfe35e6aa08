package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/Bookaj/footalk/mutation"
)

// maxLine bounds one envelope; snapshots of large pages run to megabytes.
const maxLine = 64 << 20

// StreamTarget receives what a DOM watcher reports; *engine.Engine
// implements it.
type StreamTarget interface {
	Apply(ctx context.Context, b *mutation.Batch) error
	Load(ctx context.Context, snap *mutation.Snapshot) error
	Pointer(ctx context.Context, p mutation.Pointer) (mutation.Overlay, error)
}

// ReadStream feeds JSON-line envelopes from r to t until r is exhausted or
// ctx is cancelled. Snapshots, batches and pointer events are handled;
// other envelope types (a watcher's page profiles, say) are skipped. A bad
// line is logged and skipped.
func ReadStream(ctx context.Context, r io.Reader, t StreamTarget, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	line := 0
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return nil
		}
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := handleEnvelope(ctx, raw, t, logger); err != nil {
			logger.Warn("transport: stream line skipped", "line", line, "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("transport: read stream: %w", err)
	}
	return nil
}

func handleEnvelope(ctx context.Context, raw []byte, t StreamTarget, logger *slog.Logger) error {
	var env mutation.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case mutation.TypeSnapshot:
		snap, err := mutation.UnmarshalSnapshot(env.Data)
		if err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		return t.Load(ctx, snap)
	case mutation.TypeBatch:
		b, err := mutation.UnmarshalBatch(env.Data)
		if err != nil {
			return fmt.Errorf("decode batch: %w", err)
		}
		return t.Apply(ctx, b)
	case mutation.TypePointer:
		p, err := mutation.UnmarshalPointer(env.Data)
		if err != nil {
			return fmt.Errorf("decode pointer: %w", err)
		}
		_, err = t.Pointer(ctx, *p)
		return err
	default:
		logger.Debug("transport: envelope ignored", "type", env.Type)
		return nil
	}
}
