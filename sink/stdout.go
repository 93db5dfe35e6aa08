// CLAUDE:SUMMARY Writes patch batches and overlay states as JSON-line envelopes to an io.Writer (defaults to stdout).
package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/Bookaj/footalk/mutation"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout). Each line is
// a mutation.Envelope, the same framing footalk serve reads on stdin.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, batch mutation.Batch) error {
	return s.write(mutation.TypeBatch, batch)
}

func (s *Stdout) SendOverlay(_ context.Context, overlay mutation.Overlay) error {
	return s.write(mutation.TypeOverlay, overlay)
}

func (s *Stdout) Close() error { return nil }

func (s *Stdout) write(typ string, data any) error {
	env, err := mutation.NewEnvelope(typ, data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(env)
}
