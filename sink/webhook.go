package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Bookaj/footalk/mutation"
)

// Webhook POSTs each patch batch or overlay state as one envelope. Network
// errors, 429 and 5xx are retried with doubling backoff; other 4xx are not.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *slog.Logger
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay; it doubles per attempt.
// Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookClient replaces the HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) { w.logger = l }
}

// NewWebhook creates a Webhook sink targeting the given URL.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Webhook) Send(ctx context.Context, batch mutation.Batch) error {
	return w.post(ctx, mutation.TypeBatch, batch)
}

func (w *Webhook) SendOverlay(ctx context.Context, overlay mutation.Overlay) error {
	return w.post(ctx, mutation.TypeOverlay, overlay)
}

func (w *Webhook) Close() error { return nil }

// errPermanent marks a response a retry cannot fix.
var errPermanent = errors.New("webhook: rejected")

func (w *Webhook) post(ctx context.Context, typ string, data any) error {
	env, err := mutation.NewEnvelope(typ, data)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	delay := w.backoff
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries+1; attempt++ {
		if attempt > 1 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
			delay *= 2
		}
		lastErr = w.deliver(ctx, typ, body)
		if lastErr == nil || errors.Is(lastErr, errPermanent) {
			return lastErr
		}
		w.logger.Warn("webhook: delivery failed", "type", typ, "attempt", attempt, "error", lastErr)
	}
	return fmt.Errorf("webhook: gave up after %d attempts: %w", w.maxRetries+1, lastErr)
}

// deliver makes one POST. 4xx other than 429 is permanent.
func (w *Webhook) deliver(ctx context.Context, typ string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Footalk-Type", typ)

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return nil
	case code >= 400 && code < 500 && code != http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", errPermanent, code)
	default:
		return fmt.Errorf("status %d", code)
	}
}
