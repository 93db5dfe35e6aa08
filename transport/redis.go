// CLAUDE:SUMMARY Redis pub/sub bus carrying state-update messages to the engines serving one host.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusSent acknowledges a message published without waiting for an
// engine: pub/sub has no reply path.
const StatusSent = "sent"

// Channel is the pub/sub channel of the engines serving host.
func Channel(host string) string { return "footalk:state:" + host }

// RedisBus publishes and receives messages for one host.
type RedisBus struct {
	rdb    *redis.Client
	host   string
	logger *slog.Logger
}

// NewRedisBus creates a bus on rdb for host.
func NewRedisBus(rdb *redis.Client, host string, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{rdb: rdb, host: host, logger: logger}
}

// Notify publishes m. The ack only says it was handed to Redis.
func (b *RedisBus) Notify(ctx context.Context, m Message) (Ack, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return Ack{}, fmt.Errorf("transport: marshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	n, err := b.rdb.Publish(ctx, Channel(b.host), payload).Result()
	if err != nil {
		return Ack{}, fmt.Errorf("transport: publish: %w", err)
	}
	b.logger.Debug("transport: published", "channel", Channel(b.host), "receivers", n)
	return Ack{Status: StatusSent}, nil
}

// Subscribe delivers every message on the host channel to u until ctx is
// cancelled. Malformed payloads and failed updates are logged.
func (b *RedisBus) Subscribe(ctx context.Context, u Updater) error {
	pubsub := b.rdb.Subscribe(ctx, Channel(b.host))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("transport: subscribe %s: %w", Channel(b.host), err)
	}
	b.logger.Info("transport: subscribed", "channel", Channel(b.host))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(ctx, u, msg.Payload)
		}
	}
}

func (b *RedisBus) handle(ctx context.Context, u Updater, payload string) {
	m, err := decodeMessage(payload)
	if err != nil {
		b.logger.Warn("transport: bad message", "channel", Channel(b.host), "error", err)
		return
	}
	ack, err := Dispatch(ctx, u, m)
	if err != nil {
		b.logger.Warn("transport: message not applied", "status", ack.Status, "error", err)
		return
	}
	b.logger.Debug("transport: message applied", "status", ack.Status)
}

func decodeMessage(payload string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Message{}, err
	}
	return m, nil
}
