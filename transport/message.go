// Package transport carries state-update messages to a running engine and
// exposes it over HTTP and Redis pub/sub.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bookaj/footalk/engine"
)

// ActionUpdateState is the only action an engine handles.
const ActionUpdateState = "UPDATE_STATE"

// Ack statuses.
const (
	StatusUpdated = "updated"
	StatusIgnored = "ignored"
)

// ErrUnknownAction is returned for messages whose action is not handled.
var ErrUnknownAction = errors.New("transport: unknown action")

// Message is a control message addressed to an engine.
type Message struct {
	Action string         `json:"action"`
	State  engine.Partial `json:"state"`
}

// Ack answers a Message.
type Ack struct {
	Status string `json:"status"`
}

// UpdateMessage builds a state update carrying p.
func UpdateMessage(p engine.Partial) Message {
	return Message{Action: ActionUpdateState, State: p}
}

// Updater applies a state update; *engine.Engine implements it.
type Updater interface {
	Update(ctx context.Context, p engine.Partial) (engine.State, error)
}

// Notifier delivers a message to an engine, wherever it runs.
type Notifier interface {
	Notify(ctx context.Context, m Message) (Ack, error)
}

// Dispatch hands m to u. An unknown action is acknowledged as ignored and
// reported as ErrUnknownAction; u is not called.
func Dispatch(ctx context.Context, u Updater, m Message) (Ack, error) {
	if m.Action != ActionUpdateState {
		return Ack{Status: StatusIgnored}, fmt.Errorf("%w: %q", ErrUnknownAction, m.Action)
	}
	if _, err := u.Update(ctx, m.State); err != nil {
		return Ack{}, fmt.Errorf("transport: update: %w", err)
	}
	return Ack{Status: StatusUpdated}, nil
}
