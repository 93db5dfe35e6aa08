package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Bookaj/footalk/engine"
)

// Client sends messages to an engine's HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient targets the engine listening at baseURL (e.g.
// "http://127.0.0.1:8765"). A nil hc uses a client with a 5s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// Notify posts m to /message and returns the engine's ack.
func (c *Client) Notify(ctx context.Context, m Message) (Ack, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return Ack{}, fmt.Errorf("transport: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/message", bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("transport: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("transport: post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return Ack{}, fmt.Errorf("transport: status %d: %s", resp.StatusCode, e.Error)
	}
	var ack Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return Ack{}, fmt.Errorf("transport: decode ack: %w", err)
	}
	return ack, nil
}

// State fetches the engine's current state.
func (c *Client) State(ctx context.Context) (engine.State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/state", nil)
	if err != nil {
		return engine.State{}, fmt.Errorf("transport: new request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return engine.State{}, fmt.Errorf("transport: get state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return engine.State{}, fmt.Errorf("transport: status %d", resp.StatusCode)
	}
	var st engine.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return engine.State{}, fmt.Errorf("transport: decode state: %w", err)
	}
	return st, nil
}
