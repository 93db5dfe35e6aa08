// CLAUDE:SUMMARY WebSocket hub: page clients receive patches and overlays, and send DOM envelopes, pointer events and state messages.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Bookaj/footalk/mutation"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
)

// Envelope types that only travel over the socket.
const (
	TypeMessage = "message" // client -> engine: a state-update Message
	TypeAck     = "ack"     // engine -> client: the Ack for that message
)

// clientBuffer is how many outbound frames a client may lag behind before
// the hub drops it.
const clientBuffer = 256

var upgrader = websocket.Upgrader{
	// Content scripts connect from whatever page they run in.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SocketTarget is what a socket client drives; *engine.Engine implements it.
type SocketTarget interface {
	StreamTarget
	Updater
}

type socketClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

type unicast struct {
	to  *socketClient
	msg []byte
}

// Hub fans engine output out to every connected page client. It is also a
// sink: register it with the engine's sink router.
type Hub struct {
	register   chan *socketClient
	unregister chan *socketClient
	broadcast  chan []byte
	direct     chan unicast
	quit       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewHub creates a hub. Run must be running for sends to be delivered.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *socketClient),
		unregister: make(chan *socketClient),
		broadcast:  make(chan []byte),
		direct:     make(chan unicast),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client set until ctx is cancelled or the hub is closed.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*socketClient]struct{})
	drop := func(c *socketClient) {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
		}
	}
	defer func() {
		h.Close()
		for c := range clients {
			drop(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.quit:
			return
		case c := <-h.register:
			clients[c] = struct{}{}
			h.logger.Info("transport: socket client joined", "client", c.id, "clients", len(clients))
		case c := <-h.unregister:
			drop(c)
			h.logger.Info("transport: socket client left", "client", c.id, "clients", len(clients))
		case u := <-h.direct:
			if _, ok := clients[u.to]; !ok {
				continue
			}
			select {
			case u.to.send <- u.msg:
			default:
				h.logger.Warn("transport: socket client too slow, dropped", "client", u.to.id)
				drop(u.to)
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("transport: socket client too slow, dropped", "client", c.id)
					drop(c)
				}
			}
		}
	}
}

// Send broadcasts a patch batch to every client.
func (h *Hub) Send(ctx context.Context, b mutation.Batch) error {
	return h.publish(ctx, mutation.TypeBatch, b)
}

// SendOverlay broadcasts an overlay state to every client.
func (h *Hub) SendOverlay(ctx context.Context, o mutation.Overlay) error {
	return h.publish(ctx, mutation.TypeOverlay, o)
}

// Close stops Run; later sends fail.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.quit) })
	return nil
}

var errHubClosed = errors.New("transport: hub closed")

func (h *Hub) publish(ctx context.Context, typ string, v any) error {
	env, err := mutation.NewEnvelope(typ, v)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("transport: marshal envelope: %w", err)
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.quit:
		return errHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) reply(c *socketClient, typ string, v any) {
	env, err := mutation.NewEnvelope(typ, v)
	if err != nil {
		h.logger.Warn("transport: socket reply", "error", err)
		return
	}
	msg, _ := json.Marshal(env)
	select {
	case h.direct <- unicast{to: c, msg: msg}:
	case <-h.quit:
	}
}

// Handler upgrades GET requests to a socket bound to t. Inbound frames are
// envelopes: snapshot, batch and pointer go to t as on a stream, message
// is dispatched and answered with an ack envelope to the sender only.
func (h *Hub) Handler(t SocketTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn("transport: socket upgrade", "error", err)
			return
		}
		conn.SetReadLimit(maxLine)

		c := &socketClient{id: ulid.Make().String(), conn: conn, send: make(chan []byte, clientBuffer)}
		select {
		case h.register <- c:
		case <-h.quit:
			conn.Close()
			return
		}

		go h.writeLoop(c)
		h.readLoop(r.Context(), c, t)
	}
}

func (h *Hub) writeLoop(c *socketClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("transport: socket write", "client", c.id, "error", err)
			// Closing the conn ends readLoop, which unregisters c and
			// lets the hub close send.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *Hub) readLoop(ctx context.Context, c *socketClient, t SocketTarget) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.quit:
		}
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("transport: socket read", "client", c.id, "error", err)
			}
			return
		}
		if err := h.handleFrame(ctx, c, raw, t); err != nil {
			h.logger.Warn("transport: socket frame skipped", "client", c.id, "error", err)
		}
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *socketClient, raw []byte, t SocketTarget) error {
	var env mutation.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type != TypeMessage {
		return handleEnvelope(ctx, raw, t, h.logger)
	}

	m, err := decodeMessage(string(env.Data))
	if err != nil {
		return err
	}
	ack, err := Dispatch(ctx, t, m)
	if err != nil && !errors.Is(err, ErrUnknownAction) {
		return err
	}
	h.reply(c, TypeAck, ack)
	return nil
}
