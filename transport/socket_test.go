package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/profile"
	"github.com/gorilla/websocket"
)

func dialSocket(t *testing.T, f *fakeEngine) (*Hub, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(quiet())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(f, profile.Builtin(), WithLogger(quiet()), WithSocket(hub)))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return hub, conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) mutation.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env mutation.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func readAck(t *testing.T, conn *websocket.Conn) Ack {
	t.Helper()
	env := readEnvelope(t, conn)
	if env.Type != TypeAck {
		t.Fatalf("envelope type = %q, want ack", env.Type)
	}
	var ack Ack
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatal(err)
	}
	return ack
}

func TestSocketMessageAck(t *testing.T) {
	f := &fakeEngine{}
	_, conn := dialSocket(t, f)

	conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"message","data":{"action":"UPDATE_STATE","state":{"level":2}}}`))
	if ack := readAck(t, conn); ack.Status != StatusUpdated {
		t.Errorf("status = %q", ack.Status)
	}

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","data":{"action":"PING"}}`))
	if ack := readAck(t, conn); ack.Status != StatusIgnored {
		t.Errorf("unknown action status = %q", ack.Status)
	}

	st, _ := f.State(context.Background())
	if st.Level != 2 {
		t.Errorf("level = %d", st.Level)
	}
}

func TestSocketBroadcastsPatches(t *testing.T) {
	f := &fakeEngine{}
	hub, conn := dialSocket(t, f)

	// An ack proves the client is registered.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","data":{"action":"PING"}}`))
	readAck(t, conn)

	if err := hub.Send(context.Background(), mutation.Batch{ID: "b1"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	env := readEnvelope(t, conn)
	if env.Type != mutation.TypeBatch || !strings.Contains(string(env.Data), `"b1"`) {
		t.Errorf("got %s %s", env.Type, env.Data)
	}

	if err := hub.SendOverlay(context.Background(), mutation.Overlay{Visible: true, Text: "face"}); err != nil {
		t.Fatalf("send overlay: %v", err)
	}
	if env := readEnvelope(t, conn); env.Type != mutation.TypeOverlay {
		t.Errorf("type = %q, want overlay", env.Type)
	}
}

func TestSocketForwardsMutations(t *testing.T) {
	f := &fakeEngine{}
	_, conn := dialSocket(t, f)

	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"batch","data":{"id":"m1","records":[]}}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	// Frames are handled in order, so the ack follows the batch.
	conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","data":{"action":"PING"}}`))
	readAck(t, conn)

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) != 1 || f.batches[0].ID != "m1" {
		t.Errorf("batches = %+v", f.batches)
	}
}
