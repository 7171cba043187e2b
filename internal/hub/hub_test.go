package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/soar/padcursor/internal/gamepad"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// Run logs from its own goroutine, which may outlive the test
	h := NewHub(zap.NewNop())
	go h.Run(ctx)
	return h
}

func receive(t *testing.T, c *Client) *WSMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad message %s: %v", data, err)
		}
		return &msg
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return nil
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	default:
	}
}

func TestBroadcastRoutesBySelection(t *testing.T) {
	h := startHub(t)

	all := NewClient(h, nil)
	one := NewClient(h, nil)
	one.Select(2)
	h.Register(all)
	h.Register(one)

	if n := h.Len(); n != 2 {
		t.Fatalf("hub has %d clients, want 2", n)
	}

	h.BroadcastTo([]byte(`{"type":"full"}`), 1)
	receive(t, all)
	expectNothing(t, one)

	h.BroadcastTo([]byte(`{"type":"full"}`), 2)
	receive(t, all)
	receive(t, one)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)

	c := NewClient(h, nil)
	h.Register(c)
	h.Unregister(c)

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("unexpected message")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	if h.SendTo(c, []byte("x")) {
		t.Error("SendTo succeeded for an unregistered client")
	}
}

func snapshot(id int, x float32) gamepad.Snapshot {
	return gamepad.Snapshot{
		ID:        id,
		Device:    gamepad.DeviceInfo{Name: "pad", Class: "gamepad", Mapping: "generic"},
		Position:  gamepad.Vector{X: x, Z: -1},
		Enabled:   true,
		Connected: true,
	}
}

func TestBroadcasterMessages(t *testing.T) {
	h := startHub(t)
	c := NewClient(h, nil)
	h.Register(c)

	changes := make(chan gamepad.Change)
	b := NewBroadcaster(h, changes, Options{FullSync: time.Hour, DeltaResync: 2}, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	changes <- gamepad.Change{Kind: gamepad.ChangeAttached, Snapshot: snapshot(1, 0)}
	msg := receive(t, c)
	if msg.Type != "event" || msg.Event != "attached" || msg.Data.ID != 1 {
		t.Fatalf("attach message = %+v", msg)
	}

	changes <- gamepad.Change{Kind: gamepad.ChangeUpdated, Snapshot: snapshot(1, 0.5)}
	msg = receive(t, c)
	if msg.Type != "delta" {
		t.Fatalf("first update type = %q, want delta", msg.Type)
	}
	want := &gamepad.DeltaChanges{ID: 1, Position: &gamepad.Vector{X: 0.5, Z: -1}}
	if diff := cmp.Diff(want, msg.Changes, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("delta mismatch (-want +got):\n%s", diff)
	}

	// no visible change: nothing is sent
	changes <- gamepad.Change{Kind: gamepad.ChangeUpdated, Snapshot: snapshot(1, 0.5)}

	changes <- gamepad.Change{Kind: gamepad.ChangeUpdated, Snapshot: snapshot(1, 0.7)}
	msg = receive(t, c)
	if msg.Type != "full" || msg.Data.Position.X != 0.7 {
		t.Fatalf("resync message = %+v", msg)
	}

	changes <- gamepad.Change{Kind: gamepad.ChangeDetached, Snapshot: snapshot(1, 0.7)}
	msg = receive(t, c)
	if msg.Type != "event" || msg.Event != "detached" {
		t.Fatalf("detach message = %+v", msg)
	}
	if _, ok := b.known(1); ok {
		t.Error("detached controller still tracked")
	}
	expectNothing(t, c)
}

func TestSendInitialStateHonoursSelection(t *testing.T) {
	h := startHub(t)

	changes := make(chan gamepad.Change, 2)
	b := NewBroadcaster(h, changes, Options{}, zaptest.NewLogger(t))
	changes <- gamepad.Change{Kind: gamepad.ChangeAttached, Snapshot: snapshot(1, 0)}
	changes <- gamepad.Change{Kind: gamepad.ChangeAttached, Snapshot: snapshot(2, 0)}
	close(changes)
	b.Run(context.Background())

	c := NewClient(h, nil)
	c.Select(2)
	h.Register(c)
	b.SendInitialState(c)

	msg := receive(t, c)
	if msg.Type != "full" || msg.Data.ID != 2 {
		t.Fatalf("initial state = %+v", msg)
	}
	expectNothing(t, c)
}

func TestClientCommands(t *testing.T) {
	h := startHub(t)
	log := zaptest.NewLogger(t)

	m := gamepad.NewManager(gamepad.Options{Tick: time.Millisecond}, log)
	defer m.Close()

	b := NewBroadcaster(h, m.Changes(), Options{}, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	ctrl, err := m.CreateController(gamepad.Descriptor{Name: "pad", Scene: gamepad.NewStaticScene("main")})
	if err != nil {
		t.Fatal(err)
	}

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(h, conn)
		h.Register(client)
		b.SendInitialState(client)
		go client.WritePump()
		go client.ReadPumpWithHandler(m, b)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	readUntil := func(what string, match func(*WSMessage) bool) *WSMessage {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				t.Fatalf("waiting for %s: %v", what, err)
			}
			if match(&msg) {
				return &msg
			}
		}
	}

	if err := conn.WriteJSON(ClientMessage{Type: "select_controller", ID: ctrl.ID()}); err != nil {
		t.Fatal(err)
	}
	readUntil("selection", func(m *WSMessage) bool {
		return m.Type == "controller_selected" && m.ControllerID == ctrl.ID()
	})

	enabled := true
	if err := conn.WriteJSON(ClientMessage{Type: "set_enabled", ID: ctrl.ID(), Enabled: &enabled}); err != nil {
		t.Fatal(err)
	}
	readUntil("enabled state", func(m *WSMessage) bool {
		switch m.Type {
		case "full":
			return m.Data.Enabled
		case "delta":
			return m.Changes.Enabled != nil && *m.Changes.Enabled
		}
		return false
	})
	if !ctrl.Enabled() {
		t.Error("controller not enabled")
	}

	if err := conn.WriteJSON(ClientMessage{Type: "select_controller", ID: 42}); err != nil {
		t.Fatal(err)
	}
	readUntil("error", func(m *WSMessage) bool {
		return m.Type == "error" && m.Error == "unknown controller"
	})
}
