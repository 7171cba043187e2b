package ingest

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
)

// The endpoint and manager log from connection goroutines that can outlive a
// test, so both use a no-op logger here.
func startEndpoint(t *testing.T) (*gamepad.Manager, *websocket.Conn) {
	t.Helper()
	m := gamepad.NewManager(gamepad.Options{Tick: time.Millisecond}, zap.NewNop())
	t.Cleanup(m.Close)

	e := New(m, gamepad.NewStaticScene("remote"), Options{Compress: true}, zap.NewNop())
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return m, conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req Request) Reply {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var r Reply
	if err := conn.ReadJSON(&r); err != nil {
		t.Fatal(err)
	}
	return r
}

func attach(t *testing.T, conn *websocket.Conn, req Request) int {
	t.Helper()
	req.Type = "attach"
	r := roundTrip(t, conn, req)
	if r.Type != "attached" || r.ID == 0 {
		t.Fatalf("attach reply = %+v", r)
	}
	return r.ID
}

func accepted(t *testing.T, r Reply) bool {
	t.Helper()
	if r.Type != "ack" || r.Accepted == nil {
		t.Fatalf("reply = %+v, want ack", r)
	}
	return *r.Accepted
}

func TestAttachAndSubmit(t *testing.T) {
	m, conn := startEndpoint(t)

	id := attach(t, conn, Request{Name: "remote pad", VendorID: 0x045E, ProductID: 0x028E})
	c, ok := m.Controller(id)
	if !ok {
		t.Fatalf("controller %d not registered", id)
	}
	if c.Device().Mapping != "xbox" || c.Scene() == nil {
		t.Errorf("device = %+v, scene = %v", c.Device(), c.Scene())
	}

	r := roundTrip(t, conn, Request{Type: "motion", ID: id, Axes: map[string]float32{"x": 0.5}})
	if !accepted(t, r) {
		t.Error("gamepad motion rejected")
	}

	r = roundTrip(t, conn, Request{Type: "motion", ID: id, Source: "mouse", Axes: map[string]float32{"x": 0.5}})
	if accepted(t, r) {
		t.Error("mouse motion accepted")
	}

	r = roundTrip(t, conn, Request{Type: "key", ID: id, Code: "a", Action: "down"})
	if !accepted(t, r) {
		t.Error("key rejected")
	}

	r = roundTrip(t, conn, Request{Type: "key", ID: id, Code: "a", Action: "sideways"})
	if r.Type != "error" {
		t.Errorf("bad key action reply = %+v", r)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().LastKey != "a" {
		if time.Now().After(deadline) {
			t.Fatalf("key never dispatched: %+v", c.Snapshot())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAttachDisabled(t *testing.T) {
	m, conn := startEndpoint(t)

	off := false
	id := attach(t, conn, Request{Name: "pad", Enabled: &off})
	c, _ := m.Controller(id)

	time.Sleep(10 * time.Millisecond)
	if c.Enabled() {
		t.Fatal("controller enabled despite enabled:false")
	}

	on := true
	r := roundTrip(t, conn, Request{Type: "enable", ID: id, Enabled: &on})
	if !accepted(t, r) {
		t.Fatal("enable rejected")
	}
	deadline := time.Now().Add(2 * time.Second)
	for !c.Enabled() {
		if time.Now().After(deadline) {
			t.Fatal("controller never enabled")
		}
		time.Sleep(time.Millisecond)
	}

	r = roundTrip(t, conn, Request{Type: "enable", ID: id})
	if r.Type != "error" {
		t.Errorf("enable without state reply = %+v", r)
	}
}

func TestRawInput(t *testing.T) {
	m, conn := startEndpoint(t)
	id := attach(t, conn, Request{Name: "stick"})

	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"mapped axis", Request{Type: "axis", Index: 0, Value: 16384}, true},
		{"axis upper bound", Request{Type: "axis", Index: 0, Value: 32767}, true},
		{"axis lower bound", Request{Type: "axis", Index: 0, Value: -32768}, true},
		{"unmapped axis", Request{Type: "axis", Index: 17, Value: 100}, false},
		{"mapped button", Request{Type: "button", Index: 0, Down: true}, true},
		{"unmapped button", Request{Type: "button", Index: 99, Down: true}, false},
		{"hat", Request{Type: "hat", Value: 0x01}, true},
		{"hat all bits", Request{Type: "hat", Value: 15}, true},
		{"hat centered", Request{Type: "hat", Value: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ID = id
			if got := accepted(t, roundTrip(t, conn, tt.req)); got != tt.want {
				t.Errorf("accepted = %v, want %v", got, tt.want)
			}
		})
	}

	// values that do not fit the raw ranges are refused, not wrapped
	outOfRange := []struct {
		name string
		req  Request
	}{
		{"axis above", Request{Type: "axis", Index: 0, Value: 40000}},
		{"axis below", Request{Type: "axis", Index: 0, Value: -32769}},
		{"hat above", Request{Type: "hat", Value: 16}},
		{"hat negative", Request{Type: "hat", Value: -1}},
	}
	for _, tt := range outOfRange {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ID = id
			r := roundTrip(t, conn, tt.req)
			if r.Type != "error" || !strings.Contains(r.Error, "out of range") {
				t.Errorf("reply = %+v, want out of range error", r)
			}
		})
	}

	// a hard right push must never land on the left side
	right := attach(t, conn, Request{Name: "pad", VendorID: 0x045E, ProductID: 0x028E})
	r := roundTrip(t, conn, Request{Type: "axis", ID: right, Index: 0, Value: 32767})
	if !accepted(t, r) {
		t.Fatal("axis rejected")
	}
	r = roundTrip(t, conn, Request{Type: "axis", ID: right, Index: 0, Value: 40000})
	if r.Type != "error" {
		t.Fatalf("reply = %+v", r)
	}
	c, _ := m.Controller(right)
	deadline := time.Now().Add(2 * time.Second)
	for c.Snapshot().Sample.X <= 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sample = %+v, want positive X", c.Snapshot().Sample)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRequestErrors(t *testing.T) {
	_, conn := startEndpoint(t)

	r := roundTrip(t, conn, Request{Type: "motion", ID: 12})
	if r.Type != "error" || r.Error != errUnknownDevice.Error() {
		t.Errorf("unknown device reply = %+v", r)
	}

	r = roundTrip(t, conn, Request{Type: "attach", Class: "wheel"})
	if r.Type != "error" {
		t.Errorf("bad class reply = %+v", r)
	}

	id := attach(t, conn, Request{Name: "pad"})
	r = roundTrip(t, conn, Request{Type: "teleport", ID: id})
	if r.Type != "error" {
		t.Errorf("unknown type reply = %+v", r)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	var bad Reply
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&bad); err != nil {
		t.Fatal(err)
	}
	if bad.Type != "error" || !strings.HasPrefix(bad.Error, "bad request") {
		t.Errorf("malformed reply = %+v", bad)
	}
}

func TestDetachAndDisconnect(t *testing.T) {
	m, conn := startEndpoint(t)

	first := attach(t, conn, Request{Name: "first"})
	second := attach(t, conn, Request{Name: "second"})

	r := roundTrip(t, conn, Request{Type: "detach", ID: first})
	if r.Type != "detached" || r.ID != first {
		t.Fatalf("detach reply = %+v", r)
	}
	if _, ok := m.Controller(first); ok {
		t.Error("detached controller still registered")
	}
	r = roundTrip(t, conn, Request{Type: "motion", ID: first})
	if r.Type != "error" {
		t.Errorf("motion after detach reply = %+v", r)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := m.Controller(second); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("controller survived its connection")
		}
		time.Sleep(time.Millisecond)
	}
}
