// Package ingest accepts controller input from remote producers over a
// websocket and feeds it into a gamepad.Manager.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/lxzan/gws"
	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
	"github.com/soar/padcursor/internal/joystick"
)

const (
	sessionKey   = "devices"
	pingInterval = 10 * time.Second
	// a producer is dropped after missing two pings
	readTimeout = 2*pingInterval + 5*time.Second
)

// hatMask covers every direction bit a hat can report.
const hatMask = joystick.HatUp | joystick.HatRight | joystick.HatDown | joystick.HatLeft

var errUnknownDevice = errors.New("unknown controller")

// Manager is the part of gamepad.Manager the endpoint drives.
type Manager interface {
	CreateController(gamepad.Descriptor) (*gamepad.Controller, error)
	RemoveController(*gamepad.Controller) error
	SubmitMotion(id int, ev gamepad.MotionEvent) bool
	SubmitKey(id int, ev gamepad.KeyEvent) bool
}

// Options configures the endpoint.
type Options struct {
	// Compress enables permessage-deflate.
	Compress bool
}

type device struct {
	controller *gamepad.Controller
	raw        *joystick.Device
}

// devices holds the controllers one connection attached. It is only touched
// from that connection's read loop.
type devices map[int]*device

// Endpoint is an http.Handler upgrading requests to ingest connections.
type Endpoint struct {
	gws.BuiltinEventHandler

	manager  Manager
	scene    gamepad.Scene
	log      *zap.Logger
	upgrader *gws.Upgrader
}

func New(m Manager, scene gamepad.Scene, opts Options, log *zap.Logger) *Endpoint {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Endpoint{manager: m, scene: scene, log: log}
	e.upgrader = gws.NewUpgrader(e, &gws.ServerOption{
		PermessageDeflate: gws.PermessageDeflate{Enabled: opts.Compress},
		Recovery:          gws.Recovery,
	})
	return e
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := e.upgrader.Upgrade(w, r)
	if err != nil {
		e.log.Warn("ingest upgrade failed", zap.Error(err))
		return
	}
	go socket.ReadLoop()
}

func (e *Endpoint) OnOpen(socket *gws.Conn) {
	socket.Session().Store(sessionKey, devices{})
	_ = socket.SetDeadline(time.Now().Add(readTimeout))
	e.log.Info("producer connected", zap.String("remote", socket.RemoteAddr().String()))
}

func (e *Endpoint) OnClose(socket *gws.Conn, err error) {
	devs := sessionDevices(socket)
	for id, d := range devs {
		if rerr := e.manager.RemoveController(d.controller); rerr != nil && !errors.Is(rerr, gamepad.ErrManagerClosed) {
			e.log.Warn("failed to remove controller", zap.Int("id", id), zap.Error(rerr))
		}
		delete(devs, id)
	}
	e.log.Info("producer disconnected", zap.String("remote", socket.RemoteAddr().String()), zap.NamedError("reason", err))
}

func (e *Endpoint) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(readTimeout))
	_ = socket.WritePong(payload)
}

func (e *Endpoint) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	_ = socket.SetDeadline(time.Now().Add(readTimeout))

	var req Request
	if err := json.Unmarshal(message.Bytes(), &req); err != nil {
		e.reply(socket, failure(0, fmt.Errorf("bad request: %w", err)))
		return
	}
	e.reply(socket, e.handle(sessionDevices(socket), &req))
}

// handle applies one request for the connection owning devs.
func (e *Endpoint) handle(devs devices, req *Request) Reply {
	if req.Type == "attach" {
		return e.attach(devs, req)
	}

	d, ok := devs[req.ID]
	if !ok {
		return failure(req.ID, errUnknownDevice)
	}

	switch req.Type {
	case "motion":
		ev, err := req.motionEvent()
		if err != nil {
			return failure(req.ID, err)
		}
		return ack(req.ID, e.manager.SubmitMotion(req.ID, ev))

	case "key":
		ev, err := req.keyEvent()
		if err != nil {
			return failure(req.ID, err)
		}
		return ack(req.ID, e.manager.SubmitKey(req.ID, ev))

	case "axis":
		if req.Value < math.MinInt16 || req.Value > math.MaxInt16 {
			return failure(req.ID, fmt.Errorf("axis value %d out of range [%d, %d]", req.Value, math.MinInt16, math.MaxInt16))
		}
		if !d.raw.Axis(req.Index, int16(req.Value)) {
			return ack(req.ID, false)
		}
		return ack(req.ID, e.manager.SubmitMotion(req.ID, d.raw.Motion()))

	case "button":
		ev, ok := d.raw.Button(req.Index, req.Down)
		if !ok {
			return ack(req.ID, false)
		}
		return ack(req.ID, e.manager.SubmitKey(req.ID, ev))

	case "hat":
		if req.Value < 0 || req.Value > int32(hatMask) {
			return failure(req.ID, fmt.Errorf("hat value %d out of range [0, %d]", req.Value, hatMask))
		}
		accepted := true
		for _, ev := range d.raw.Hat(uint8(req.Value)) {
			accepted = e.manager.SubmitKey(req.ID, ev) && accepted
		}
		return ack(req.ID, accepted)

	case "enable":
		if req.Enabled == nil {
			return failure(req.ID, errors.New("enable requires \"enabled\""))
		}
		if err := d.controller.SetEnabled(*req.Enabled); err != nil {
			return failure(req.ID, err)
		}
		return ack(req.ID, true)

	case "detach":
		delete(devs, req.ID)
		if err := e.manager.RemoveController(d.controller); err != nil {
			return failure(req.ID, err)
		}
		return Reply{Type: "detached", ID: req.ID}
	}
	return failure(req.ID, fmt.Errorf("unknown request type %q", req.Type))
}

func (e *Endpoint) attach(devs devices, req *Request) Reply {
	class, err := gamepad.ParseClass(req.Class)
	if err != nil {
		return failure(0, err)
	}

	c, err := e.manager.CreateController(gamepad.Descriptor{
		Name:      req.Name,
		VendorID:  req.VendorID,
		ProductID: req.ProductID,
		Class:     class,
		Scene:     e.scene,
	})
	if err != nil {
		return failure(0, err)
	}
	devs[c.ID()] = &device{
		controller: c,
		raw:        joystick.NewDevice(gamepad.GetMapping(req.VendorID, req.ProductID)),
	}

	if req.Enabled == nil || *req.Enabled {
		if err := c.SetEnabled(true); err != nil {
			return failure(c.ID(), err)
		}
	}
	return Reply{Type: "attached", ID: c.ID(), Mapping: c.Device().Mapping}
}

func (e *Endpoint) reply(socket *gws.Conn, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		e.log.Error("error marshaling reply", zap.Error(err))
		return
	}
	if err := socket.WriteMessage(gws.OpcodeText, data); err != nil {
		e.log.Debug("reply failed", zap.Error(err))
	}
}

func sessionDevices(socket *gws.Conn) devices {
	if v, ok := socket.Session().Load(sessionKey); ok {
		return v.(devices)
	}
	return devices{}
}
