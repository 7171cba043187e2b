package ingest

import (
	"fmt"
	"strings"

	"github.com/soar/padcursor/internal/gamepad"
)

// Request is a message sent by a remote input producer.
type Request struct {
	Type string `json:"type"`
	ID   int    `json:"id,omitempty"`

	// attach
	Name      string `json:"name,omitempty"`
	VendorID  uint16 `json:"vendorId,omitempty"`
	ProductID uint16 `json:"productId,omitempty"`
	Class     string `json:"class,omitempty"`

	// motion, key
	Source string             `json:"source,omitempty"`
	Action string             `json:"action,omitempty"`
	Axes   map[string]float32 `json:"axes,omitempty"`
	Flat   map[string]float32 `json:"flat,omitempty"`
	Code   string             `json:"code,omitempty"`

	// attach, enable
	Enabled *bool `json:"enabled,omitempty"`

	// axis, button, hat: raw joystick indices run through the device mapping
	Index int32 `json:"index,omitempty"`
	Value int32 `json:"value,omitempty"`
	Down  bool  `json:"down,omitempty"`
}

// Reply is sent back for every request.
type Reply struct {
	Type     string `json:"type"` // "attached", "detached", "ack", "error"
	ID       int    `json:"id,omitempty"`
	Accepted *bool  `json:"accepted,omitempty"`
	Mapping  string `json:"mapping,omitempty"`
	Error    string `json:"error,omitempty"`
}

func ack(id int, accepted bool) Reply {
	return Reply{Type: "ack", ID: id, Accepted: &accepted}
}

func failure(id int, err error) Reply {
	return Reply{Type: "error", ID: id, Error: err.Error()}
}

func parseSource(v string) (gamepad.Source, error) {
	if v == "" {
		return gamepad.SourceGamepad, nil
	}
	return gamepad.ParseSource(v)
}

func (r *Request) motionEvent() (gamepad.MotionEvent, error) {
	src, err := parseSource(r.Source)
	if err != nil {
		return gamepad.MotionEvent{}, err
	}
	ev := gamepad.MotionEvent{Source: src}
	switch strings.ToLower(r.Action) {
	case "", "move":
		ev.Action = gamepad.MotionMove
	default:
		ev.Action = gamepad.MotionOther
	}
	for name, v := range r.Axes {
		a, err := gamepad.ParseAxis(name)
		if err != nil {
			return gamepad.MotionEvent{}, err
		}
		ev.SetAxis(a, v, r.Flat[name])
	}
	return ev, nil
}

func (r *Request) keyEvent() (gamepad.KeyEvent, error) {
	src, err := parseSource(r.Source)
	if err != nil {
		return gamepad.KeyEvent{}, err
	}
	code, err := gamepad.ParseKeyCode(r.Code)
	if err != nil {
		return gamepad.KeyEvent{}, err
	}
	ev := gamepad.KeyEvent{Source: src, Code: code}
	switch strings.ToLower(r.Action) {
	case "down":
		ev.Action = gamepad.KeyDown
	case "up":
		ev.Action = gamepad.KeyUp
	default:
		return gamepad.KeyEvent{}, fmt.Errorf("unknown key action %q", r.Action)
	}
	return ev, nil
}
