// Package joystick translates raw joystick indices (axis, button and hat
// numbers as reported by the platform) into gamepad events.
package joystick

import "github.com/soar/padcursor/internal/gamepad"

// Deadzone is the flat range reported for every mapped axis.
const Deadzone = 0.05

// Hat bits as reported by SDL.
const (
	HatUp    uint8 = 0x01
	HatRight uint8 = 0x02
	HatDown  uint8 = 0x04
	HatLeft  uint8 = 0x08
)

const (
	motionSource = gamepad.SourceJoystick | gamepad.SourceGamepad
	keySource    = gamepad.SourceGamepad
)

// Device translates raw indices of one joystick into gamepad events.
// The latest value of every axis is kept so each submission carries the
// whole stick state. A nil *Device ignores all input.
type Device struct {
	mapping *gamepad.DeviceMapping
	motion  gamepad.MotionEvent
	hat     uint8
}

func NewDevice(m *gamepad.DeviceMapping) *Device {
	d := &Device{mapping: m}
	d.motion.Source = motionSource
	d.motion.Action = gamepad.MotionMove
	for _, am := range m.Axes {
		d.motion.SetAxis(am.Target, 0, Deadzone)
	}
	return d
}

func (d *Device) Mapping() *gamepad.DeviceMapping { return d.mapping }

// Class reports joystick for devices without a known layout.
func (d *Device) Class() gamepad.Class {
	if d.mapping.Name == "generic" {
		return gamepad.ClassJoystick
	}
	return gamepad.ClassGamepad
}

// Motion returns the accumulated motion state.
func (d *Device) Motion() gamepad.MotionEvent { return d.motion }

// Axis records a raw axis value. It returns false for unmapped indices.
func (d *Device) Axis(index int32, raw int16) bool {
	if d == nil {
		return false
	}
	for _, am := range d.mapping.Axes {
		if am.Index != index {
			continue
		}
		var val float64
		if am.IsTrigger {
			val = gamepad.NormalizeTrigger(raw, am.RawMin, am.RawMax)
		} else {
			val = gamepad.ApplyDeadzone(gamepad.NormalizeAxis(raw), Deadzone)
			if am.Invert {
				val = -val
			}
		}
		d.motion.SetAxis(am.Target, float32(val), Deadzone)
		return true
	}
	return false
}

// Button maps a raw button index to a key event.
func (d *Device) Button(index int32, down bool) (gamepad.KeyEvent, bool) {
	if d == nil {
		return gamepad.KeyEvent{}, false
	}
	for _, bm := range d.mapping.Buttons {
		if bm.Index != index {
			continue
		}
		ev := gamepad.KeyEvent{Source: keySource, Code: bm.Target, Action: gamepad.KeyUp}
		if down {
			ev.Action = gamepad.KeyDown
		}
		return ev, true
	}
	return gamepad.KeyEvent{}, false
}

var hatDirections = []struct {
	bit  uint8
	code gamepad.KeyCode
}{
	{HatUp, gamepad.KeyDpadUp},
	{HatRight, gamepad.KeyDpadRight},
	{HatDown, gamepad.KeyDpadDown},
	{HatLeft, gamepad.KeyDpadLeft},
}

// Hat turns a new hat value into D-pad key events: releases first, then
// presses.
func (d *Device) Hat(value uint8) []gamepad.KeyEvent {
	if d == nil || !d.mapping.HasHat {
		return nil
	}
	prev := d.hat
	d.hat = value

	var events []gamepad.KeyEvent
	for _, hd := range hatDirections {
		if prev&hd.bit != 0 && value&hd.bit == 0 {
			events = append(events, gamepad.KeyEvent{Source: keySource, Action: gamepad.KeyUp, Code: hd.code})
		}
	}
	for _, hd := range hatDirections {
		if prev&hd.bit == 0 && value&hd.bit != 0 {
			events = append(events, gamepad.KeyEvent{Source: keySource, Action: gamepad.KeyDown, Code: hd.code})
		}
	}
	return events
}
