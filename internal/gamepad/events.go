package gamepad

import (
	"fmt"
	"strings"
)

// Source is a bit set describing which kind of hardware produced an event.
type Source uint32

const (
	SourceKeyboard Source = 1 << iota
	SourceDpad
	SourceGamepad
	SourceJoystick
	SourceMouse
	SourceTouchscreen
)

var sourceNames = []struct {
	s    Source
	name string
}{
	{SourceKeyboard, "keyboard"},
	{SourceDpad, "dpad"},
	{SourceGamepad, "gamepad"},
	{SourceJoystick, "joystick"},
	{SourceMouse, "mouse"},
	{SourceTouchscreen, "touchscreen"},
}

// Has reports whether every bit of o is set in s.
func (s Source) Has(o Source) bool {
	return o != 0 && s&o == o
}

func (s Source) String() string {
	var parts []string
	for _, n := range sourceNames {
		if s.Has(n.s) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseSource parses a "|" separated list of source names, e.g. "gamepad|joystick".
func ParseSource(v string) (Source, error) {
	var s Source
	for _, part := range strings.Split(v, "|") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		found := false
		for _, n := range sourceNames {
			if n.name == part {
				s |= n.s
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown input source %q", part)
		}
	}
	return s, nil
}

// fromController reports whether s is a source the device manager accepts.
func fromController(s Source) bool {
	return s.Has(SourceGamepad) || s.Has(SourceJoystick)
}

// Class is the physical class of an attached device.
type Class uint8

const (
	ClassGamepad Class = iota
	ClassJoystick
)

func (c Class) String() string {
	if c == ClassJoystick {
		return "joystick"
	}
	return "gamepad"
}

// ParseClass accepts "gamepad" and "joystick". An empty string means gamepad.
func ParseClass(v string) (Class, error) {
	switch strings.ToLower(v) {
	case "", "gamepad":
		return ClassGamepad, nil
	case "joystick":
		return ClassJoystick, nil
	}
	return ClassGamepad, fmt.Errorf("unknown device class %q", v)
}

// Axis identifies one analog channel of a motion event.
type Axis uint8

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
	AxisRX
	AxisRY
	AxisRZ
	AxisHatX
	AxisHatY
	AxisBrake
	AxisGas
	axisCount
)

var axisNames = [axisCount]string{
	AxisNone:  "none",
	AxisX:     "x",
	AxisY:     "y",
	AxisZ:     "z",
	AxisRX:    "rx",
	AxisRY:    "ry",
	AxisRZ:    "rz",
	AxisHatX:  "hat_x",
	AxisHatY:  "hat_y",
	AxisBrake: "brake",
	AxisGas:   "gas",
}

func (a Axis) String() string {
	if a < axisCount {
		return axisNames[a]
	}
	return fmt.Sprintf("axis(%d)", uint8(a))
}

// ParseAxis maps an axis name as produced by Axis.String back to the axis.
func ParseAxis(v string) (Axis, error) {
	v = strings.ToLower(v)
	for a := AxisX; a < axisCount; a++ {
		if axisNames[a] == v {
			return a, nil
		}
	}
	return AxisNone, fmt.Errorf("unknown axis %q", v)
}

// MotionAction distinguishes continuous movement from other pointer actions.
type MotionAction uint8

const (
	MotionMove MotionAction = iota
	MotionOther
)

// MotionEvent is one analog sample. Axes that were never set have no motion
// range and always read as centred.
type MotionEvent struct {
	Source Source
	Action MotionAction

	values  [axisCount]float32
	flat    [axisCount]float32
	present uint32
}

// SetAxis records the value of an axis together with its flat (deadzone)
// range.
func (e *MotionEvent) SetAxis(a Axis, value, flat float32) {
	if a == AxisNone || a >= axisCount {
		return
	}
	e.values[a] = value
	e.flat[a] = flat
	e.present |= 1 << a
}

// Value returns the raw value of an axis and whether the axis was set.
func (e *MotionEvent) Value(a Axis) (float32, bool) {
	if a == AxisNone || a >= axisCount || e.present&(1<<a) == 0 {
		return 0, false
	}
	return e.values[a], true
}

// Centered returns the axis value, or zero when the axis is absent or
// its magnitude is inside the flat range.
func (e *MotionEvent) Centered(a Axis) float32 {
	v, ok := e.Value(a)
	if !ok {
		return 0
	}
	f := e.flat[a]
	if v > f || v < -f {
		return v
	}
	return 0
}

// KeyAction is the direction of a key event.
type KeyAction uint8

const (
	KeyDown KeyAction = iota
	KeyUp
)

func (a KeyAction) String() string {
	if a == KeyUp {
		return "up"
	}
	return "down"
}

// KeyEvent is a single button transition.
type KeyEvent struct {
	Source Source
	Action KeyAction
	Code   KeyCode
}

// KeyCode identifies a controller button.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyButtonA
	KeyButtonB
	KeyButtonX
	KeyButtonY
	KeyButtonZ
	KeyButtonL1
	KeyButtonR1
	KeyButtonL2
	KeyButtonR2
	KeyButtonThumbL
	KeyButtonThumbR
	KeyButtonStart
	KeyButtonSelect
	KeyButtonMode
	KeyDpadUp
	KeyDpadDown
	KeyDpadLeft
	KeyDpadRight
	keyCodeCount
)

var keyNames = [keyCodeCount]string{
	KeyUnknown:      "unknown",
	KeyButtonA:      "a",
	KeyButtonB:      "b",
	KeyButtonX:      "x",
	KeyButtonY:      "y",
	KeyButtonZ:      "z",
	KeyButtonL1:     "l1",
	KeyButtonR1:     "r1",
	KeyButtonL2:     "l2",
	KeyButtonR2:     "r2",
	KeyButtonThumbL: "thumb_l",
	KeyButtonThumbR: "thumb_r",
	KeyButtonStart:  "start",
	KeyButtonSelect: "select",
	KeyButtonMode:   "mode",
	KeyDpadUp:       "dpad_up",
	KeyDpadDown:     "dpad_down",
	KeyDpadLeft:     "dpad_left",
	KeyDpadRight:    "dpad_right",
}

func (k KeyCode) String() string {
	if k < keyCodeCount {
		return keyNames[k]
	}
	return fmt.Sprintf("key(%d)", uint16(k))
}

// ParseKeyCode maps a key name as produced by KeyCode.String back to the
// code.
func ParseKeyCode(v string) (KeyCode, error) {
	v = strings.ToLower(v)
	for k := KeyButtonA; k < keyCodeCount; k++ {
		if keyNames[k] == v {
			return k, nil
		}
	}
	return KeyUnknown, fmt.Errorf("unknown key code %q", v)
}

// activeButtons are the buttons whose press and release toggle a
// controller's active (selection) state.
var activeButtons = map[KeyCode]struct{}{
	KeyButtonA:  {},
	KeyButtonB:  {},
	KeyButtonX:  {},
	KeyButtonY:  {},
	KeyButtonZ:  {},
	KeyButtonL1: {},
	KeyButtonR1: {},
	KeyButtonL2: {},
	KeyButtonR2: {},
}

// IsActiveButton reports whether k toggles a controller's active state.
func IsActiveButton(k KeyCode) bool {
	_, ok := activeButtons[k]
	return ok
}
