package joystick

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/soar/padcursor/internal/gamepad"
)

func TestDeviceAxis(t *testing.T) {
	d := NewDevice(gamepad.GetMapping(0x045E, 0x028E))

	if !d.Axis(0, 32767) {
		t.Fatal("left stick X not mapped")
	}
	if got := d.motion.Centered(gamepad.AxisX); got != 1 {
		t.Errorf("X = %v, want 1", got)
	}

	// inside the deadzone
	d.Axis(1, 1000)
	if got := d.motion.Centered(gamepad.AxisY); got != 0 {
		t.Errorf("Y = %v, want 0 inside the deadzone", got)
	}
	if v, ok := d.motion.Value(gamepad.AxisY); !ok || v != 0 {
		t.Errorf("raw Y = %v, %v, want 0 stored inside the deadzone", v, ok)
	}

	// triggers rest at -32768 on this device
	d.Axis(4, -32768)
	if v, ok := d.motion.Value(gamepad.AxisBrake); !ok || v != 0 {
		t.Errorf("brake at rest = %v, %v", v, ok)
	}

	if d.Axis(17, 100) {
		t.Error("unmapped axis index accepted")
	}
	if !d.motion.Source.Has(gamepad.SourceJoystick) || d.motion.Action != gamepad.MotionMove {
		t.Errorf("motion source/action = %v/%v", d.motion.Source, d.motion.Action)
	}
}

func TestDeviceButton(t *testing.T) {
	d := NewDevice(gamepad.GetMapping(0x054C, 0x05C4))

	ev, ok := d.Button(9, true)
	if !ok {
		t.Fatal("button 9 not mapped")
	}
	want := gamepad.KeyEvent{Source: keySource, Action: gamepad.KeyDown, Code: gamepad.KeyButtonL1}
	if diff := cmp.Diff(want, ev); diff != "" {
		t.Errorf("button mismatch (-want +got):\n%s", diff)
	}

	ev, _ = d.Button(9, false)
	if ev.Action != gamepad.KeyUp {
		t.Errorf("release action = %v", ev.Action)
	}

	if _, ok := d.Button(42, true); ok {
		t.Error("unmapped button accepted")
	}
}

func TestDeviceHat(t *testing.T) {
	d := NewDevice(gamepad.GetMapping(0, 0))

	down := d.Hat(HatUp | HatRight)
	want := []gamepad.KeyEvent{
		{Source: keySource, Action: gamepad.KeyDown, Code: gamepad.KeyDpadUp},
		{Source: keySource, Action: gamepad.KeyDown, Code: gamepad.KeyDpadRight},
	}
	if diff := cmp.Diff(want, down); diff != "" {
		t.Errorf("press mismatch (-want +got):\n%s", diff)
	}

	moved := d.Hat(HatRight | HatDown)
	want = []gamepad.KeyEvent{
		{Source: keySource, Action: gamepad.KeyUp, Code: gamepad.KeyDpadUp},
		{Source: keySource, Action: gamepad.KeyDown, Code: gamepad.KeyDpadDown},
	}
	if diff := cmp.Diff(want, moved); diff != "" {
		t.Errorf("move mismatch (-want +got):\n%s", diff)
	}

	if got := d.Hat(HatRight | HatDown); len(got) != 0 {
		t.Errorf("unchanged hat produced %v", got)
	}
}

func TestNilDeviceIsSafe(t *testing.T) {
	var d *Device
	if d.Axis(0, 1) {
		t.Error("nil device accepted an axis")
	}
	if _, ok := d.Button(0, true); ok {
		t.Error("nil device accepted a button")
	}
	if d.Hat(HatUp) != nil {
		t.Error("nil device produced hat events")
	}
}

func TestDeviceClass(t *testing.T) {
	if c := NewDevice(gamepad.GetMapping(0, 0)).Class(); c != gamepad.ClassJoystick {
		t.Errorf("generic device class = %v", c)
	}
	if c := NewDevice(gamepad.GetMapping(0x045E, 0x028E)).Class(); c != gamepad.ClassGamepad {
		t.Errorf("xbox device class = %v", c)
	}
}
