package gamepad

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestComputeDelta(t *testing.T) {
	base := Snapshot{
		ID:       3,
		Device:   DeviceInfo{Name: "pad", Class: "gamepad", Mapping: "xbox"},
		Position: Vector{Z: -1},
		Enabled:  true,
	}

	t.Run("unchanged", func(t *testing.T) {
		if d := ComputeDelta(base, base); !d.IsEmpty() {
			t.Errorf("delta of identical snapshots not empty: %+v", d)
		}
	})

	t.Run("below threshold", func(t *testing.T) {
		next := base
		next.Position.Z += analogThreshold / 2
		if d := ComputeDelta(base, next); !d.IsEmpty() {
			t.Errorf("sub-threshold jitter produced a delta: %+v", d)
		}
	})

	t.Run("changed fields only", func(t *testing.T) {
		next := base
		next.Position = Vector{X: 0.5, Z: -1}
		next.Active = true
		next.LastKey = "a"

		active := true
		lastKey := "a"
		want := &DeltaChanges{
			ID:       3,
			Position: &next.Position,
			Active:   &active,
			LastKey:  &lastKey,
		}
		if diff := cmp.Diff(want, ComputeDelta(base, next)); diff != "" {
			t.Errorf("delta mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseRoundTrips(t *testing.T) {
	for _, k := range []KeyCode{KeyButtonA, KeyButtonL2, KeyDpadLeft, KeyButtonMode} {
		got, err := ParseKeyCode(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKeyCode(%q) = %v, %v", k.String(), got, err)
		}
	}
	for _, a := range []Axis{AxisX, AxisRZ, AxisHatY, AxisGas} {
		got, err := ParseAxis(a.String())
		if err != nil || got != a {
			t.Errorf("ParseAxis(%q) = %v, %v", a.String(), got, err)
		}
	}

	src, err := ParseSource("Gamepad | joystick")
	if err != nil {
		t.Fatal(err)
	}
	if src != SourceGamepad|SourceJoystick {
		t.Errorf("ParseSource = %v", src)
	}
	if _, err := ParseSource("gamepad|wheel"); err == nil {
		t.Error("unknown source accepted")
	}
}

func TestCenteredHonoursFlat(t *testing.T) {
	var ev MotionEvent
	ev.SetAxis(AxisX, 0.04, 0.05)
	ev.SetAxis(AxisY, -0.2, 0.05)

	tests := []struct {
		axis Axis
		want float32
	}{
		{AxisX, 0},
		{AxisY, -0.2},
		{AxisZ, 0},
		{AxisNone, 0},
	}
	for _, tt := range tests {
		if got := ev.Centered(tt.axis); got != tt.want {
			t.Errorf("Centered(%v) = %v, want %v", tt.axis, got, tt.want)
		}
	}
}

func TestGetMapping(t *testing.T) {
	tests := []struct {
		vid, pid uint16
		name     string
		twist    Axis
		pedals   bool
	}{
		{0x045E, 0x028E, "xbox", AxisRY, false},
		{0x054C, 0x0268, "playstation", AxisRZ, false},
		{0x04E8, 0xA000, "samsung", AxisRY, false},
		{0x0111, 0x1420, "steelseries", AxisRZ, true},
		{0x1234, 0x5678, "generic", AxisNone, false},
	}
	for _, tt := range tests {
		m := GetMapping(tt.vid, tt.pid)
		if m.Name != tt.name || m.Twist != tt.twist || m.Pedals != tt.pedals {
			t.Errorf("GetMapping(%04X, %04X) = %s twist=%v pedals=%v", tt.vid, tt.pid, m.Name, m.Twist, m.Pedals)
		}
	}
}
