package gamepad

import "math"

type Vector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type DeviceInfo struct {
	Name      string `json:"name"`
	VendorID  uint16 `json:"vendorId"`
	ProductID uint16 `json:"productId"`
	Class     string `json:"class"`
	Mapping   string `json:"mapping"`
}

// Snapshot is a copy of a controller's state taken under its lock.
type Snapshot struct {
	ID         int        `json:"id"`
	Device     DeviceInfo `json:"device"`
	Position   Vector     `json:"position"`
	Sample     Sample     `json:"sample"`
	Enabled    bool       `json:"enabled"`
	Connected  bool       `json:"connected"`
	Active     bool       `json:"active"`
	Scene      string     `json:"scene,omitempty"`
	LastKey    string     `json:"lastKey,omitempty"`
	Generation uint64     `json:"generation"`
}

type DeltaChanges struct {
	ID         int         `json:"id"`
	Device     *DeviceInfo `json:"device,omitempty"`
	Position   *Vector     `json:"position,omitempty"`
	Sample     *Sample     `json:"sample,omitempty"`
	Enabled    *bool       `json:"enabled,omitempty"`
	Connected  *bool       `json:"connected,omitempty"`
	Active     *bool       `json:"active,omitempty"`
	Scene      *string     `json:"scene,omitempty"`
	LastKey    *string     `json:"lastKey,omitempty"`
	Generation *uint64     `json:"generation,omitempty"`
}

func (d *DeltaChanges) IsEmpty() bool {
	return d.Position == nil &&
		d.Sample == nil &&
		d.Enabled == nil &&
		d.Connected == nil &&
		d.Active == nil &&
		d.Scene == nil &&
		d.LastKey == nil &&
		d.Generation == nil &&
		d.Device == nil
}

const analogThreshold = 0.0001

func floatEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < analogThreshold
}

func vectorEqual(a, b Vector) bool {
	return floatEqual(a.X, b.X) && floatEqual(a.Y, b.Y) && floatEqual(a.Z, b.Z)
}

func ComputeDelta(old, new_ Snapshot) *DeltaChanges {
	d := &DeltaChanges{ID: new_.ID}

	if old.Device != new_.Device {
		d.Device = &new_.Device
	}
	if !vectorEqual(old.Position, new_.Position) {
		d.Position = &new_.Position
	}
	if !floatEqual(old.Sample.X, new_.Sample.X) ||
		!floatEqual(old.Sample.Y, new_.Sample.Y) ||
		!floatEqual(old.Sample.Twist, new_.Sample.Twist) {
		d.Sample = &new_.Sample
	}
	if old.Enabled != new_.Enabled {
		d.Enabled = &new_.Enabled
	}
	if old.Connected != new_.Connected {
		d.Connected = &new_.Connected
	}
	if old.Active != new_.Active {
		d.Active = &new_.Active
	}
	if old.Scene != new_.Scene {
		d.Scene = &new_.Scene
	}
	if old.LastKey != new_.LastKey {
		d.LastKey = &new_.LastKey
	}
	if old.Generation != new_.Generation {
		d.Generation = &new_.Generation
	}

	return d
}
