package gamepad

import (
	"fmt"
	"sync"

	"golang.org/x/mobile/exp/f32"
)

// Scene is the part of a scene graph a controller needs.
type Scene interface {
	Name() string
	// HeadMatrix returns the model matrix of the main camera rig's head.
	HeadMatrix() f32.Mat4
}

// Cursor receives the positions a controller settles on. SetPosition is
// called from the dispatch goroutine and must not call back into the
// Manager.
type Cursor interface {
	SetPosition(x, y, z float32)
}

// StaticScene is a Scene whose head never moves.
type StaticScene struct {
	Label string
	Head  f32.Mat4
}

// NewStaticScene returns a scene with an identity head transform.
func NewStaticScene(label string) *StaticScene {
	return &StaticScene{Label: label, Head: IdentityHead()}
}

func (s *StaticScene) Name() string { return s.Label }

func (s *StaticScene) HeadMatrix() f32.Mat4 { return s.Head }

// Descriptor describes a device reported by the platform input layer.
type Descriptor struct {
	Name      string
	VendorID  uint16
	ProductID uint16
	Class     Class

	// Scene is the initially bound scene. It may be nil.
	Scene Scene
	// Cursor is optional.
	Cursor Cursor

	// NearDepth and FarDepth override the manager defaults when non-zero.
	NearDepth float32
	FarDepth  float32
}

// Controller is the handle returned by Manager.CreateController.
//
// Its exported mutators only queue work for the dispatch goroutine; state
// is changed exclusively by the apply methods, which that goroutine calls.
type Controller struct {
	id      int
	manager *Manager
	device  DeviceInfo
	mapping *DeviceMapping
	cursor  Cursor
	shell   Shell

	// guarded by manager.mu
	requested bool

	// owned by the dispatch goroutine
	dpad      KeyCode
	brakeDown bool
	gasDown   bool
	dirty     bool

	mu         sync.RWMutex
	position   f32.Vec3
	sample     Sample
	enabled    bool
	connected  bool
	active     bool
	scene      Scene
	lastKey    KeyCode
	generation uint64
}

// shellFor resolves the depth shell of d against the manager defaults.
func shellFor(opts Options, d Descriptor) (Shell, error) {
	shell := Shell{Near: opts.Near, Far: opts.Far}
	if d.NearDepth > 0 {
		shell.Near = d.NearDepth
	}
	if d.FarDepth > 0 {
		shell.Far = d.FarDepth
	}
	if d.NearDepth < 0 || d.FarDepth < 0 || shell.Near <= 0 || shell.Near >= shell.Far {
		return Shell{}, fmt.Errorf("%w: near %v, far %v", ErrInvalidShell, shell.Near, shell.Far)
	}
	return shell, nil
}

func newController(m *Manager, id int, d Descriptor, shell Shell) *Controller {
	mapping := GetMapping(d.VendorID, d.ProductID)
	start := m.opts.StartDepth
	if start < shell.Near {
		start = shell.Near
	} else if start > shell.Far {
		start = shell.Far
	}

	return &Controller{
		id:      id,
		manager: m,
		device: DeviceInfo{
			Name:      d.Name,
			VendorID:  d.VendorID,
			ProductID: d.ProductID,
			Class:     d.Class.String(),
			Mapping:   mapping.Name,
		},
		mapping:  mapping,
		cursor:   d.Cursor,
		shell:    shell,
		position: f32.Vec3{0, 0, -start},
		scene:    d.Scene,
	}
}

// ID returns the device id the controller was registered under.
func (c *Controller) ID() int { return c.id }

// Device returns the static description of the controller's device.
func (c *Controller) Device() DeviceInfo { return c.device }

// Shell returns the bounds the controller's cursor is kept within.
func (c *Controller) Shell() Shell { return c.shell }

// SetEnabled queues an enable or disable request.
func (c *Controller) SetEnabled(enabled bool) error {
	return c.manager.SetEnabled(c, enabled)
}

// RebindScene queues a new scene binding.
func (c *Controller) RebindScene(s Scene) error {
	return c.manager.RebindScene(c, s)
}

// RequestInvalidate asks the dispatch goroutine to republish the
// controller's state.
func (c *Controller) RequestInvalidate() error {
	return c.manager.RequestInvalidate(c)
}

// SetPosition queues an explicit cursor position.
func (c *Controller) SetPosition(x, y, z float32) error {
	return c.manager.SetPosition(c, f32.Vec3{x, y, z})
}

// Position returns the current cursor position.
func (c *Controller) Position() f32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

// Enabled reports whether an enable request has been applied.
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Active reports whether an active button is held.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Scene returns the bound scene, which may be nil.
func (c *Controller) Scene() Scene {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scene
}

// Snapshot returns a copy of the controller's state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		ID:         c.id,
		Device:     c.device,
		Position:   Vector{X: c.position[0], Y: c.position[1], Z: c.position[2]},
		Sample:     c.sample,
		Enabled:    c.enabled,
		Connected:  c.connected,
		Active:     c.active,
		Generation: c.generation,
	}
	if c.scene != nil {
		s.Scene = c.scene.Name()
	}
	if c.lastKey != KeyUnknown {
		s.LastKey = c.lastKey.String()
	}
	return s
}

// applyMotion updates the sample from a motion event. It returns false when
// the event carries no displacement and should not be kept.
func (c *Controller) applyMotion(ev *MotionEvent) bool {
	if ev.Action != MotionMove {
		c.setSample(Sample{})
		return false
	}

	x := ev.Centered(AxisX)
	if x == 0 {
		x = ev.Centered(AxisHatX)
	}
	y := ev.Centered(AxisY)
	if y == 0 {
		y = ev.Centered(AxisHatY)
	}

	var twist float32
	if c.mapping.Twist != AxisNone {
		twist = ev.Centered(c.mapping.Twist)
	}

	if c.mapping.Pedals {
		c.applyPedal(ev.Centered(AxisBrake), &c.brakeDown, KeyButtonL2)
		c.applyPedal(ev.Centered(AxisGas), &c.gasDown, KeyButtonR2)
	}

	s := Sample{X: x, Y: -y, Twist: twist}
	c.setSample(s)
	return !s.IsZero()
}

func (c *Controller) applyPedal(v float32, down *bool, code KeyCode) {
	if v != 0 && !*down {
		*down = true
		c.applyKey(KeyEvent{Source: SourceJoystick, Action: KeyDown, Code: code})
	} else if v == 0 && *down {
		*down = false
		c.applyKey(KeyEvent{Source: SourceJoystick, Action: KeyUp, Code: code})
	}
}

func (c *Controller) applyKey(ev KeyEvent) {
	if IsActiveButton(ev.Code) {
		c.mu.Lock()
		active := ev.Action == KeyDown
		if c.active != active {
			c.active = active
			c.dirty = true
		}
		if c.lastKey != ev.Code {
			c.lastKey = ev.Code
			c.dirty = true
		}
		c.mu.Unlock()
		return
	}

	switch ev.Code {
	case KeyDpadLeft, KeyDpadRight, KeyDpadUp, KeyDpadDown:
	default:
		return
	}

	s := c.currentSample()
	switch ev.Action {
	case KeyDown:
		if c.dpad == ev.Code {
			return
		}
		c.dpad = ev.Code
		switch ev.Code {
		case KeyDpadLeft:
			s.X = -1
		case KeyDpadRight:
			s.X = 1
		case KeyDpadUp:
			s.Y = 1
		case KeyDpadDown:
			s.Y = -1
		}
	case KeyUp:
		if c.dpad == ev.Code {
			c.dpad = KeyUnknown
		}
		switch ev.Code {
		case KeyDpadLeft, KeyDpadRight:
			s.X = 0
		case KeyDpadUp, KeyDpadDown:
			s.Y = 0
		}
	}
	c.setSample(s)
}

func (c *Controller) currentSample() Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sample
}

func (c *Controller) setSample(s Sample) {
	c.mu.Lock()
	if c.sample != s {
		c.sample = s
		c.dirty = true
	}
	c.mu.Unlock()
}

func (c *Controller) applyEnabled(enabled bool) {
	c.mu.Lock()
	if c.enabled != enabled || c.connected != enabled {
		c.enabled = enabled
		c.connected = enabled
		c.dirty = true
	}
	c.mu.Unlock()
}

func (c *Controller) applyScene(s Scene) {
	c.mu.Lock()
	c.scene = s
	c.dirty = true
	c.mu.Unlock()
}

func (c *Controller) applyPosition(p f32.Vec3) {
	c.mu.Lock()
	c.position = p
	c.dirty = true
	c.mu.Unlock()

	if c.cursor != nil {
		c.cursor.SetPosition(p[0], p[1], p[2])
	}
}

func (c *Controller) applyInvalidate() {
	c.mu.Lock()
	c.generation++
	c.dirty = true
	c.mu.Unlock()
}

// integrate advances the cursor by one tick of the current sample. Disabled
// controllers and controllers without a scene do not move.
func (c *Controller) integrate(sensitivity float32) {
	c.mu.RLock()
	scene, enabled, pos, s := c.scene, c.enabled, c.position, c.sample
	c.mu.RUnlock()

	if !enabled || scene == nil || s.IsZero() {
		return
	}

	head := scene.HeadMatrix()
	next := Integrate(pos, s, &head, sensitivity, c.shell)
	if next == pos {
		return
	}
	c.applyPosition(next)
}

// takeDirty reports and clears whether state changed since the last call.
func (c *Controller) takeDirty() bool {
	d := c.dirty
	c.dirty = false
	return d
}
