// Package gamepad turns gamepad and joystick input into cursor movement.
//
// Producers (platform input goroutines, network clients) submit motion and
// key events through a Manager. Events are coalesced per device id in a
// mailbox and applied by a single dispatch goroutine, which is the only
// writer of controller state. The dispatch goroutine starts with the first
// controller and stops again when no controller is enabled.
package gamepad

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mobile/exp/f32"
)

var (
	// ErrUnknownController is returned for handles that are not registered.
	ErrUnknownController = errors.New("gamepad: unknown controller")

	// ErrManagerClosed is returned once Close has been called.
	ErrManagerClosed = errors.New("gamepad: manager closed")

	// ErrInvalidShell is returned by CreateController when the resolved
	// depths do not satisfy 0 < near < far.
	ErrInvalidShell = errors.New("gamepad: invalid depth shell")
)

// Options configures a Manager. Zero fields take their defaults.
type Options struct {
	Tick         time.Duration
	Speed        float32
	Near         float32
	Far          float32
	StartDepth   float32
	ChangeBuffer int
}

// DefaultOptions returns the options used for zero fields.
func DefaultOptions() Options {
	return Options{
		Tick:         DefaultTick,
		Speed:        DefaultSpeed,
		Near:         0.1,
		Far:          50,
		StartDepth:   1,
		ChangeBuffer: 64,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Tick <= 0 {
		o.Tick = def.Tick
	}
	if o.Speed <= 0 {
		o.Speed = def.Speed
	}
	if o.Near <= 0 {
		o.Near = def.Near
	}
	if o.Far <= 0 {
		o.Far = def.Far
	}
	if o.StartDepth <= 0 {
		o.StartDepth = def.StartDepth
	}
	if o.ChangeBuffer <= 0 {
		o.ChangeBuffer = def.ChangeBuffer
	}
	return o
}

type ChangeKind uint8

const (
	ChangeAttached ChangeKind = iota
	ChangeUpdated
	ChangeDetached
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAttached:
		return "attached"
	case ChangeDetached:
		return "detached"
	}
	return "updated"
}

// Change is published whenever a controller is attached, detached, or its
// state changes.
type Change struct {
	Kind     ChangeKind
	Snapshot Snapshot
}

// Manager owns the controller registry and the dispatch goroutine.
type Manager struct {
	opts     Options
	log      *zap.Logger
	registry *registry
	changes  chan Change

	mu      sync.RWMutex
	worker  *worker
	running bool
	closed  bool
	nextID  int
}

func NewManager(opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		opts:     opts.withDefaults(),
		log:      log,
		registry: newRegistry(),
	}
	m.changes = make(chan Change, m.opts.ChangeBuffer)
	m.worker = m.newWorker()
	return m
}

func (m *Manager) newWorker() *worker {
	return newWorker(m.registry, m.opts.Tick, Sensitivity(m.opts.Speed), m.emit, m.log)
}

// Changes returns the channel on which controller changes are sent. It is
// closed by Close.
func (m *Manager) Changes() <-chan Change {
	return m.changes
}

func (m *Manager) emit(ch Change) {
	select {
	case m.changes <- ch:
	default:
		// Drop if channel is full to avoid blocking the dispatch goroutine
	}
}

// Running reports whether the dispatch goroutine is running.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Controller returns the controller registered under id.
func (m *Manager) Controller(id int) (*Controller, bool) {
	c := m.registry.get(id)
	return c, c != nil
}

// Controllers returns all registered controllers ordered by id.
func (m *Manager) Controllers() []*Controller {
	return m.registry.all()
}

// Snapshots returns the state of every registered controller.
func (m *Manager) Snapshots() []Snapshot {
	all := m.registry.all()
	out := make([]Snapshot, 0, len(all))
	for _, c := range all {
		out = append(out, c.Snapshot())
	}
	return out
}

// CreateController registers a controller for a newly reported device and
// starts the dispatch goroutine if it is not running.
func (m *Manager) CreateController(d Descriptor) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	shell, err := shellFor(m.opts, d)
	if err != nil {
		return nil, err
	}

	m.nextID++
	c := newController(m, m.nextID, d, shell)
	m.registry.add(c)
	m.startLocked()

	m.log.Info("controller attached",
		zap.Int("id", c.id),
		zap.String("name", d.Name),
		zap.String("mapping", c.mapping.Name))
	m.emit(Change{Kind: ChangeAttached, Snapshot: c.Snapshot()})
	return c, nil
}

// RemoveController deregisters c. The dispatch goroutine is stopped when no
// controllers remain, or when none of the remaining ones is enabled.
func (m *Manager) RemoveController(c *Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(c); err != nil {
		return err
	}

	m.registry.remove(c.id)
	c.requested = false
	m.stopLocked(m.registry.len() == 0)

	m.log.Info("controller detached", zap.Int("id", c.id))
	m.emit(Change{Kind: ChangeDetached, Snapshot: c.Snapshot()})
	return nil
}

// SetEnabled queues an enable or disable request for c. Enabling starts the
// dispatch goroutine; disabling the last enabled controller stops it.
func (m *Manager) SetEnabled(c *Controller, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(c); err != nil {
		return err
	}

	switch {
	case enabled && !c.requested:
		c.requested = true
		m.startLocked()
		m.worker.mb.requestEnable(c.id, true)
	case !enabled && c.requested:
		c.requested = false
		m.worker.mb.requestEnable(c.id, false)
		m.stopLocked(false)
	}
	return nil
}

// RebindScene queues a scene binding for c. While the dispatch goroutine is
// stopped the binding is applied directly.
func (m *Manager) RebindScene(c *Controller, s Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(c); err != nil {
		return err
	}

	if !m.running {
		c.applyScene(s)
		m.publishLocked(c)
		return nil
	}
	m.worker.mb.requestScene(c.id, s)
	return nil
}

// RequestInvalidate queues an invalidate for c. It does nothing while the
// dispatch goroutine is stopped.
func (m *Manager) RequestInvalidate(c *Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(c); err != nil {
		return err
	}

	if m.running {
		m.worker.mb.requestInvalidate(c.id)
	}
	return nil
}

// SetPosition queues an explicit cursor position for c followed by an
// invalidate. While the dispatch goroutine is stopped the position is
// applied directly.
func (m *Manager) SetPosition(c *Controller, p f32.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(c); err != nil {
		return err
	}

	if !m.running {
		c.applyPosition(p)
		m.publishLocked(c)
		return nil
	}
	m.worker.mb.requestPosition(c.id, p)
	return nil
}

// SubmitMotion queues a motion sample for the device id. Only events from
// gamepad or joystick sources are accepted. A newer sample replaces one the
// dispatch goroutine has not yet seen.
func (m *Manager) SubmitMotion(id int, ev MotionEvent) bool {
	if !fromController(ev.Source) {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false
	}
	m.worker.mb.submitMotion(id, ev)
	return true
}

// SubmitKey queues a key event for the device id. The source filter is the
// same as for SubmitMotion.
func (m *Manager) SubmitKey(id int, ev KeyEvent) bool {
	if !fromController(ev.Source) {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false
	}
	m.worker.mb.submitKey(id, ev)
	return true
}

// Close stops the dispatch goroutine and closes the Changes channel.
// Registered controllers are kept so their final state can still be read.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.stopLocked(true)
	m.closed = true
	close(m.changes)
}

func (m *Manager) checkLocked(c *Controller) error {
	if m.closed {
		return ErrManagerClosed
	}
	if c == nil || m.registry.get(c.id) != c {
		return ErrUnknownController
	}
	return nil
}

func (m *Manager) startLocked() {
	if m.running {
		return
	}
	m.worker.start()
	m.running = true
	m.log.Info("dispatch started")
}

// stopLocked retires the running worker, unless force is false and some
// controller is still enabled. The retired worker is replaced by a fresh one
// for the next start.
func (m *Manager) stopLocked(force bool) {
	if !m.running {
		return
	}
	if !force {
		for _, c := range m.registry.all() {
			if c.requested {
				return
			}
		}
	}

	m.worker.stop()
	m.worker = m.newWorker()
	m.running = false
	m.log.Info("dispatch stopped", zap.Bool("forced", force))
}

// publishLocked emits c's state after a direct apply. Only valid while the
// dispatch goroutine is stopped.
func (m *Manager) publishLocked(c *Controller) {
	if c.takeDirty() {
		m.emit(Change{Kind: ChangeUpdated, Snapshot: c.Snapshot()})
	}
}

// pending reports the queued slots for id. Used by tests.
func (m *Manager) pending(id int) (pendingInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.worker.mb.pending(id)
}
