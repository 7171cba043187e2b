package gamepad

import (
	"sync"

	"golang.org/x/mobile/exp/f32"
)

type enableRequest int8

const (
	enableUnset enableRequest = iota
	enableOn
	enableOff
)

// entry holds at most one pending update of each kind for a device id.
// Newer submissions overwrite older ones.
type entry struct {
	motion    MotionEvent
	hasMotion bool

	key    KeyEvent
	hasKey bool

	enable enableRequest

	scene    Scene
	hasScene bool

	position    f32.Vec3
	hasPosition bool

	invalidate bool
}

func (e *entry) empty() bool {
	return !e.hasMotion && !e.hasKey && e.enable == enableUnset &&
		!e.hasScene && !e.hasPosition && !e.invalidate
}

// pendingInfo reports which slots of an entry are occupied.
type pendingInfo struct {
	Motion     bool
	Key        bool
	Enable     enableRequest
	Scene      bool
	Position   bool
	Invalidate bool
}

// mailbox is the only channel between producers and the dispatch
// goroutine. All access goes through mu.
type mailbox struct {
	mu      sync.Mutex
	entries map[int]*entry
	wake    chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		entries: make(map[int]*entry),
		wake:    make(chan struct{}, 1),
	}
}

// update applies fn to the entry for id, creating it if needed, and wakes
// the dispatch goroutine.
func (mb *mailbox) update(id int, fn func(e *entry)) {
	mb.mu.Lock()
	e, ok := mb.entries[id]
	if !ok {
		e = &entry{}
		mb.entries[id] = e
	}
	fn(e)
	mb.mu.Unlock()

	select {
	case mb.wake <- struct{}{}:
	default:
	}
}

func (mb *mailbox) submitMotion(id int, ev MotionEvent) {
	mb.update(id, func(e *entry) {
		e.motion = ev
		e.hasMotion = true
	})
}

func (mb *mailbox) submitKey(id int, ev KeyEvent) {
	mb.update(id, func(e *entry) {
		e.key = ev
		e.hasKey = true
	})
}

func (mb *mailbox) requestEnable(id int, enabled bool) {
	mb.update(id, func(e *entry) {
		if enabled {
			e.enable = enableOn
		} else {
			e.enable = enableOff
		}
	})
}

func (mb *mailbox) requestScene(id int, s Scene) {
	mb.update(id, func(e *entry) {
		e.scene = s
		e.hasScene = true
	})
}

func (mb *mailbox) requestPosition(id int, p f32.Vec3) {
	mb.update(id, func(e *entry) {
		e.position = p
		e.hasPosition = true
		e.invalidate = true
	})
}

func (mb *mailbox) requestInvalidate(id int) {
	mb.update(id, func(e *entry) {
		e.invalidate = true
	})
}

func (mb *mailbox) len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.entries)
}

func (mb *mailbox) pending(id int) (pendingInfo, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	e, ok := mb.entries[id]
	if !ok {
		return pendingInfo{}, false
	}
	return pendingInfo{
		Motion:     e.hasMotion,
		Key:        e.hasKey,
		Enable:     e.enable,
		Scene:      e.hasScene,
		Position:   e.hasPosition,
		Invalidate: e.invalidate,
	}, true
}
