package gamepad

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultTick is the delay between dispatch ticks (~60Hz).
const DefaultTick = 16 * time.Millisecond

// worker drains one mailbox on its own goroutine. A worker runs at most
// once; the manager replaces it with a fresh one when it stops.
type worker struct {
	mb          *mailbox
	registry    *registry
	tick        time.Duration
	sensitivity float32
	emit        func(Change)
	log         *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func newWorker(reg *registry, tick time.Duration, sensitivity float32, emit func(Change), log *zap.Logger) *worker {
	return &worker{
		mb:          newMailbox(),
		registry:    reg,
		tick:        tick,
		sensitivity: sensitivity,
		emit:        emit,
		log:         log,
	}
}

func (w *worker) start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

// stop interrupts the goroutine and waits until it has exited.
func (w *worker) stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.flush()

	w.log.Debug("dispatch goroutine running", zap.Duration("tick", w.tick))

	timer := time.NewTimer(w.tick)
	timer.Stop()
	defer timer.Stop()

	for {
		if !w.waitForWork(ctx) {
			return
		}

		touched := w.drain()
		w.settle(touched)

		timer.Reset(w.tick)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// waitForWork blocks while the mailbox is empty. It returns false once ctx
// is cancelled.
func (w *worker) waitForWork(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if w.mb.len() > 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-w.mb.wake:
		}
	}
}

// drain applies every pending entry to its controller and returns the
// controllers that were visited.
func (w *worker) drain() []*Controller {
	w.mb.mu.Lock()
	defer w.mb.mu.Unlock()

	touched := make([]*Controller, 0, len(w.mb.entries))
	for id, e := range w.mb.entries {
		c := w.registry.get(id)
		if c == nil {
			w.log.Debug("dropping updates for unknown controller", zap.Int("id", id))
			delete(w.mb.entries, id)
			continue
		}

		if e.hasMotion && !c.applyMotion(&e.motion) {
			e.hasMotion = false
			e.motion = MotionEvent{}
		}
		if e.hasKey {
			c.applyKey(e.key)
			e.hasKey = false
		}
		applyRequests(c, e)

		if e.empty() {
			delete(w.mb.entries, id)
		}
		touched = append(touched, c)
	}
	return touched
}

// settle integrates the cursor of every visited controller and publishes
// those whose state changed.
func (w *worker) settle(touched []*Controller) {
	for _, c := range touched {
		c.integrate(w.sensitivity)
		if c.takeDirty() {
			w.emit(Change{Kind: ChangeUpdated, Snapshot: c.Snapshot()})
		}
	}
}

// flush applies the lifecycle requests still queued when the worker is
// interrupted. Pending motion and key samples are discarded.
func (w *worker) flush() {
	w.mb.mu.Lock()
	var touched []*Controller
	for id, e := range w.mb.entries {
		if c := w.registry.get(id); c != nil {
			applyRequests(c, e)
			if c.takeDirty() {
				touched = append(touched, c)
			}
		}
		delete(w.mb.entries, id)
	}
	w.mb.mu.Unlock()

	for _, c := range touched {
		w.emit(Change{Kind: ChangeUpdated, Snapshot: c.Snapshot()})
	}
	w.log.Debug("dispatch goroutine stopped")
}

func applyRequests(c *Controller, e *entry) {
	switch e.enable {
	case enableOn:
		c.applyEnabled(true)
	case enableOff:
		c.applyEnabled(false)
	}
	e.enable = enableUnset

	if e.hasScene {
		c.applyScene(e.scene)
		e.scene = nil
		e.hasScene = false
	}
	if e.hasPosition {
		c.applyPosition(e.position)
		e.hasPosition = false
	}
	if e.invalidate {
		c.applyInvalidate()
		e.invalidate = false
	}
}
