package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soar/padcursor/internal/gamepad"
)

const (
	DefaultFullSync    = 5 * time.Second
	DefaultDeltaResync = 100
)

// Options tunes how often viewers receive full state.
type Options struct {
	// FullSync is the interval of the periodic full sync.
	FullSync time.Duration
	// DeltaResync is the number of deltas after which a controller's full
	// state is sent instead of the next delta.
	DeltaResync int
}

// Broadcaster listens for controller changes and broadcasts them to the hub.
type Broadcaster struct {
	hub     *Hub
	changes <-chan gamepad.Change
	opts    Options
	log     *zap.Logger

	mu     sync.Mutex
	last   map[int]gamepad.Snapshot
	deltas map[int]int
	seq    int64
}

func NewBroadcaster(h *Hub, changes <-chan gamepad.Change, opts Options, log *zap.Logger) *Broadcaster {
	if opts.FullSync <= 0 {
		opts.FullSync = DefaultFullSync
	}
	if opts.DeltaResync <= 0 {
		opts.DeltaResync = DefaultDeltaResync
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		hub:     h,
		changes: changes,
		opts:    opts,
		log:     log,
		last:    make(map[int]gamepad.Snapshot),
		deltas:  make(map[int]int),
	}
}

// Run starts the broadcaster loop. It returns when ctx is cancelled or the
// changes channel is closed.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.opts.FullSync)
	defer ticker.Stop()

	for {
		select {
		case ch, ok := <-b.changes:
			if !ok {
				return
			}
			b.handle(ch)

		case <-ticker.C:
			b.syncAll()

		case <-ctx.Done():
			return
		}
	}
}

func (b *Broadcaster) handle(ch gamepad.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := ch.Snapshot
	id := state.ID

	switch ch.Kind {
	case gamepad.ChangeAttached:
		b.last[id] = state
		b.deltas[id] = 0
		b.seq++
		b.send(NewEventMessage(b.seq, "attached", &state), id)

	case gamepad.ChangeDetached:
		delete(b.last, id)
		delete(b.deltas, id)
		b.seq++
		b.send(NewEventMessage(b.seq, "detached", &state), id)

	default:
		prev, known := b.last[id]
		b.last[id] = state

		if !known {
			b.seq++
			b.send(NewFullMessage(b.seq, &state), id)
			return
		}

		delta := gamepad.ComputeDelta(prev, state)
		if delta.IsEmpty() {
			return
		}

		b.seq++
		b.deltas[id]++

		// Send full sync periodically
		if b.deltas[id] >= b.opts.DeltaResync {
			b.deltas[id] = 0
			b.send(NewFullMessage(b.seq, &state), id)
		} else {
			b.send(NewDeltaMessage(b.seq, delta), id)
		}
	}
}

func (b *Broadcaster) syncAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.ids() {
		state := b.last[id]
		if !state.Connected {
			continue
		}
		b.seq++
		b.send(NewFullMessage(b.seq, &state), id)
	}
}

// SendInitialState sends the full state of every controller c watches.
func (b *Broadcaster) SendInitialState(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, id := range b.ids() {
		if !c.Watches(id) {
			continue
		}
		state := b.last[id]
		b.seq++
		data, err := json.Marshal(NewFullMessage(b.seq, &state))
		if err != nil {
			b.log.Error("error marshaling initial state", zap.Error(err))
			return
		}
		b.hub.SendTo(c, data)
	}
}

// known returns the last state seen for controller id.
func (b *Broadcaster) known(id int) (gamepad.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.last[id]
	return s, ok
}

func (b *Broadcaster) ids() []int {
	ids := make([]int, 0, len(b.last))
	for id := range b.last {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (b *Broadcaster) send(msg *WSMessage, id int) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("error marshaling message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.hub.BroadcastTo(data, id)
}
