// Package progress fans executor progress events out to listeners.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"aisocial/internal/domain"
)

// Notifier receives run progress. Implementations must not block for long.
type Notifier interface {
	Notify(ev domain.ProgressEvent)
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 32

// Hub delivers events to subscribers of the event's owner. A subscriber that
// falls behind loses events instead of stalling the executor.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*subscriber]struct{}
	dropped atomic.Int64
}

type subscriber struct {
	ch chan domain.ProgressEvent
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*subscriber]struct{}{}}
}

// Subscribe registers a listener for ownerID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(ownerID string, buffer int) (<-chan domain.ProgressEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &subscriber{ch: make(chan domain.ProgressEvent, buffer)}

	h.mu.Lock()
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = map[*subscriber]struct{}{}
	}
	h.subs[ownerID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[ownerID], sub)
			if len(h.subs[ownerID]) == 0 {
				delete(h.subs, ownerID)
			}
			close(sub.ch)
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

func (h *Hub) Notify(ev domain.ProgressEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[ev.OwnerID] {
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of listeners for ownerID.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ownerID])
}

// LogNotifier writes every event to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(ev domain.ProgressEvent) {
	var e *zerolog.Event
	switch ev.Level {
	case domain.LevelError:
		e = n.Logger.Warn()
	case domain.LevelSuccess:
		e = n.Logger.Info()
	default:
		e = n.Logger.Debug()
	}
	e.Str("run_id", ev.RunID).
		Str("workflow_id", ev.WorkflowID).
		Str("owner_id", ev.OwnerID).
		Str("stage", string(ev.Stage)).
		Dur("elapsed", ev.Elapsed).
		Msg(ev.Message)
}

// Multi forwards each event to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ev domain.ProgressEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(ev)
		}
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(domain.ProgressEvent) {}
