package feed

import (
	"sync"

	"betpro/internal/events"
)

// Buffer keeps the most recent events of one account for replay and fans new
// ones out to live subscribers. Event ids are ULIDs, so later events compare
// greater.
type Buffer struct {
	mu       sync.Mutex
	max      int
	events   []events.Event
	watchers map[chan events.Event]struct{}
	closed   bool
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 200
	}
	return &Buffer{
		max:      max,
		watchers: map[chan events.Event]struct{}{},
	}
}

func (b *Buffer) Append(ev events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.events = append(b.events, ev)
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
	for ch := range b.watchers {
		select {
		case ch <- ev:
		default:
			metricDroppedTotal.Inc()
		}
	}
}

// ReplayAfter returns buffered events newer than lastEventID, or all of them
// when lastEventID is empty.
func (b *Buffer) ReplayAfter(lastEventID string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, 0, len(b.events))
	for _, ev := range b.events {
		if lastEventID == "" || ev.ID > lastEventID {
			out = append(out, ev)
		}
	}
	return out
}

func (b *Buffer) Subscribe() chan events.Event {
	ch := make(chan events.Event, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.watchers[ch] = struct{}{}
	return ch
}

func (b *Buffer) Unsubscribe(ch chan events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watchers[ch]; ok {
		delete(b.watchers, ch)
		close(ch)
	}
}

func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.watchers {
		close(ch)
		delete(b.watchers, ch)
	}
}
