package feed

import (
	"sync"

	"betpro/internal/events"
)

// Hub routes published events into per-account buffers.
type Hub struct {
	mu      sync.Mutex
	size    int
	buffers map[string]*Buffer
}

func NewHub(size int) *Hub {
	return &Hub{size: size, buffers: map[string]*Buffer{}}
}

func (h *Hub) Publish(ev events.Event) {
	if ev.AccountID == "" {
		return
	}
	buf := h.Buffer(ev.AccountID)
	buf.Append(ev)
	if ev.Type == events.TypeAccountDeleted {
		h.mu.Lock()
		delete(h.buffers, ev.AccountID)
		h.mu.Unlock()
		buf.Close()
	}
}

func (h *Hub) Buffer(accountID string) *Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.buffers[accountID]
	if !ok {
		buf = NewBuffer(h.size)
		h.buffers[accountID] = buf
	}
	return buf
}

func (h *Hub) Close() {
	h.mu.Lock()
	bufs := h.buffers
	h.buffers = map[string]*Buffer{}
	h.mu.Unlock()
	for _, b := range bufs {
		b.Close()
	}
}
