package betslip

import (
	"sync"
	"time"

	"betpro/internal/money"
)

// Hub keeps one slip per key. Authenticated slips are keyed by session id,
// anonymous ones by a client-held slip id.
type Hub struct {
	mu           sync.Mutex
	slips        map[string]*hubEntry
	defaultStake money.Amount
	now          func() time.Time
}

type hubEntry struct {
	slip     *Slip
	lastUsed time.Time
}

func NewHub(defaultStake money.Amount) *Hub {
	return &Hub{
		slips:        map[string]*hubEntry{},
		defaultStake: defaultStake,
		now:          time.Now,
	}
}

// Get returns the slip for key, creating an empty one on first use.
func (h *Hub) Get(key string) *Slip {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.slips[key]
	if !ok {
		e = &hubEntry{slip: NewSlip(h.defaultStake)}
		h.slips[key] = e
	}
	e.lastUsed = h.now()
	return e.slip
}

func (h *Hub) Lookup(key string) (*Slip, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.slips[key]
	if !ok {
		return nil, false
	}
	e.lastUsed = h.now()
	return e.slip, true
}

func (h *Hub) Drop(key string) {
	h.mu.Lock()
	delete(h.slips, key)
	h.mu.Unlock()
}

// Adopt moves the selections of slip from onto slip to and drops from.
// Used when an anonymous visitor signs in.
func (h *Hub) Adopt(from, to string) *Slip {
	h.mu.Lock()
	src, ok := h.slips[from]
	if ok {
		delete(h.slips, from)
	}
	h.mu.Unlock()

	dst := h.Get(to)
	if ok {
		dst.adopt(src.slip.Selections())
	}
	return dst
}

// Sweep drops slips unused for longer than idle and returns how many went.
func (h *Hub) Sweep(idle time.Duration) int {
	cutoff := h.now().Add(-idle)
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for key, e := range h.slips {
		if e.lastUsed.Before(cutoff) && e.slip.State() != StateSubmitting {
			delete(h.slips, key)
			n++
		}
	}
	return n
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.slips)
}
