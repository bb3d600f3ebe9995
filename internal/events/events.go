package events

import (
	"encoding/json"
	"sync"
	"time"

	"betpro/internal/store"
)

const (
	TypeWagerPlaced    = "wager.placed"
	TypeWagerSettled   = "wager.settled"
	TypeAccountBalance = "account.balance"
	TypeAccountDeleted = "account.deleted"
)

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	AccountID  string          `json:"account_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Publisher receives domain events after the mutation that caused them has
// been persisted. Implementations must not block the caller.
type Publisher interface {
	Publish(ev Event)
}

func New(typ, accountID string, data any) Event {
	ev := Event{
		ID:         store.NewID(),
		Type:       typ,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			ev.Data = b
		}
	}
	return ev
}

type Multi []Publisher

func (m Multi) Publish(ev Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ev)
		}
	}
}

type Nop struct{}

func (Nop) Publish(Event) {}

// Recorder keeps every published event. Useful in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
