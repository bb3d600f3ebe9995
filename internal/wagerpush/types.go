package wagerpush

import (
	"context"
	"time"
)

// Sink delivers one message to an outside system.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Message is a domain event ready for delivery. Key is the account id, so a
// keyed transport keeps each account's events in order.
type Message struct {
	ID   string
	Key  string
	Type string
	Body []byte
	At   time.Time
}

type Config struct {
	Enabled             bool
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
	// EventAllowlist limits which event types leave the process. Empty
	// means every type.
	EventAllowlist []string
}

type pushJob struct {
	Sink    string
	Message Message
	Attempt int
}

func (j pushJob) key() string { return j.Sink }

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}
