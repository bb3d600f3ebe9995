package wagerpush

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"betpro/internal/events"

	"github.com/rs/zerolog/log"
)

var errCircuitOpen = errors.New("circuit_open")

// Manager fans domain events out to every sink through a bounded queue.
// Publish never blocks: when the queue is full the event is dropped and
// counted. Failed sends are retried with exponential backoff and a sink that
// keeps failing is skipped for a while.
type Manager struct {
	cfg   Config
	sinks map[string]Sink
	allow map[string]bool

	dispatchCh chan pushJob
	retryQ     *retryQueue
	done       chan struct{}

	mu           sync.Mutex
	started      bool
	breakerByKey map[string]breakerState
}

func NewManager(cfg Config, sinks ...Sink) *Manager {
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 2048
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	m := &Manager{
		cfg:          cfg,
		sinks:        map[string]Sink{},
		dispatchCh:   make(chan pushJob, cfg.DispatchBuffer),
		done:         make(chan struct{}),
		breakerByKey: map[string]breakerState{},
	}
	for _, s := range sinks {
		if s != nil {
			m.sinks[s.Name()] = s
		}
	}
	if len(cfg.EventAllowlist) > 0 {
		m.allow = map[string]bool{}
		for _, t := range cfg.EventAllowlist {
			m.allow[t] = true
		}
	}
	m.retryQ = newRetryQueue(m.dispatchCh, m.done)
	return m
}

func (m *Manager) Start(ctx context.Context) error {
	if !m.cfg.Enabled || len(m.sinks) == 0 {
		return nil
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	log.Info().Int("workers", m.cfg.Workers).Int("sinks", len(m.sinks)).Msg("wager push started")
	return nil
}

func (m *Manager) Publish(ev events.Event) {
	if !m.cfg.Enabled || len(m.sinks) == 0 {
		return
	}
	if m.allow != nil && !m.allow[ev.Type] {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event_type", ev.Type).Msg("encode event for push failed")
		return
	}
	msg := Message{ID: ev.ID, Key: ev.AccountID, Type: ev.Type, Body: body, At: ev.OccurredAt}
	for name := range m.sinks {
		if !m.enqueue(pushJob{Sink: name, Message: msg}) {
			metricPushTotal.WithLabelValues(name, "dropped").Inc()
		}
	}
}

func (m *Manager) enqueue(job pushJob) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- job:
		metricQueueLen.Set(float64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case job := <-m.dispatchCh:
			metricQueueLen.Set(float64(len(m.dispatchCh)))
			m.processJob(ctx, job)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job pushJob) {
	sink := m.sinks[job.Sink]
	if sink == nil {
		metricPushTotal.WithLabelValues(job.Sink, "dropped").Inc()
		return
	}
	if err := m.beforeSend(job.key(), time.Now()); err != nil {
		metricPushTotal.WithLabelValues(job.Sink, "circuit_open").Inc()
		m.retryOrDrop(job, err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	err := sink.Send(sendCtx, job.Message)
	cancel()
	if err != nil {
		metricPushTotal.WithLabelValues(job.Sink, "failed").Inc()
		m.afterFailure(job.key(), time.Now())
		m.retryOrDrop(job, err)
		return
	}
	metricPushTotal.WithLabelValues(job.Sink, "sent").Inc()
	m.afterSuccess(job.key())
}

func (m *Manager) retryOrDrop(job pushJob, err error) bool {
	if job.Attempt >= m.cfg.RetryMax {
		metricPushTotal.WithLabelValues(job.Sink, "retry_dropped").Inc()
		log.Warn().Err(err).
			Str("sink", job.Sink).
			Str("event_id", job.Message.ID).
			Int("attempts", job.Attempt+1).
			Msg("wager push dropped")
		return false
	}
	job.Attempt++
	metricPushTotal.WithLabelValues(job.Sink, "retry").Inc()
	delay := m.cfg.RetryBase * time.Duration(1<<(job.Attempt-1))
	m.retryQ.Enqueue(job, delay)
	return true
}

func (m *Manager) beforeSend(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	if !state.openUntil.IsZero() && now.Before(state.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.breakerByKey[key]
	state.consecutiveFailures++
	if state.consecutiveFailures >= m.cfg.FailureThreshold {
		state.openUntil = now.Add(m.cfg.CircuitOpenDuration)
		state.consecutiveFailures = 0
		log.Warn().Str("sink", key).Dur("open_for", m.cfg.CircuitOpenDuration).Msg("wager push circuit open")
	}
	m.breakerByKey[key] = state
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakerByKey[key] = breakerState{}
}

// Close releases every sink that holds resources.
func (m *Manager) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
