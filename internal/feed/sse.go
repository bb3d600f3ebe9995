package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"betpro/internal/events"
)

var pingInterval = 15 * time.Second

var ErrStreamUnsupported = errors.New("stream_not_supported")

func WriteSSE(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.ID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.ID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Type); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// SetSSEHeaders applies headers that keep event streams stable across proxies.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")
}

// Serve streams the account's events until the client goes away or the
// account's buffer closes. Last-Event-ID resumes after a reconnect.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, accountID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamUnsupported
	}
	buf := h.Buffer(accountID)
	ch := buf.Subscribe()
	defer buf.Unsubscribe(ch)

	SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	metricStreamsActive.Inc()
	defer metricStreamsActive.Dec()

	lastSent := r.Header.Get("Last-Event-ID")
	for _, ev := range buf.ReplayAfter(lastSent) {
		if err := WriteSSE(w, ev); err != nil {
			return nil
		}
		lastSent = ev.ID
	}
	flusher.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			// already delivered by the replay above
			if lastSent != "" && ev.ID <= lastSent {
				continue
			}
			if err := WriteSSE(w, ev); err != nil {
				return nil
			}
			lastSent = ev.ID
			flusher.Flush()
		case <-ticker.C:
			ping := events.Event{Type: "ping", AccountID: accountID, OccurredAt: time.Now().UTC()}
			if err := WriteSSE(w, ping); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
