package httptransport

import (
	"errors"
	"net/http"

	"betpro/internal/feed"
)

type EventHandlers struct {
	feed *feed.Hub
}

func NewEventHandlers(f *feed.Hub) *EventHandlers {
	return &EventHandlers{feed: f}
}

// Stream serves the signed-in account's live events as server-sent events.
func (h *EventHandlers) Stream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		if err := h.feed.Serve(w, r, s.AccountID); err != nil {
			if errors.Is(err, feed.ErrStreamUnsupported) {
				WriteHTTPError(w, http.StatusInternalServerError, "stream_unsupported")
				return
			}
			writeError(w, r, err)
		}
	}
}
