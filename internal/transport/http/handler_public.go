package httptransport

import (
	"net/http"

	apppublic "betpro/internal/app/public"
)

type PublicHandlers struct {
	svc *apppublic.Service
}

func NewPublicHandlers(svc *apppublic.Service) *PublicHandlers {
	return &PublicHandlers{svc: svc}
}

func (h *PublicHandlers) Leaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		if r.URL.Query().Get("limit") == "" {
			limit = 0
		}
		window := r.URL.Query().Get("window")
		if window == "" {
			window = "all"
		}
		resp, err := h.svc.Leaderboard(r.Context(), window, limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
