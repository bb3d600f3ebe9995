package httptransport

import (
	"net/http"
	"time"

	"betpro/internal/betslip"
	"betpro/internal/ledger"
	"betpro/internal/store"

	"github.com/go-chi/chi/v5"
)

type AdminHandlers struct {
	store  store.Store
	ledger *ledger.Ledger
	engine *betslip.Engine
}

func NewAdminHandlers(st store.Store, l *ledger.Ledger, engine *betslip.Engine) *AdminHandlers {
	return &AdminHandlers{store: st, ledger: l, engine: engine}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "db": "down"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "db": "up"})
	}
}

func (h *AdminHandlers) Wagers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		f := store.WagerFilter{
			AccountID: r.URL.Query().Get("account_id"),
			Status:    store.WagerStatus(r.URL.Query().Get("status")),
		}
		items, err := h.ledger.ListWagers(r.Context(), f, limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []store.Wager{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Settle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body settleRequest
		if !decodeRequest(w, r, &body) {
			return
		}
		wager, err := h.engine.Settle(r.Context(), chi.URLParam(r, "wager_id"), store.WagerStatus(body.Outcome))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wager)
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body topupRequest
		if !decodeRequest(w, r, &body) {
			return
		}
		acc, err := h.ledger.Credit(r.Context(), chi.URLParam(r, "account_id"), body.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "account_id": acc.ID, "balance": acc.Balance})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		f := store.LedgerFilter{AccountID: r.URL.Query().Get("account_id"), Type: r.URL.Query().Get("type")}
		if v := r.URL.Query().Get("from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.From = &t
			}
		}
		if v := r.URL.Query().Get("to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				f.To = &t
			}
		}
		items, err := h.ledger.ListEntries(r.Context(), f, limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []store.LedgerEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}
