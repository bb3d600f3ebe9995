package httptransport

import (
	"net/http"

	appslip "betpro/internal/app/slip"
	"betpro/internal/store"

	"github.com/go-chi/chi/v5"
)

type SlipHandlers struct {
	svc *appslip.Service
}

func NewSlipHandlers(svc *appslip.Service) *SlipHandlers {
	return &SlipHandlers{svc: svc}
}

// slipIdentity picks the slip for the request: the session's slip when signed
// in, otherwise the anonymous slip named by X-Slip-ID, issuing a new id when
// the header is missing.
func slipIdentity(w http.ResponseWriter, r *http.Request) (key, accountID string) {
	if s, ok := SessionFromContext(r.Context()); ok {
		return s.ID, s.AccountID
	}
	key = anonSlipKey(r)
	if key == "" {
		id := store.NewID()
		key = anonSlipPrefix + id
	}
	w.Header().Set(slipHeader, key[len(anonSlipPrefix):])
	return key, ""
}

func (h *SlipHandlers) View() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		resp, err := h.svc.View(r.Context(), key, accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) AddSelection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		var body addSelectionRequest
		if !decodeRequest(w, r, &body) {
			return
		}
		resp, err := h.svc.Add(r.Context(), key, accountID, appslip.AddInput{
			MatchID:  body.MatchID,
			Side:     body.Side,
			Price:    body.Price,
			HomeTeam: body.HomeTeam,
			AwayTeam: body.AwayTeam,
			League:   body.League,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) UpdateStake() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		var body updateStakeRequest
		if !decodeRequest(w, r, &body) {
			return
		}
		resp, err := h.svc.UpdateStake(r.Context(), key, accountID, chi.URLParam(r, "selection_id"), *body.Stake)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) RemoveSelection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		resp, err := h.svc.Remove(r.Context(), key, accountID, chi.URLParam(r, "selection_id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		resp, err := h.svc.Clear(r.Context(), key, accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) Toggle() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		resp, err := h.svc.Toggle(r.Context(), key, accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) Close() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		resp, err := h.svc.Close(r.Context(), key, accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *SlipHandlers) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, accountID := slipIdentity(w, r)
		resp, err := h.svc.Submit(r.Context(), key, accountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}
