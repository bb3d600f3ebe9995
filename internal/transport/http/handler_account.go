package httptransport

import (
	"net/http"
	"strings"

	appaccount "betpro/internal/app/account"
)

// slipHeader carries the client-held id of an anonymous slip.
const slipHeader = "X-Slip-ID"

const anonSlipPrefix = "anon:"

type AccountHandlers struct {
	svc *appaccount.Service
}

func NewAccountHandlers(svc *appaccount.Service) *AccountHandlers {
	return &AccountHandlers{svc: svc}
}

func (h *AccountHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsRequest
		if !decodeRequest(w, r, &body) {
			return
		}
		resp, err := h.svc.Register(r.Context(), appaccount.CredentialsInput{
			DisplayName: body.DisplayName,
			Secret:      body.Secret,
			SlipKey:     anonSlipKey(r),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func (h *AccountHandlers) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentialsRequest
		if !decodeRequest(w, r, &body) {
			return
		}
		resp, err := h.svc.Login(r.Context(), appaccount.CredentialsInput{
			DisplayName: body.DisplayName,
			Secret:      body.Secret,
			SlipKey:     anonSlipKey(r),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		if err := h.svc.Logout(r.Context(), s.ID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AccountHandlers) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		resp, err := h.svc.Me(r.Context(), s.AccountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) Reset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		resp, err := h.svc.Reset(r.Context(), s.AccountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		if err := h.svc.Delete(r.Context(), s.AccountID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *AccountHandlers) Wagers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		limit, offset := ParsePagination(r)
		resp, err := h.svc.Wagers(r.Context(), s.AccountID, r.URL.Query().Get("status"), limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		limit, offset := ParsePagination(r)
		resp, err := h.svc.Ledger(r.Context(), s.AccountID, limit, offset)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *AccountHandlers) Stats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := SessionFromContext(r.Context())
		resp, err := h.svc.Stats(r.Context(), s.AccountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func anonSlipKey(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(slipHeader))
	if id == "" || len(id) > 64 {
		return ""
	}
	return anonSlipPrefix + id
}
