package account

import (
	"time"

	"betpro/internal/money"
	"betpro/internal/store"
)

type CredentialsInput struct {
	DisplayName string
	Secret      string
	// SlipKey is the anonymous slip the caller built before signing in.
	SlipKey string
}

type AccountView struct {
	AccountID   string       `json:"account_id"`
	DisplayName string       `json:"display_name"`
	Balance     money.Amount `json:"balance"`
	CreatedAt   time.Time    `json:"created_at"`
}

type SessionResponse struct {
	Token     string      `json:"token"`
	SessionID string      `json:"session_id"`
	ExpiresAt time.Time   `json:"expires_at"`
	Account   AccountView `json:"account"`
}

type WagersResponse struct {
	Items  []store.Wager `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type LedgerResponse struct {
	Items  []store.LedgerEntry `json:"items"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func viewOf(acc *store.Account) AccountView {
	return AccountView{
		AccountID:   acc.ID,
		DisplayName: acc.DisplayName,
		Balance:     acc.Balance,
		CreatedAt:   acc.CreatedAt,
	}
}
