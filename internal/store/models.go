package store

import (
	"time"

	"betpro/internal/money"
)

type WagerStatus string

const (
	WagerPending WagerStatus = "pending"
	WagerWon     WagerStatus = "won"
	WagerLost    WagerStatus = "lost"
)

func (s WagerStatus) Valid() bool {
	switch s {
	case WagerPending, WagerWon, WagerLost:
		return true
	}
	return false
}

const (
	EntrySignupGrant  = "signup_grant"
	EntryTopupCredit  = "topup_credit"
	EntryBetDebit     = "bet_debit"
	EntryPayoutCredit = "payout_credit"
	EntryResetAdjust  = "reset_adjust"
	EntryManualDebit  = "manual_debit"
)

type Account struct {
	ID             string       `json:"id"`
	DisplayName    string       `json:"display_name"`
	CredentialHash string       `json:"credential_hash"`
	Balance        money.Amount `json:"balance"`
	Version        int64        `json:"version"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Wager is an immutable snapshot of a placed selection. Only Status and
// SettledAt change, and only once.
type Wager struct {
	ID              string       `json:"id"`
	AccountID       string       `json:"account_id"`
	MatchID         string       `json:"match_id"`
	HomeTeam        string       `json:"home_team"`
	AwayTeam        string       `json:"away_team"`
	League          string       `json:"league"`
	Side            string       `json:"side"`
	SelectedTeam    string       `json:"selected_team"`
	Price           money.Price  `json:"price"`
	Stake           money.Amount `json:"stake"`
	PotentialPayout money.Amount `json:"potential_payout"`
	Status          WagerStatus  `json:"status"`
	PlacedAt        time.Time    `json:"placed_at"`
	SettledAt       *time.Time   `json:"settled_at,omitempty"`
}

type LedgerEntry struct {
	ID           string       `json:"id"`
	AccountID    string       `json:"account_id"`
	Type         string       `json:"type"`
	Amount       money.Amount `json:"amount"`
	BalanceAfter money.Amount `json:"balance_after"`
	RefType      string       `json:"ref_type"`
	RefID        string       `json:"ref_id"`
	CreatedAt    time.Time    `json:"created_at"`
}

type WagerFilter struct {
	AccountID string
	Status    WagerStatus
	From      *time.Time
}

func (f WagerFilter) match(w Wager) bool {
	if f.AccountID != "" && w.AccountID != f.AccountID {
		return false
	}
	if f.Status != "" && w.Status != f.Status {
		return false
	}
	if f.From != nil && w.PlacedAt.Before(*f.From) {
		return false
	}
	return true
}

type LedgerFilter struct {
	AccountID string
	Type      string
	From      *time.Time
	To        *time.Time
}

func (f LedgerFilter) match(e LedgerEntry) bool {
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func copyWager(w Wager) Wager {
	if w.SettledAt != nil {
		t := *w.SettledAt
		w.SettledAt = &t
	}
	return w
}

// page applies limit/offset to n items. A non-positive limit means no limit.
func page(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
