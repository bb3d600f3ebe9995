package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	ErrConflict  = errors.New("conflict")
	ErrCorrupt   = errors.New("corrupt record")
)

// Store is the persistence contract behind the ledger and the settlement
// engine. Every mutating call is atomic: it applies all of its writes or none.
//
// SaveAccount, PlaceWagers and SettleWager compare Account.Version against the
// stored row and fail with ErrConflict when it moved; on success the stored
// version is Version+1.
type Store interface {
	CreateAccount(ctx context.Context, acc Account, entry *LedgerEntry) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByName(ctx context.Context, displayName string) (*Account, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]Account, error)
	SaveAccount(ctx context.Context, acc Account, entry *LedgerEntry) error
	DeleteAccount(ctx context.Context, id string) error

	GetWager(ctx context.Context, id string) (*Wager, error)
	ListWagers(ctx context.Context, f WagerFilter, limit, offset int) ([]Wager, error)
	PlaceWagers(ctx context.Context, acc Account, wagers []Wager, entries []LedgerEntry) error
	// SettleWager moves a pending wager to its terminal status. acc and entry
	// are nil when the outcome does not touch the balance.
	SettleWager(ctx context.Context, w Wager, acc *Account, entry *LedgerEntry) error

	ListLedgerEntries(ctx context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error)

	Ping(ctx context.Context) error
	Close() error
}
