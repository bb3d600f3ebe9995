package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"betpro/internal/events"
	"betpro/internal/lock"
	"betpro/internal/money"
	"betpro/internal/store"

	"github.com/rs/zerolog/log"
)

const maxCASAttempts = 5

var namePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// SessionTerminator ends every live session of an account.
type SessionTerminator interface {
	EndAccount(ctx context.Context, accountID string) error
}

type Options struct {
	StartingGrant   money.Amount
	MinSecretLength int
	Locks           lock.Locker
	Sessions        SessionTerminator
	Publisher       events.Publisher
}

// Ledger owns account balances. Every balance change is journaled and runs
// under the account lock with an optimistic version check underneath.
type Ledger struct {
	store     store.Store
	locks     lock.Locker
	sessions  SessionTerminator
	pub       events.Publisher
	grant     money.Amount
	minSecret int
	now       func() time.Time
}

func New(s store.Store, opts Options) *Ledger {
	if opts.StartingGrant <= 0 {
		opts.StartingGrant = money.StartingGrant
	}
	if opts.MinSecretLength <= 0 {
		opts.MinSecretLength = 6
	}
	if opts.Locks == nil {
		opts.Locks = lock.NewKeyedMutex()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	return &Ledger{
		store:     s,
		locks:     opts.Locks,
		sessions:  opts.Sessions,
		pub:       opts.Publisher,
		grant:     opts.StartingGrant,
		minSecret: opts.MinSecretLength,
		now:       time.Now,
	}
}

func (l *Ledger) StartingGrant() money.Amount { return l.grant }

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (l *Ledger) Register(ctx context.Context, displayName, secret string) (*store.Account, error) {
	name := NormalizeName(displayName)
	if !namePattern.MatchString(name) {
		return nil, ErrInvalidName
	}
	if len(secret) < l.minSecret {
		return nil, ErrWeakSecret
	}

	unlock, err := l.locks.Lock(ctx, "name:"+name)
	if err != nil {
		return nil, fmt.Errorf("lock name: %w", err)
	}
	defer unlock()

	if _, err := l.store.GetAccountByName(ctx, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := HashSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	now := l.now().UTC()
	acc := store.Account{
		ID:             store.NewID(),
		DisplayName:    name,
		CredentialHash: hash,
		Balance:        l.grant,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry := l.entry(acc.ID, store.EntrySignupGrant, l.grant, l.grant, "account", acc.ID)
	if err := l.store.CreateAccount(ctx, acc, &entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	metricMutationsTotal.WithLabelValues(store.EntrySignupGrant).Inc()
	log.Info().Str("account_id", acc.ID).Str("display_name", name).Msg("account registered")
	return &acc, nil
}

func (l *Ledger) Authenticate(ctx context.Context, displayName, secret string) (*store.Account, error) {
	name := NormalizeName(displayName)
	if !namePattern.MatchString(name) {
		return nil, ErrAccountNotFound
	}
	acc, err := l.store.GetAccountByName(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, l.storeErr(err, "")
	}
	ok, err := VerifySecret(acc.CredentialHash, secret)
	if err != nil {
		log.Error().Err(err).Str("account_id", acc.ID).Msg("stored credential hash unreadable")
		return nil, ErrCorruptState
	}
	if !ok {
		return nil, ErrBadCredential
	}
	return acc, nil
}

func (l *Ledger) Get(ctx context.Context, accountID string) (*store.Account, error) {
	return l.load(ctx, accountID)
}

func (l *Ledger) Credit(ctx context.Context, accountID string, amount money.Amount) (*store.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.adjust(ctx, accountID, store.EntryTopupCredit, "manual", "", func(cur money.Amount) (money.Amount, error) {
		next, err := money.Add(cur, amount)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		return next, nil
	})
}

// Debit is the only path that lowers a balance outside wager placement, and
// it refuses to go below zero.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount money.Amount) (*store.Account, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.adjust(ctx, accountID, store.EntryManualDebit, "manual", "", func(cur money.Amount) (money.Amount, error) {
		if amount > cur {
			return 0, ErrInsufficientFunds
		}
		return cur - amount, nil
	})
}

// Reset puts the balance back to the starting grant. Wager history is kept.
func (l *Ledger) Reset(ctx context.Context, accountID string) (*store.Account, error) {
	return l.adjust(ctx, accountID, store.EntryResetAdjust, "account", accountID, func(money.Amount) (money.Amount, error) {
		return l.grant, nil
	})
}

func (l *Ledger) DeleteAccount(ctx context.Context, accountID string) error {
	unlock, err := l.locks.Lock(ctx, accountKey(accountID))
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	err = l.store.DeleteAccount(ctx, accountID)
	unlock()
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if l.sessions != nil {
		if err := l.sessions.EndAccount(ctx, accountID); err != nil {
			log.Error().Err(err).Str("account_id", accountID).Msg("end sessions of deleted account failed")
		}
	}
	log.Info().Str("account_id", accountID).Msg("account deleted")
	l.pub.Publish(events.New(events.TypeAccountDeleted, accountID, nil))
	return nil
}

func (l *Ledger) ListWagers(ctx context.Context, f store.WagerFilter, limit, offset int) ([]store.Wager, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidOutcome
	}
	return l.store.ListWagers(ctx, f, limit, offset)
}

func (l *Ledger) ListEntries(ctx context.Context, f store.LedgerFilter, limit, offset int) ([]store.LedgerEntry, error) {
	return l.store.ListLedgerEntries(ctx, f, limit, offset)
}

// PlaceWagers debits the sum of stakes and records every wager as pending in
// one store call. Wagers come back with ids, payouts and timestamps filled.
func (l *Ledger) PlaceWagers(ctx context.Context, accountID string, wagers []store.Wager) ([]store.Wager, *store.Account, error) {
	if len(wagers) == 0 {
		return nil, nil, ErrInvalidWager
	}
	var total money.Amount
	for _, w := range wagers {
		if w.Stake <= 0 || w.Stake > money.MaxAmount || !w.Price.Valid() || w.MatchID == "" {
			return nil, nil, ErrInvalidWager
		}
		next, err := money.Add(total, w.Stake)
		if err != nil {
			return nil, nil, ErrInvalidWager
		}
		total = next
	}

	var (
		placed []store.Wager
		after  store.Account
	)
	err := l.withAccount(ctx, accountID, func(acc store.Account) error {
		if total > acc.Balance {
			return ErrInsufficientFunds
		}
		now := l.now().UTC()
		placed = make([]store.Wager, len(wagers))
		entries := make([]store.LedgerEntry, len(wagers))
		balance := acc.Balance
		for i, w := range wagers {
			w.ID = store.NewID()
			w.AccountID = accountID
			w.Status = store.WagerPending
			w.PotentialPayout = money.Payout(w.Stake, w.Price)
			w.PlacedAt = now
			w.SettledAt = nil
			placed[i] = w
			balance -= w.Stake
			entries[i] = l.entry(accountID, store.EntryBetDebit, -w.Stake, balance, "wager", w.ID)
		}
		next := acc
		next.Balance = balance
		if err := l.store.PlaceWagers(ctx, next, placed, entries); err != nil {
			return err
		}
		after = next
		after.Version++
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	metricMutationsTotal.WithLabelValues(store.EntryBetDebit).Add(float64(len(placed)))
	l.publishBalance(after, store.EntryBetDebit)
	return placed, &after, nil
}

// SettleWager resolves a pending wager. A won wager credits its potential
// payout; a lost one leaves the balance alone.
func (l *Ledger) SettleWager(ctx context.Context, wagerID string, outcome store.WagerStatus) (*store.Wager, *store.Account, error) {
	if outcome != store.WagerWon && outcome != store.WagerLost {
		return nil, nil, ErrInvalidOutcome
	}
	w, err := l.loadWager(ctx, wagerID)
	if err != nil {
		return nil, nil, err
	}
	if w.Status != store.WagerPending {
		return nil, nil, ErrAlreadySettled
	}

	var (
		settled store.Wager
		after   store.Account
	)
	err = l.withAccount(ctx, w.AccountID, func(acc store.Account) error {
		cur, err := l.loadWager(ctx, wagerID)
		if err != nil {
			return err
		}
		if cur.Status != store.WagerPending {
			return ErrAlreadySettled
		}
		now := l.now().UTC()
		next := *cur
		next.Status = outcome
		next.SettledAt = &now

		after = acc
		var (
			accPtr   *store.Account
			entryPtr *store.LedgerEntry
		)
		if outcome == store.WagerWon && next.PotentialPayout > 0 {
			balance, err := money.Add(acc.Balance, next.PotentialPayout)
			if err != nil {
				log.Error().Str("wager_id", next.ID).Str("account_id", acc.ID).Msg("payout overflows balance")
				return ErrInvalidAmount
			}
			after.Balance = balance
			entry := l.entry(acc.ID, store.EntryPayoutCredit, next.PotentialPayout, after.Balance, "wager", next.ID)
			accPtr, entryPtr = &after, &entry
		}
		err = l.store.SettleWager(ctx, next, accPtr, entryPtr)
		if errors.Is(err, store.ErrConflict) {
			again, lerr := l.loadWager(ctx, wagerID)
			if lerr == nil && again.Status != store.WagerPending {
				return ErrAlreadySettled
			}
			return store.ErrConflict
		}
		if err != nil {
			return err
		}
		if accPtr != nil {
			after.Version++
		}
		settled = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().
		Str("wager_id", settled.ID).
		Str("account_id", settled.AccountID).
		Str("outcome", string(outcome)).
		Str("payout", settled.PotentialPayout.String()).
		Msg("wager settled")
	if outcome == store.WagerWon {
		metricMutationsTotal.WithLabelValues(store.EntryPayoutCredit).Inc()
		l.publishBalance(after, store.EntryPayoutCredit)
	}
	return &settled, &after, nil
}

func (l *Ledger) adjust(ctx context.Context, accountID, entryType, refType, refID string, next func(money.Amount) (money.Amount, error)) (*store.Account, error) {
	var after store.Account
	err := l.withAccount(ctx, accountID, func(acc store.Account) error {
		balance, err := next(acc.Balance)
		if err != nil {
			return err
		}
		updated := acc
		updated.Balance = balance
		entry := l.entry(accountID, entryType, balance-acc.Balance, balance, refType, refID)
		if err := l.store.SaveAccount(ctx, updated, &entry); err != nil {
			return err
		}
		after = updated
		after.Version++
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			log.Warn().Str("account_id", accountID).Str("type", entryType).Msg("debit rejected: insufficient funds")
		}
		return nil, err
	}
	metricMutationsTotal.WithLabelValues(entryType).Inc()
	l.publishBalance(after, entryType)
	return &after, nil
}

// withAccount runs fn under the account lock with a freshly loaded account,
// retrying when the store reports a version conflict.
func (l *Ledger) withAccount(ctx context.Context, accountID string, fn func(store.Account) error) error {
	unlock, err := l.locks.Lock(ctx, accountKey(accountID))
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	defer unlock()

	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		acc, err := l.load(ctx, accountID)
		if err != nil {
			return err
		}
		err = fn(*acc)
		if !errors.Is(err, store.ErrConflict) {
			return l.storeErr(err, accountID)
		}
		log.Warn().Str("account_id", accountID).Int("attempt", attempt).Msg("account version moved, retrying")
	}
	return ErrConcurrentUpdate
}

func (l *Ledger) load(ctx context.Context, accountID string) (*store.Account, error) {
	acc, err := l.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, l.storeErr(err, accountID)
	}
	if acc.Balance < 0 {
		log.Error().Str("account_id", accountID).Int64("balance", int64(acc.Balance)).Msg("negative balance in store")
		return nil, ErrCorruptState
	}
	return acc, nil
}

func (l *Ledger) loadWager(ctx context.Context, wagerID string) (*store.Wager, error) {
	w, err := l.store.GetWager(ctx, wagerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrWagerNotFound
	}
	if err != nil {
		return nil, l.storeErr(err, "")
	}
	if !w.Status.Valid() || (w.Status == store.WagerPending) != (w.SettledAt == nil) {
		log.Error().Str("wager_id", wagerID).Str("status", string(w.Status)).Msg("inconsistent wager in store")
		return nil, ErrCorruptState
	}
	return w, nil
}

func (l *Ledger) storeErr(err error, accountID string) error {
	if errors.Is(err, store.ErrCorrupt) {
		log.Error().Err(err).Str("account_id", accountID).Msg("corrupt record in store")
		return fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if errors.Is(err, store.ErrNotFound) && accountID != "" {
		return ErrAccountNotFound
	}
	return err
}

func (l *Ledger) entry(accountID, typ string, amount, balanceAfter money.Amount, refType, refID string) store.LedgerEntry {
	return store.LedgerEntry{
		ID:           store.NewID(),
		AccountID:    accountID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		RefType:      refType,
		RefID:        refID,
		CreatedAt:    l.now().UTC(),
	}
}

type balanceEvent struct {
	Balance money.Amount `json:"balance"`
	Reason  string       `json:"reason"`
}

func (l *Ledger) publishBalance(acc store.Account, reason string) {
	l.pub.Publish(events.New(events.TypeAccountBalance, acc.ID, balanceEvent{Balance: acc.Balance, Reason: reason}))
}

func accountKey(id string) string { return "account:" + id }
