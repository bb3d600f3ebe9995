package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"betpro/internal/money"
)

func newTestAccount(name string, balance money.Amount) Account {
	now := time.Now().UTC()
	return Account{
		ID:             NewID(),
		DisplayName:    name,
		CredentialHash: "argon2id$test",
		Balance:        balance,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newTestWager(accountID, matchID string, stake money.Amount, price string) Wager {
	p := money.MustPrice(price)
	return Wager{
		ID:              NewID(),
		AccountID:       accountID,
		MatchID:         matchID,
		HomeTeam:        "Home",
		AwayTeam:        "Away",
		Side:            "home",
		SelectedTeam:    "Home",
		Price:           p,
		Stake:           stake,
		PotentialPayout: money.Payout(stake, p),
		Status:          WagerPending,
		PlacedAt:        time.Now().UTC(),
	}
}

func entryFor(acc Account, typ string, amount money.Amount) LedgerEntry {
	return LedgerEntry{
		ID:           NewID(),
		AccountID:    acc.ID,
		Type:         typ,
		Amount:       amount,
		BalanceAfter: acc.Balance,
		CreatedAt:    time.Now().UTC(),
	}
}

func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		st := open(t)
		acc := newTestAccount("player1", money.StartingGrant)
		grant := entryFor(acc, EntrySignupGrant, acc.Balance)
		if err := st.CreateAccount(ctx, acc, &grant); err != nil {
			t.Fatalf("create account: %v", err)
		}
		dup := newTestAccount("player1", money.StartingGrant)
		if err := st.CreateAccount(ctx, dup, nil); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("duplicate create err = %v, want %v", err, ErrDuplicate)
		}
		got, err := st.GetAccountByName(ctx, "player1")
		if err != nil {
			t.Fatalf("get by name: %v", err)
		}
		if got.ID != acc.ID || got.Balance != money.StartingGrant {
			t.Fatalf("unexpected account: %+v", got)
		}
		if _, err := st.GetAccount(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("get missing err = %v, want %v", err, ErrNotFound)
		}
		entries, err := st.ListLedgerEntries(ctx, LedgerFilter{AccountID: acc.ID}, 0, 0)
		if err != nil {
			t.Fatalf("list entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Type != EntrySignupGrant {
			t.Fatalf("unexpected entries: %+v", entries)
		}
	})

	t.Run("save account compares version", func(t *testing.T) {
		st := open(t)
		acc := newTestAccount("casuser", 5000)
		if err := st.CreateAccount(ctx, acc, nil); err != nil {
			t.Fatalf("create account: %v", err)
		}
		next := acc
		next.Balance = 7000
		credit := entryFor(next, EntryTopupCredit, 2000)
		if err := st.SaveAccount(ctx, next, &credit); err != nil {
			t.Fatalf("save account: %v", err)
		}
		stale := acc
		stale.Balance = 1
		if err := st.SaveAccount(ctx, stale, nil); !errors.Is(err, ErrConflict) {
			t.Fatalf("stale save err = %v, want %v", err, ErrConflict)
		}
		got, err := st.GetAccount(ctx, acc.ID)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		if got.Balance != 7000 || got.Version != acc.Version+1 {
			t.Fatalf("balance/version = %s/%d, want 70.00/%d", got.Balance, got.Version, acc.Version+1)
		}
		missing := newTestAccount("ghost", 0)
		if err := st.SaveAccount(ctx, missing, nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("save missing err = %v, want %v", err, ErrNotFound)
		}
	})

	t.Run("place and settle wagers", func(t *testing.T) {
		st := open(t)
		acc := newTestAccount("bettor", money.StartingGrant)
		if err := st.CreateAccount(ctx, acc, nil); err != nil {
			t.Fatalf("create account: %v", err)
		}
		w1 := newTestWager(acc.ID, "m1", money.DefaultStake, "1.75")
		w2 := newTestWager(acc.ID, "m2", 2500, "2.10")
		w2.PlacedAt = w1.PlacedAt.Add(time.Millisecond)
		debited := acc
		debited.Balance -= w1.Stake + w2.Stake
		entries := []LedgerEntry{entryFor(debited, EntryBetDebit, -w1.Stake), entryFor(debited, EntryBetDebit, -w2.Stake)}
		if err := st.PlaceWagers(ctx, debited, []Wager{w1, w2}, entries); err != nil {
			t.Fatalf("place wagers: %v", err)
		}

		list, err := st.ListWagers(ctx, WagerFilter{AccountID: acc.ID}, 0, 0)
		if err != nil {
			t.Fatalf("list wagers: %v", err)
		}
		if len(list) != 2 || list[0].ID != w2.ID {
			t.Fatalf("expected newest first, got %+v", list)
		}
		if !list[1].Price.Equal(money.MustPrice("1.75")) || list[1].PotentialPayout != 1750 {
			t.Fatalf("wager snapshot changed: %+v", list[1])
		}

		settledAt := time.Now().UTC()
		won := w1
		won.Status = WagerWon
		won.SettledAt = &settledAt
		cur, err := st.GetAccount(ctx, acc.ID)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		credited := *cur
		credited.Balance += w1.PotentialPayout
		payout := entryFor(credited, EntryPayoutCredit, w1.PotentialPayout)
		if err := st.SettleWager(ctx, won, &credited, &payout); err != nil {
			t.Fatalf("settle wager: %v", err)
		}
		again := credited
		again.Version++
		if err := st.SettleWager(ctx, won, &again, nil); !errors.Is(err, ErrConflict) {
			t.Fatalf("second settle err = %v, want %v", err, ErrConflict)
		}

		got, err := st.GetAccount(ctx, acc.ID)
		if err != nil {
			t.Fatalf("get account: %v", err)
		}
		if got.Balance != money.MustParse("982.50") {
			t.Fatalf("balance = %s, want 982.50", got.Balance)
		}
		pending, err := st.ListWagers(ctx, WagerFilter{Status: WagerPending}, 0, 0)
		if err != nil {
			t.Fatalf("list pending: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != w2.ID {
			t.Fatalf("unexpected pending: %+v", pending)
		}
		settled, err := st.GetWager(ctx, w1.ID)
		if err != nil {
			t.Fatalf("get wager: %v", err)
		}
		if settled.Status != WagerWon || settled.SettledAt == nil {
			t.Fatalf("unexpected settled wager: %+v", settled)
		}
	})

	t.Run("place wagers is atomic on conflict", func(t *testing.T) {
		st := open(t)
		acc := newTestAccount("atomic", 2000)
		if err := st.CreateAccount(ctx, acc, nil); err != nil {
			t.Fatalf("create account: %v", err)
		}
		stale := acc
		stale.Version = 99
		stale.Balance = 1000
		w := newTestWager(acc.ID, "m1", 1000, "1.50")
		if err := st.PlaceWagers(ctx, stale, []Wager{w}, []LedgerEntry{entryFor(stale, EntryBetDebit, -1000)}); !errors.Is(err, ErrConflict) {
			t.Fatalf("place err = %v, want %v", err, ErrConflict)
		}
		if _, err := st.GetWager(ctx, w.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("wager persisted after failed placement: %v", err)
		}
		got, _ := st.GetAccount(ctx, acc.ID)
		if got.Balance != 2000 {
			t.Fatalf("balance = %s, want 20.00", got.Balance)
		}
	})

	t.Run("delete cascades", func(t *testing.T) {
		st := open(t)
		acc := newTestAccount("leaver", money.StartingGrant)
		other := newTestAccount("stayer", money.StartingGrant)
		for _, a := range []Account{acc, other} {
			if err := st.CreateAccount(ctx, a, nil); err != nil {
				t.Fatalf("create account: %v", err)
			}
		}
		w := newTestWager(acc.ID, "m1", 1000, "1.90")
		debited := acc
		debited.Balance -= 1000
		if err := st.PlaceWagers(ctx, debited, []Wager{w}, []LedgerEntry{entryFor(debited, EntryBetDebit, -1000)}); err != nil {
			t.Fatalf("place: %v", err)
		}
		ow := newTestWager(other.ID, "m1", 1000, "1.90")
		odebited := other
		odebited.Balance -= 1000
		if err := st.PlaceWagers(ctx, odebited, []Wager{ow}, nil); err != nil {
			t.Fatalf("place other: %v", err)
		}

		if err := st.DeleteAccount(ctx, acc.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := st.DeleteAccount(ctx, acc.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second delete err = %v, want %v", err, ErrNotFound)
		}
		if _, err := st.GetWager(ctx, w.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("wager survived delete: %v", err)
		}
		entries, _ := st.ListLedgerEntries(ctx, LedgerFilter{AccountID: acc.ID}, 0, 0)
		if len(entries) != 0 {
			t.Fatalf("entries survived delete: %+v", entries)
		}
		if _, err := st.GetWager(ctx, ow.ID); err != nil {
			t.Fatalf("other account wager removed: %v", err)
		}
		reuse := newTestAccount("leaver", money.StartingGrant)
		if err := st.CreateAccount(ctx, reuse, nil); err != nil {
			t.Fatalf("name not released after delete: %v", err)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		st := open(t)
		for _, name := range []string{"aaa", "bbb", "ccc"} {
			a := newTestAccount(name, 0)
			if err := st.CreateAccount(ctx, a, nil); err != nil {
				t.Fatalf("create: %v", err)
			}
			time.Sleep(time.Millisecond)
		}
		got, err := st.ListAccounts(ctx, 2, 1)
		if err != nil {
			t.Fatalf("list accounts: %v", err)
		}
		if len(got) != 2 || got[0].DisplayName != "bbb" || got[1].DisplayName != "ccc" {
			t.Fatalf("unexpected page: %+v", got)
		}
		got, _ = st.ListAccounts(ctx, 10, 5)
		if len(got) != 0 {
			t.Fatalf("expected empty page, got %d", len(got))
		}
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestBadgerStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		st, err := OpenBadger(BadgerOptions{InMemory: true})
		if err != nil {
			t.Fatalf("open badger: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}
