package ledger

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"betpro/internal/events"
	"betpro/internal/money"
	"betpro/internal/store"
)

func TestMain(m *testing.M) {
	hashDefaults = hashParams{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
	os.Exit(m.Run())
}

type fakeTerminator struct {
	mu    sync.Mutex
	ended []string
}

func (f *fakeTerminator) EndAccount(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, accountID)
	return nil
}

// flakyStore wraps a store and injects failures into selected calls.
type flakyStore struct {
	store.Store
	placeErr     error
	saveConflict int
	negative     bool
}

func (s *flakyStore) PlaceWagers(ctx context.Context, acc store.Account, ws []store.Wager, es []store.LedgerEntry) error {
	if s.placeErr != nil {
		return s.placeErr
	}
	return s.Store.PlaceWagers(ctx, acc, ws, es)
}

func (s *flakyStore) SaveAccount(ctx context.Context, acc store.Account, e *store.LedgerEntry) error {
	if s.saveConflict > 0 {
		s.saveConflict--
		return store.ErrConflict
	}
	return s.Store.SaveAccount(ctx, acc, e)
}

func (s *flakyStore) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	acc, err := s.Store.GetAccount(ctx, id)
	if err == nil && s.negative {
		acc.Balance = -1
	}
	return acc, err
}

func newTestLedger(t *testing.T, st store.Store) (*Ledger, *events.Recorder, *fakeTerminator) {
	t.Helper()
	rec := &events.Recorder{}
	term := &fakeTerminator{}
	if st == nil {
		st = store.NewMemory()
	}
	return New(st, Options{Sessions: term, Publisher: rec}), rec, term
}

func register(t *testing.T, l *Ledger, name string) *store.Account {
	t.Helper()
	acc, err := l.Register(context.Background(), name, "secret123")
	if err != nil {
		t.Fatalf("register %q: %v", name, err)
	}
	return acc
}

func wager(matchID, price string, stake money.Amount) store.Wager {
	return store.Wager{MatchID: matchID, Side: "home", Price: money.MustPrice(price), Stake: stake}
}

func TestRegisterNormalizesAndRejectsDuplicates(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, " Player1 ")
	if acc.DisplayName != "player1" {
		t.Fatalf("display name = %q, want player1", acc.DisplayName)
	}
	if acc.Balance != money.StartingGrant {
		t.Fatalf("balance = %s, want %s", acc.Balance, money.StartingGrant)
	}
	if strings.Contains(acc.CredentialHash, "secret123") {
		t.Fatal("credential hash contains plaintext secret")
	}
	if _, err := l.Register(context.Background(), "player1", "another1"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateName)
	}
}

func TestRegisterValidation(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	cases := []struct {
		name   string
		secret string
		want   error
	}{
		{"ab", "secret123", ErrInvalidName},
		{"this_name_is_way_too_long", "secret123", ErrInvalidName},
		{"bad-name", "secret123", ErrInvalidName},
		{"   ", "secret123", ErrInvalidName},
		{"gooduser", "123", ErrWeakSecret},
	}
	for _, tc := range cases {
		if _, err := l.Register(context.Background(), tc.name, tc.secret); !errors.Is(err, tc.want) {
			t.Fatalf("register(%q) err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestRegisterWritesSignupGrantEntry(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "granted")
	entries, err := l.ListEntries(context.Background(), store.LedgerFilter{AccountID: acc.ID}, 0, 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != store.EntrySignupGrant || entries[0].Amount != money.StartingGrant {
		t.Fatalf("entries = %+v, want one signup grant", entries)
	}
}

func TestAuthenticate(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "alice")

	got, err := l.Authenticate(context.Background(), "ALICE ", "secret123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != acc.ID {
		t.Fatalf("id = %s, want %s", got.ID, acc.ID)
	}
	if _, err := l.Authenticate(context.Background(), "alice", "wrong-secret"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("err = %v, want %v", err, ErrBadCredential)
	}
	if _, err := l.Authenticate(context.Background(), "nobody", "secret123"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrAccountNotFound)
	}
}

func TestCreditDebitNeverNegative(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "walker")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	expected := acc.Balance
	for i := 0; i < 300; i++ {
		amount := money.Amount(rng.Int63n(60000) + 1)
		if rng.Intn(2) == 0 {
			if _, err := l.Credit(ctx, acc.ID, amount); err != nil {
				t.Fatalf("credit: %v", err)
			}
			expected += amount
			continue
		}
		_, err := l.Debit(ctx, acc.ID, amount)
		switch {
		case err == nil:
			expected -= amount
		case errors.Is(err, ErrInsufficientFunds):
			if amount <= expected {
				t.Fatalf("debit %s rejected with balance %s", amount, expected)
			}
		default:
			t.Fatalf("debit: %v", err)
		}
		cur, err := l.Get(ctx, acc.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if cur.Balance < 0 {
			t.Fatalf("balance went negative: %s", cur.Balance)
		}
	}
	cur, _ := l.Get(ctx, acc.ID)
	if cur.Balance != expected {
		t.Fatalf("balance = %s, want %s", cur.Balance, expected)
	}
}

func TestDebitInsufficientLeavesBalance(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "broke")
	ctx := context.Background()
	if _, err := l.Debit(ctx, acc.ID, acc.Balance+1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, ErrInsufficientFunds)
	}
	cur, _ := l.Get(ctx, acc.ID)
	if cur.Balance != acc.Balance {
		t.Fatalf("balance = %s, want %s", cur.Balance, acc.Balance)
	}
	if _, err := l.Credit(ctx, acc.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("credit 0 err = %v, want %v", err, ErrInvalidAmount)
	}
	if _, err := l.Debit(ctx, acc.ID, -5); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("debit -5 err = %v, want %v", err, ErrInvalidAmount)
	}
}

func TestConcurrentDebitsSerialize(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "racer")
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Debit(ctx, acc.ID, money.MustParse("30.00")); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 33 {
		t.Fatalf("successful debits = %d, want 33", success)
	}
	cur, _ := l.Get(ctx, acc.ID)
	if cur.Balance != money.MustParse("10.00") {
		t.Fatalf("balance = %s, want 10.00", cur.Balance)
	}
}

func TestResetKeepsHistory(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "resetter")
	ctx := context.Background()
	if _, _, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{wager("m1", "2.0", money.MustParse("400.00"))}); err != nil {
		t.Fatalf("place: %v", err)
	}
	got, err := l.Reset(ctx, acc.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got.Balance != money.StartingGrant {
		t.Fatalf("balance = %s, want %s", got.Balance, money.StartingGrant)
	}
	ws, _ := l.ListWagers(ctx, store.WagerFilter{AccountID: acc.ID}, 0, 0)
	if len(ws) != 1 {
		t.Fatalf("wagers = %d, want 1", len(ws))
	}
}

func TestPlaceAndSettleScenario(t *testing.T) {
	l, rec, _ := newTestLedger(t, nil)
	acc := register(t, l, "bettor")
	ctx := context.Background()

	placed, after, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{wager("m1", "1.75", money.DefaultStake)})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if after.Balance != money.MustParse("990.00") {
		t.Fatalf("balance = %s, want 990.00", after.Balance)
	}
	if placed[0].Status != store.WagerPending || placed[0].PotentialPayout != money.MustParse("17.50") {
		t.Fatalf("wager = %+v", placed[0])
	}

	w, after, err := l.SettleWager(ctx, placed[0].ID, store.WagerWon)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if w.Status != store.WagerWon || w.SettledAt == nil {
		t.Fatalf("settled wager = %+v", w)
	}
	if after.Balance != money.MustParse("1007.50") {
		t.Fatalf("balance = %s, want 1007.50", after.Balance)
	}

	if _, _, err := l.SettleWager(ctx, placed[0].ID, store.WagerLost); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("second settle err = %v, want %v", err, ErrAlreadySettled)
	}
	cur, _ := l.Get(ctx, acc.ID)
	if cur.Balance != money.MustParse("1007.50") {
		t.Fatalf("balance after double settle = %s, want 1007.50", cur.Balance)
	}
	types := rec.Types()
	if len(types) != 2 || types[0] != events.TypeAccountBalance || types[1] != events.TypeAccountBalance {
		t.Fatalf("events = %v", types)
	}
}

func TestSettleLostLeavesBalance(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "loser")
	ctx := context.Background()
	placed, _, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{wager("m1", "3.0", money.MustParse("100.00"))})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	_, after, err := l.SettleWager(ctx, placed[0].ID, store.WagerLost)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if after.Balance != money.MustParse("900.00") {
		t.Fatalf("balance = %s, want 900.00", after.Balance)
	}
	if _, _, err := l.SettleWager(ctx, "missing", store.WagerWon); !errors.Is(err, ErrWagerNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrWagerNotFound)
	}
	if _, _, err := l.SettleWager(ctx, placed[0].ID, "draw"); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidOutcome)
	}
}

func TestPlaceWagersAtomicOnStoreFailure(t *testing.T) {
	mem := store.NewMemory()
	fs := &flakyStore{Store: mem}
	l, _, _ := newTestLedger(t, fs)
	acc := register(t, l, "atomic")
	ctx := context.Background()

	fs.placeErr = errors.New("disk on fire")
	_, _, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{
		wager("m1", "1.5", money.DefaultStake),
		wager("m2", "2.5", money.DefaultStake),
	})
	if err == nil {
		t.Fatal("expected placement error")
	}
	cur, _ := l.Get(ctx, acc.ID)
	if cur.Balance != acc.Balance {
		t.Fatalf("balance = %s, want %s", cur.Balance, acc.Balance)
	}
	ws, _ := mem.ListWagers(ctx, store.WagerFilter{AccountID: acc.ID}, 0, 0)
	if len(ws) != 0 {
		t.Fatalf("wagers = %d, want 0", len(ws))
	}
}

func TestPlaceWagersInsufficientFunds(t *testing.T) {
	l, _, _ := newTestLedger(t, nil)
	acc := register(t, l, "tight")
	_, _, err := l.PlaceWagers(context.Background(), acc.ID, []store.Wager{
		wager("m1", "1.5", money.MustParse("600.00")),
		wager("m2", "1.5", money.MustParse("400.01")),
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, ErrInsufficientFunds)
	}
}

func TestConflictRetries(t *testing.T) {
	fs := &flakyStore{Store: store.NewMemory()}
	l, _, _ := newTestLedger(t, fs)
	acc := register(t, l, "retrier")

	fs.saveConflict = 2
	got, err := l.Credit(context.Background(), acc.ID, money.MustParse("5.00"))
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got.Balance != money.MustParse("1005.00") {
		t.Fatalf("balance = %s, want 1005.00", got.Balance)
	}

	fs.saveConflict = maxCASAttempts
	if _, err := l.Credit(context.Background(), acc.ID, money.MustParse("5.00")); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("err = %v, want %v", err, ErrConcurrentUpdate)
	}
}

func TestCorruptBalanceSurfaces(t *testing.T) {
	fs := &flakyStore{Store: store.NewMemory()}
	l, _, _ := newTestLedger(t, fs)
	acc := register(t, l, "corrupt")
	fs.negative = true
	if _, err := l.Credit(context.Background(), acc.ID, 100); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("err = %v, want %v", err, ErrCorruptState)
	}
}

func TestDeleteAccountCascadesAndEndsSessions(t *testing.T) {
	l, rec, term := newTestLedger(t, nil)
	acc := register(t, l, "leaver")
	ctx := context.Background()
	if _, _, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{wager("m1", "1.9", money.DefaultStake)}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := l.DeleteAccount(ctx, acc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := l.Get(ctx, acc.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("get err = %v, want %v", err, ErrAccountNotFound)
	}
	ws, _ := l.ListWagers(ctx, store.WagerFilter{AccountID: acc.ID}, 0, 0)
	if len(ws) != 0 {
		t.Fatalf("wagers = %d, want 0", len(ws))
	}
	if len(term.ended) != 1 || term.ended[0] != acc.ID {
		t.Fatalf("ended = %v, want [%s]", term.ended, acc.ID)
	}
	types := rec.Types()
	if types[len(types)-1] != events.TypeAccountDeleted {
		t.Fatalf("last event = %s, want %s", types[len(types)-1], events.TypeAccountDeleted)
	}
	if err := l.DeleteAccount(ctx, acc.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("second delete err = %v, want %v", err, ErrAccountNotFound)
	}
	// the name is free again
	register(t, l, "leaver")
}

func TestVerifySecret(t *testing.T) {
	hash, err := HashSecret("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("hash = %q, unexpected prefix", hash)
	}
	ok, err := VerifySecret(hash, "hunter22")
	if err != nil || !ok {
		t.Fatalf("verify = %v, %v; want true", ok, err)
	}
	ok, err = VerifySecret(hash, "hunter23")
	if err != nil || ok {
		t.Fatalf("verify wrong = %v, %v; want false", ok, err)
	}
	if _, err := VerifySecret("salt$hash", "x"); err == nil {
		t.Fatal("expected malformed hash error")
	}
}

func TestPlaceWagersRejectsOversizedStakes(t *testing.T) {
	st := store.NewMemory()
	l, _, _ := newTestLedger(t, st)
	acc := register(t, l, "whale")
	ctx := context.Background()

	huge := money.Amount(5_000_000_000_000_000_000)
	_, _, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{
		wager("m1", "1.5", huge),
		wager("m2", "1.5", huge),
	})
	if !errors.Is(err, ErrInvalidWager) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidWager)
	}
	_, _, err = l.PlaceWagers(ctx, acc.ID, []store.Wager{wager("m1", "1.5", money.MaxAmount+1)})
	if !errors.Is(err, ErrInvalidWager) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidWager)
	}

	got, err := l.Get(ctx, acc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != acc.Balance {
		t.Fatalf("balance = %s, want %s", got.Balance, acc.Balance)
	}
	ws, err := l.ListWagers(ctx, store.WagerFilter{AccountID: acc.ID}, 10, 0)
	if err != nil || len(ws) != 0 {
		t.Fatalf("wagers = %v, %v, want none", ws, err)
	}
}

func TestBalanceNearLimitRefusesOverflow(t *testing.T) {
	st := store.NewMemory()
	l, _, _ := newTestLedger(t, st)
	ctx := context.Background()
	now := time.Now().UTC()
	acc := store.Account{ID: store.NewID(), DisplayName: "edge", CredentialHash: "x", Balance: math.MaxInt64 - 100, CreatedAt: now, UpdatedAt: now}
	if err := st.CreateAccount(ctx, acc, nil); err != nil {
		t.Fatalf("create account: %v", err)
	}

	if _, err := l.Credit(ctx, acc.ID, money.MustParse("5.00")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("credit err = %v, want %v", err, ErrInvalidAmount)
	}

	placed, _, err := l.PlaceWagers(ctx, acc.ID, []store.Wager{wager("m1", "1.75", money.MustParse("10.00"))})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, _, err := l.SettleWager(ctx, placed[0].ID, store.WagerWon); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("settle err = %v, want %v", err, ErrInvalidAmount)
	}
	w, err := st.GetWager(ctx, placed[0].ID)
	if err != nil {
		t.Fatalf("get wager: %v", err)
	}
	if w.Status != store.WagerPending {
		t.Fatalf("status = %s, want pending", w.Status)
	}
	got, _ := l.Get(ctx, acc.ID)
	if want := money.Amount(math.MaxInt64 - 100 - 1000); got.Balance != want {
		t.Fatalf("balance = %d, want %d", int64(got.Balance), int64(want))
	}
}
