package betslip

import (
	"context"
	"errors"
	"testing"
	"time"

	"betpro/internal/events"
	"betpro/internal/ledger"
	"betpro/internal/money"
	"betpro/internal/store"
)

type failingStore struct {
	store.Store
	placeErr error
}

func (s *failingStore) PlaceWagers(ctx context.Context, acc store.Account, ws []store.Wager, es []store.LedgerEntry) error {
	if s.placeErr != nil {
		return s.placeErr
	}
	return s.Store.PlaceWagers(ctx, acc, ws, es)
}

type fixture struct {
	store  *failingStore
	ledger *ledger.Ledger
	engine *Engine
	events *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := &failingStore{Store: store.NewMemory()}
	rec := &events.Recorder{}
	l := ledger.New(fs, ledger.Options{})
	return &fixture{store: fs, ledger: l, engine: NewEngine(l, rec), events: rec}
}

func (f *fixture) account(t *testing.T, name string, balance money.Amount) string {
	t.Helper()
	now := time.Now().UTC()
	acc := store.Account{ID: store.NewID(), DisplayName: name, CredentialHash: "x", Balance: balance, CreatedAt: now, UpdatedAt: now}
	if err := f.store.CreateAccount(context.Background(), acc, nil); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc.ID
}

func (f *fixture) balance(t *testing.T, id string) money.Amount {
	t.Helper()
	acc, err := f.ledger.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return acc.Balance
}

func TestSubmitAndSettleWon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "punter", money.MustParse("1000"))
	slip := NewSlip(money.DefaultStake)
	if _, err := slip.AddSelection("m1", SideHome, money.MustPrice("1.75"), MatchInfo{HomeTeam: "Home FC", AwayTeam: "Away FC"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !f.engine.CanSubmit(ctx, slip, id) {
		t.Fatal("can submit = false, want true")
	}

	res, err := f.engine.Submit(ctx, slip, id)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := f.balance(t, id); got != money.MustParse("990.00") {
		t.Fatalf("balance = %s, want 990.00", got)
	}
	if len(res.Wagers) != 1 || res.Wagers[0].Status != store.WagerPending {
		t.Fatalf("wagers = %+v", res.Wagers)
	}
	w := res.Wagers[0]
	if w.SelectedTeam != "Home FC" || w.PotentialPayout != money.MustParse("17.50") {
		t.Fatalf("wager snapshot = %+v", w)
	}
	if slip.State() != StateEmpty || slip.Len() != 0 {
		t.Fatalf("slip state = %s len = %d, want empty", slip.State(), slip.Len())
	}

	settled, err := f.engine.Settle(ctx, w.ID, store.WagerWon)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != store.WagerWon {
		t.Fatalf("status = %s, want won", settled.Status)
	}
	if got := f.balance(t, id); got != money.MustParse("1007.50") {
		t.Fatalf("balance = %s, want 1007.50", got)
	}
	if _, err := f.engine.Settle(ctx, w.ID, store.WagerWon); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("err = %v, want %v", err, ErrAlreadySettled)
	}
	if got := f.balance(t, id); got != money.MustParse("1007.50") {
		t.Fatalf("balance after second settle = %s, want 1007.50", got)
	}

	var placed, settledEv int
	for _, ev := range f.events.Events() {
		switch ev.Type {
		case events.TypeWagerPlaced:
			placed++
		case events.TypeWagerSettled:
			settledEv++
		}
	}
	if placed != 1 || settledEv != 1 {
		t.Fatalf("placed events = %d settled events = %d, want 1 and 1", placed, settledEv)
	}
}

func TestSubmitInsufficientFundsKeepsSlip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "skint", money.MustParse("5"))
	slip := NewSlip(money.DefaultStake)
	_, _ = slip.AddSelection("m1", SideHome, money.MustPrice("2.0"), MatchInfo{})

	if f.engine.CanSubmit(ctx, slip, id) {
		t.Fatal("can submit = true, want false")
	}
	if _, err := f.engine.Submit(ctx, slip, id); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, ErrInsufficientFunds)
	}
	if got := f.balance(t, id); got != money.MustParse("5.00") {
		t.Fatalf("balance = %s, want 5.00", got)
	}
	if slip.Len() != 1 || slip.State() != StateBuilding {
		t.Fatalf("slip len = %d state = %s, want 1 building", slip.Len(), slip.State())
	}
	if slip.ErrorMessage() != Message(ErrInsufficientFunds) {
		t.Fatalf("message = %q", slip.ErrorMessage())
	}
}

func TestSubmitPreconditionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := NewSlip(money.DefaultStake)
	if _, err := f.engine.Submit(ctx, empty, ""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want %v", err, ErrEmpty)
	}

	slip := NewSlip(money.DefaultStake)
	_, _ = slip.AddSelection("m1", SideHome, money.MustPrice("2.0"), MatchInfo{})
	if f.engine.CanSubmit(ctx, slip, "") {
		t.Fatal("can submit without session")
	}
	if _, err := f.engine.Submit(ctx, slip, ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want %v", err, ErrNotAuthenticated)
	}
	if _, err := f.engine.Submit(ctx, slip, "deleted-account"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want %v", err, ErrNotAuthenticated)
	}
	if slip.Len() != 1 {
		t.Fatalf("slip len = %d, want 1", slip.Len())
	}
}

func TestSubmitPlacementFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "unlucky", money.MustParse("1000"))
	slip := NewSlip(money.DefaultStake)
	_, _ = slip.AddSelection("m1", SideHome, money.MustPrice("1.5"), MatchInfo{})
	_, _ = slip.AddSelection("m2", SideAway, money.MustPrice("2.5"), MatchInfo{})

	f.store.placeErr = errors.New("connection reset")
	_, err := f.engine.Submit(ctx, slip, id)
	if !errors.Is(err, ErrPlacementFailed) || !Retryable(err) {
		t.Fatalf("err = %v, want retryable %v", err, ErrPlacementFailed)
	}
	if got := f.balance(t, id); got != money.MustParse("1000.00") {
		t.Fatalf("balance = %s, want 1000.00", got)
	}
	ws, _ := f.ledger.ListWagers(ctx, store.WagerFilter{AccountID: id}, 0, 0)
	if len(ws) != 0 {
		t.Fatalf("wagers = %d, want 0", len(ws))
	}
	if slip.Len() != 2 || slip.State() != StateBuilding {
		t.Fatalf("slip len = %d state = %s, want 2 building", slip.Len(), slip.State())
	}

	f.store.placeErr = nil
	res, err := f.engine.Submit(ctx, slip, id)
	if err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if len(res.Wagers) != 2 {
		t.Fatalf("wagers = %d, want 2", len(res.Wagers))
	}
	if got := f.balance(t, id); got != money.MustParse("980.00") {
		t.Fatalf("balance = %s, want 980.00", got)
	}
}

func TestSettleLostAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "sadpunter", money.MustParse("100"))
	slip := NewSlip(money.DefaultStake)
	_, _ = slip.AddSelection("m1", SideAway, money.MustPrice("4.0"), MatchInfo{})
	res, err := f.engine.Submit(ctx, slip, id)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.engine.Settle(ctx, res.Wagers[0].ID, store.WagerLost); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if got := f.balance(t, id); got != money.MustParse("90.00") {
		t.Fatalf("balance = %s, want 90.00", got)
	}
	if _, err := f.engine.Settle(ctx, "nope", store.WagerWon); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrNotFound)
	}
}

func TestSubmitOversizedStakesCannotWrapBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, "whale", money.MustParse("1000.00"))
	slip := NewSlip(money.DefaultStake)
	_, _ = slip.AddSelection("m1", SideHome, money.MustPrice("1.5"), MatchInfo{})
	_, _ = slip.AddSelection("m2", SideAway, money.MustPrice("1.5"), MatchInfo{})
	slip.mu.Lock()
	for i := range slip.selections {
		slip.selections[i].Stake = 5_000_000_000_000_000_000
	}
	slip.mu.Unlock()

	if got := slip.Totals().TotalStake; got <= 0 {
		t.Fatalf("total stake = %d, want positive", int64(got))
	}
	if f.engine.CanSubmit(ctx, slip, id) {
		t.Fatal("can submit = true, want false")
	}
	if _, err := f.engine.Submit(ctx, slip, id); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want %v", err, ErrInsufficientFunds)
	}
	if got := f.balance(t, id); got != money.MustParse("1000.00") {
		t.Fatalf("balance = %s, want 1000.00", got)
	}
	ws, err := f.ledger.ListWagers(ctx, store.WagerFilter{AccountID: id}, 10, 0)
	if err != nil || len(ws) != 0 {
		t.Fatalf("wagers = %v, %v, want none", ws, err)
	}
}
