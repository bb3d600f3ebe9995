package betslip

import (
	"context"
	"errors"

	"betpro/internal/events"
	"betpro/internal/ledger"
	"betpro/internal/store"

	"github.com/rs/zerolog/log"
)

// Accounts is the part of the ledger the engine places and settles against.
type Accounts interface {
	Get(ctx context.Context, accountID string) (*store.Account, error)
	PlaceWagers(ctx context.Context, accountID string, wagers []store.Wager) ([]store.Wager, *store.Account, error)
	SettleWager(ctx context.Context, wagerID string, outcome store.WagerStatus) (*store.Wager, *store.Account, error)
}

type Engine struct {
	accounts Accounts
	pub      events.Publisher
}

func NewEngine(accounts Accounts, pub events.Publisher) *Engine {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Engine{accounts: accounts, pub: pub}
}

type SubmitResult struct {
	Wagers  []store.Wager  `json:"wagers"`
	Account *store.Account `json:"-"`
}

// CanSubmit reports whether a submit would pass its business checks right now.
// An empty accountID means there is no active session.
func (e *Engine) CanSubmit(ctx context.Context, slip *Slip, accountID string) bool {
	if accountID == "" || slip.Len() == 0 || slip.State() == StateSubmitting {
		return false
	}
	acc, err := e.accounts.Get(ctx, accountID)
	if err != nil {
		return false
	}
	return slip.Totals().TotalStake <= acc.Balance
}

// Submit turns every selection into a pending wager in one atomic placement.
// On success the slip is emptied; on any failure it keeps its selections and
// records the error message.
func (e *Engine) Submit(ctx context.Context, slip *Slip, accountID string) (*SubmitResult, error) {
	sels, err := slip.beginSubmit()
	if err != nil {
		metricSubmissionsTotal.WithLabelValues(submissionResult(err)).Inc()
		return nil, err
	}
	res, err := e.place(ctx, sels, accountID)
	slip.finishSubmit(err)
	metricSubmissionsTotal.WithLabelValues(submissionResult(err)).Inc()
	if err != nil {
		return nil, err
	}
	metricWagersPlacedTotal.Add(float64(len(res.Wagers)))
	for _, w := range res.Wagers {
		e.pub.Publish(events.New(events.TypeWagerPlaced, accountID, w))
	}
	log.Info().
		Str("account_id", accountID).
		Int("wagers", len(res.Wagers)).
		Str("balance", res.Account.Balance.String()).
		Msg("slip submitted")
	return res, nil
}

func (e *Engine) place(ctx context.Context, sels []Selection, accountID string) (*SubmitResult, error) {
	if accountID == "" {
		return nil, ErrNotAuthenticated
	}
	acc, err := e.accounts.Get(ctx, accountID)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, &PlacementError{Cause: err}
	}
	if totalsOf(sels).TotalStake > acc.Balance {
		return nil, ErrInsufficientFunds
	}

	wagers := make([]store.Wager, len(sels))
	for i, sel := range sels {
		wagers[i] = store.Wager{
			MatchID:      sel.MatchID,
			HomeTeam:     sel.HomeTeam,
			AwayTeam:     sel.AwayTeam,
			League:       sel.League,
			Side:         string(sel.Side),
			SelectedTeam: sel.SelectedTeam(),
			Price:        sel.Price,
			Stake:        sel.Stake,
		}
	}
	placed, after, err := e.accounts.PlaceWagers(ctx, accountID, wagers)
	switch {
	case err == nil:
		return &SubmitResult{Wagers: placed, Account: after}, nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return nil, ErrInsufficientFunds
	case errors.Is(err, ledger.ErrAccountNotFound):
		return nil, ErrNotAuthenticated
	case errors.Is(err, ledger.ErrCorruptState):
		return nil, err
	default:
		log.Error().Err(err).Str("account_id", accountID).Msg("wager placement failed")
		return nil, &PlacementError{Cause: err}
	}
}

// Settle resolves a pending wager and credits its payout when won.
func (e *Engine) Settle(ctx context.Context, wagerID string, outcome store.WagerStatus) (*store.Wager, error) {
	w, _, err := e.accounts.SettleWager(ctx, wagerID, outcome)
	if err != nil {
		return nil, err
	}
	metricWagersSettledTotal.WithLabelValues(string(w.Status)).Inc()
	e.pub.Publish(events.New(events.TypeWagerSettled, w.AccountID, w))
	return w, nil
}
