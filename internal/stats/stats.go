package stats

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"betpro/internal/money"
	"betpro/internal/store"
)

const (
	BadgeVeteran      = "veteran"
	BadgeSharpshooter = "sharpshooter"
	BadgeProfitable   = "profitable"
	BadgeRegular      = "regular"
)

// profitableAt is 500.00 in minor units.
const profitableAt money.Amount = 50000

var ErrAccountNotFound = errors.New("account_not_found")

type Summary struct {
	AccountID    string       `json:"account_id"`
	DisplayName  string       `json:"display_name"`
	Balance      money.Amount `json:"balance"`
	CreatedAt    time.Time    `json:"created_at"`
	TotalBets    int          `json:"total_bets"`
	Won          int          `json:"won"`
	Lost         int          `json:"lost"`
	Pending      int          `json:"pending"`
	TotalWagered money.Amount `json:"total_wagered"`
	TotalWon     money.Amount `json:"total_won"`
	WinRate      float64      `json:"win_rate"`
	ProfitLoss   money.Amount `json:"profit_loss"`
	Rank         int          `json:"rank"`
	Badges       []string     `json:"badges"`
}

// Summarize folds an account's wagers into its betting record. Win rate is
// over settled wagers only, as a percentage with one decimal.
func Summarize(acc store.Account, wagers []store.Wager) Summary {
	s := Summary{
		AccountID:   acc.ID,
		DisplayName: acc.DisplayName,
		Balance:     acc.Balance,
		CreatedAt:   acc.CreatedAt,
		TotalBets:   len(wagers),
	}
	for _, w := range wagers {
		s.TotalWagered += w.Stake
		switch w.Status {
		case store.WagerWon:
			s.Won++
			s.TotalWon += w.PotentialPayout
		case store.WagerLost:
			s.Lost++
		default:
			s.Pending++
		}
	}
	if settled := s.Won + s.Lost; settled > 0 {
		s.WinRate = math.Round(float64(s.Won)/float64(settled)*1000) / 10
	}
	s.ProfitLoss = s.TotalWon - s.TotalWagered
	s.Badges = Badges(s)
	return s
}

func Badges(s Summary) []string {
	out := []string{}
	if s.Won >= 10 {
		out = append(out, BadgeVeteran)
	}
	if s.WinRate >= 60 && s.TotalBets >= 5 {
		out = append(out, BadgeSharpshooter)
	}
	if s.ProfitLoss >= profitableAt {
		out = append(out, BadgeProfitable)
	}
	if s.TotalBets >= 50 {
		out = append(out, BadgeRegular)
	}
	return out
}

// Rank orders by profit descending, ties by display name, and numbers from 1.
func Rank(sums []Summary) {
	sort.SliceStable(sums, func(i, j int) bool {
		if sums[i].ProfitLoss != sums[j].ProfitLoss {
			return sums[i].ProfitLoss > sums[j].ProfitLoss
		}
		return sums[i].DisplayName < sums[j].DisplayName
	})
	for i := range sums {
		sums[i].Rank = i + 1
	}
}

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Leaderboard ranks every account on wagers placed at or after since; a nil
// since covers all history.
func (s *Service) Leaderboard(ctx context.Context, since *time.Time) ([]Summary, error) {
	accounts, err := s.store.ListAccounts(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	wagers, err := s.store.ListWagers(ctx, store.WagerFilter{From: since}, 0, 0)
	if err != nil {
		return nil, err
	}
	byAccount := make(map[string][]store.Wager, len(accounts))
	for _, w := range wagers {
		byAccount[w.AccountID] = append(byAccount[w.AccountID], w)
	}
	out := make([]Summary, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, Summarize(acc, byAccount[acc.ID]))
	}
	Rank(out)
	return out, nil
}

func (s *Service) AccountSummary(ctx context.Context, accountID string) (Summary, error) {
	board, err := s.Leaderboard(ctx, nil)
	if err != nil {
		return Summary{}, err
	}
	for _, sum := range board {
		if sum.AccountID == accountID {
			return sum, nil
		}
	}
	return Summary{}, ErrAccountNotFound
}
