package public

import "betpro/internal/money"

type LeaderboardResponse struct {
	Window string            `json:"window"`
	Items  []LeaderboardItem `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

type LeaderboardItem struct {
	Rank        int          `json:"rank"`
	AccountID   string       `json:"account_id"`
	DisplayName string       `json:"display_name"`
	TotalBets   int          `json:"total_bets"`
	Won         int          `json:"won"`
	Lost        int          `json:"lost"`
	WinRate     float64      `json:"win_rate"`
	ProfitLoss  money.Amount `json:"profit_loss"`
	Badges      []string     `json:"badges"`
}
