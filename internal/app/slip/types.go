package slip

import (
	"betpro/internal/betslip"
	"betpro/internal/money"
	"betpro/internal/store"
)

type AddInput struct {
	MatchID  string
	Side     string
	Price    money.Price
	HomeTeam string
	AwayTeam string
	League   string
}

type SelectionView struct {
	ID              string       `json:"id"`
	MatchID         string       `json:"match_id"`
	Side            string       `json:"side"`
	SelectedTeam    string       `json:"selected_team"`
	HomeTeam        string       `json:"home_team,omitempty"`
	AwayTeam        string       `json:"away_team,omitempty"`
	League          string       `json:"league,omitempty"`
	Price           money.Price  `json:"price"`
	Stake           money.Amount `json:"stake"`
	PotentialPayout money.Amount `json:"potential_payout"`
}

type SlipResponse struct {
	State                betslip.State   `json:"state"`
	Open                 bool            `json:"open"`
	Error                string          `json:"error,omitempty"`
	Selections           []SelectionView `json:"selections"`
	TotalStake           money.Amount    `json:"total_stake"`
	TotalPotentialPayout money.Amount    `json:"total_potential_payout"`
	CanSubmit            bool            `json:"can_submit"`
}

type SubmitResponse struct {
	Wagers  []store.Wager `json:"wagers"`
	Balance money.Amount  `json:"balance"`
}

func selectionView(sel betslip.Selection) SelectionView {
	return SelectionView{
		ID:              sel.ID,
		MatchID:         sel.MatchID,
		Side:            string(sel.Side),
		SelectedTeam:    sel.SelectedTeam(),
		HomeTeam:        sel.HomeTeam,
		AwayTeam:        sel.AwayTeam,
		League:          sel.League,
		Price:           sel.Price,
		Stake:           sel.Stake,
		PotentialPayout: sel.PotentialPayout(),
	}
}
