package betslip

import (
	"strings"
	"sync"

	"betpro/internal/money"
	"betpro/internal/store"
)

type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
	// SideDraw exists for match models that quote it; slips do not accept it.
	SideDraw Side = "draw"
)

func (s Side) Valid() bool {
	return s == SideHome || s == SideAway || s == SideDraw
}

type State string

const (
	StateEmpty      State = "empty"
	StateBuilding   State = "building"
	StateSubmitting State = "submitting"
)

// MatchInfo holds the display fields of a match as supplied by the caller.
type MatchInfo struct {
	HomeTeam string `json:"home_team,omitempty"`
	AwayTeam string `json:"away_team,omitempty"`
	League   string `json:"league,omitempty"`
}

type Selection struct {
	ID      string       `json:"id"`
	MatchID string       `json:"match_id"`
	Side    Side         `json:"side"`
	Price   money.Price  `json:"price"`
	Stake   money.Amount `json:"stake"`
	MatchInfo
}

func (s Selection) PotentialPayout() money.Amount {
	return money.Payout(s.Stake, s.Price)
}

func (s Selection) SelectedTeam() string {
	switch s.Side {
	case SideHome:
		return s.HomeTeam
	case SideAway:
		return s.AwayTeam
	}
	return ""
}

type Totals struct {
	TotalStake           money.Amount `json:"total_stake"`
	TotalPotentialPayout money.Amount `json:"total_potential_payout"`
}

// Slip is the set of selections one session is building. It is safe for
// concurrent use; edits are refused while a submit is in flight.
type Slip struct {
	mu           sync.Mutex
	selections   []Selection
	open         bool
	submitting   bool
	errMsg       string
	defaultStake money.Amount
}

func NewSlip(defaultStake money.Amount) *Slip {
	if defaultStake < money.MinStake {
		defaultStake = money.DefaultStake
	}
	return &Slip{defaultStake: defaultStake}
}

// AddSelection puts a selection for matchID on the slip at the default stake.
// An existing selection for the same match is replaced at its position.
func (s *Slip) AddSelection(matchID string, side Side, price money.Price, info MatchInfo) (Selection, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" || !price.Valid() || !side.Valid() {
		return Selection{}, ErrInvalidSelection
	}
	if side == SideDraw {
		return Selection{}, ErrUnsupportedSide
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return Selection{}, ErrSubmitInProgress
	}
	sel := Selection{
		ID:        store.NewID(),
		MatchID:   matchID,
		Side:      side,
		Price:     price,
		Stake:     s.defaultStake,
		MatchInfo: info,
	}
	if i := s.indexOfMatch(matchID); i >= 0 {
		s.selections[i] = sel
	} else {
		s.selections = append(s.selections, sel)
	}
	s.open = true
	return sel, nil
}

// UpdateStake sets a selection's stake, raising anything under the minimum
// stake to the minimum. Stakes above money.MaxAmount are refused.
func (s *Slip) UpdateStake(selectionID string, stake money.Amount) (Selection, error) {
	if stake > money.MaxAmount {
		return Selection{}, ErrStakeTooLarge
	}
	if stake < money.MinStake {
		stake = money.MinStake
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return Selection{}, ErrSubmitInProgress
	}
	i := s.indexOfID(selectionID)
	if i < 0 {
		return Selection{}, ErrSelectionNotFound
	}
	s.selections[i].Stake = stake
	return s.selections[i], nil
}

func (s *Slip) RemoveSelection(selectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return ErrSubmitInProgress
	}
	i := s.indexOfID(selectionID)
	if i < 0 {
		return ErrSelectionNotFound
	}
	s.selections = append(s.selections[:i], s.selections[i+1:]...)
	return nil
}

// Clear drops every selection and any error left by a failed submit.
func (s *Slip) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return ErrSubmitInProgress
	}
	s.selections = nil
	s.errMsg = ""
	return nil
}

func (s *Slip) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalsOf(s.selections)
}

// totalsOf saturates instead of wrapping, so an oversized slip can never
// look affordable.
func totalsOf(sels []Selection) Totals {
	var t Totals
	for _, sel := range sels {
		t.TotalStake = money.Sum(t.TotalStake, sel.Stake)
		t.TotalPotentialPayout = money.Sum(t.TotalPotentialPayout, sel.PotentialPayout())
	}
	return t
}

func (s *Slip) Selections() []Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Selection(nil), s.selections...)
}

func (s *Slip) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selections)
}

func (s *Slip) HasSelection(matchID string) bool {
	_, ok := s.SelectionFor(matchID)
	return ok
}

func (s *Slip) SelectionFor(matchID string) (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfMatch(matchID); i >= 0 {
		return s.selections[i], true
	}
	return Selection{}, false
}

func (s *Slip) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

func (s *Slip) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

func (s *Slip) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	return s.open
}

func (s *Slip) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// ErrorMessage returns the message left by the last failed submit.
func (s *Slip) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Slip) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Slip) stateLocked() State {
	switch {
	case s.submitting:
		return StateSubmitting
	case len(s.selections) == 0:
		return StateEmpty
	default:
		return StateBuilding
	}
}

type View struct {
	State      State       `json:"state"`
	Open       bool        `json:"open"`
	Error      string      `json:"error,omitempty"`
	Selections []Selection `json:"selections"`
	Totals     Totals      `json:"totals"`
}

func (s *Slip) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:      s.stateLocked(),
		Open:       s.open,
		Error:      s.errMsg,
		Selections: append([]Selection{}, s.selections...),
		Totals:     totalsOf(s.selections),
	}
}

// beginSubmit freezes the slip and returns the selections to place.
func (s *Slip) beginSubmit() ([]Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return nil, ErrSubmitInProgress
	}
	if len(s.selections) == 0 {
		s.errMsg = Message(ErrEmpty)
		return nil, ErrEmpty
	}
	s.submitting = true
	s.errMsg = ""
	return append([]Selection(nil), s.selections...), nil
}

// finishSubmit empties the slip on success; on failure the selections stay
// and the error message is set.
func (s *Slip) finishSubmit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		s.errMsg = Message(err)
		return
	}
	s.selections = nil
	s.errMsg = ""
}

// adopt moves selections from other onto s where s has none for that match.
func (s *Slip) adopt(other []Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return
	}
	for _, sel := range other {
		if s.indexOfMatch(sel.MatchID) < 0 {
			s.selections = append(s.selections, sel)
		}
	}
}

func (s *Slip) indexOfMatch(matchID string) int {
	for i, sel := range s.selections {
		if sel.MatchID == matchID {
			return i
		}
	}
	return -1
}

func (s *Slip) indexOfID(id string) int {
	for i, sel := range s.selections {
		if sel.ID == id {
			return i
		}
	}
	return -1
}
