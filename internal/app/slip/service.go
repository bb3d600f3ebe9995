package slip

import (
	"context"
	"strings"

	"betpro/internal/betslip"
	"betpro/internal/money"
)

// Service exposes slip operations by slip key. The key is the session id for
// signed-in callers and a client-held slip id otherwise; accountID is empty
// for anonymous callers.
type Service struct {
	hub    *betslip.Hub
	engine *betslip.Engine
}

func NewService(hub *betslip.Hub, engine *betslip.Engine) *Service {
	return &Service{hub: hub, engine: engine}
}

func (s *Service) View(ctx context.Context, key, accountID string) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) Add(ctx context.Context, key, accountID string, in AddInput) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	_, err = sl.AddSelection(in.MatchID, betslip.Side(strings.ToLower(in.Side)), in.Price, betslip.MatchInfo{
		HomeTeam: in.HomeTeam,
		AwayTeam: in.AwayTeam,
		League:   in.League,
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) UpdateStake(ctx context.Context, key, accountID, selectionID string, stake money.Amount) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	if _, err := sl.UpdateStake(selectionID, stake); err != nil {
		return nil, err
	}
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) Remove(ctx context.Context, key, accountID, selectionID string) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	if err := sl.RemoveSelection(selectionID); err != nil {
		return nil, err
	}
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) Clear(ctx context.Context, key, accountID string) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	if err := sl.Clear(); err != nil {
		return nil, err
	}
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) Toggle(ctx context.Context, key, accountID string) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	sl.Toggle()
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) Close(ctx context.Context, key, accountID string) (*SlipResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	sl.Close()
	return s.render(ctx, key, accountID, sl), nil
}

func (s *Service) Submit(ctx context.Context, key, accountID string) (*SubmitResponse, error) {
	sl, err := s.slip(key)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Submit(ctx, sl, accountID)
	if err != nil {
		return nil, err
	}
	return &SubmitResponse{Wagers: res.Wagers, Balance: res.Account.Balance}, nil
}

func (s *Service) slip(key string) (*betslip.Slip, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidRequest
	}
	return s.hub.Get(key), nil
}

func (s *Service) render(ctx context.Context, key, accountID string, sl *betslip.Slip) *SlipResponse {
	v := sl.View()
	out := &SlipResponse{
		State:                v.State,
		Open:                 v.Open,
		Error:                v.Error,
		Selections:           make([]SelectionView, 0, len(v.Selections)),
		TotalStake:           v.Totals.TotalStake,
		TotalPotentialPayout: v.Totals.TotalPotentialPayout,
		CanSubmit:            s.engine.CanSubmit(ctx, sl, accountID),
	}
	for _, sel := range v.Selections {
		out.Selections = append(out.Selections, selectionView(sel))
	}
	return out
}
