package public

import (
	"context"
	"time"

	"betpro/internal/stats"
)

type Service struct {
	stats *stats.Service
}

const leaderboardMaxRows = 100

func NewService(st *stats.Service) *Service {
	return &Service{stats: st}
}

func (s *Service) Leaderboard(ctx context.Context, window string, limit, offset int) (*LeaderboardResponse, error) {
	if !isAllowedWindow(window) {
		return nil, ErrInvalidRequest
	}
	board, err := s.stats.Leaderboard(ctx, leaderboardWindowStart(window))
	if err != nil {
		return nil, err
	}
	if len(board) > leaderboardMaxRows {
		board = board[:leaderboardMaxRows]
	}
	total := len(board)
	limit, ok := clampLeaderboardPage(limit, offset)
	if !ok || offset >= total {
		return &LeaderboardResponse{Window: window, Items: []LeaderboardItem{}, Total: total, Limit: limit, Offset: offset}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]LeaderboardItem, 0, end-offset)
	for _, it := range board[offset:end] {
		out = append(out, LeaderboardItem{
			Rank:        it.Rank,
			AccountID:   it.AccountID,
			DisplayName: it.DisplayName,
			TotalBets:   it.TotalBets,
			Won:         it.Won,
			Lost:        it.Lost,
			WinRate:     it.WinRate,
			ProfitLoss:  it.ProfitLoss,
			Badges:      it.Badges,
		})
	}
	return &LeaderboardResponse{Window: window, Items: out, Total: total, Limit: limit, Offset: offset}, nil
}

func isAllowedWindow(v string) bool {
	return v == "7d" || v == "30d" || v == "all"
}

func leaderboardWindowStart(window string) *time.Time {
	now := time.Now().UTC()
	switch window {
	case "7d":
		ts := now.Add(-7 * 24 * time.Hour)
		return &ts
	case "30d":
		ts := now.Add(-30 * 24 * time.Hour)
		return &ts
	default:
		return nil
	}
}

func clampLeaderboardPage(limit, offset int) (int, bool) {
	if offset >= leaderboardMaxRows {
		return 0, false
	}
	if limit <= 0 {
		limit = 50
	}
	remaining := leaderboardMaxRows - offset
	if limit > remaining {
		limit = remaining
	}
	return limit, true
}
