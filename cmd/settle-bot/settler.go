package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"betpro/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

type pendingWager struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	MatchID   string `json:"match_id"`
}

type wagerPage struct {
	Items []pendingWager `json:"items"`
}

type apiError struct {
	Error string `json:"error"`
}

// settler resolves pending wagers through the admin API.
type settler struct {
	client  *resty.Client
	outcome string
	winRate float64
	batch   int
	rnd     *rand.Rand
}

func newSettler(cfg config.SettlerConfig, seed int64) (*settler, error) {
	outcome := strings.ToLower(strings.TrimSpace(cfg.Outcome))
	switch outcome {
	case "random", "won", "lost":
	default:
		return nil, fmt.Errorf("SETTLE_OUTCOME must be random, won or lost, got %q", cfg.Outcome)
	}
	if cfg.WinRate < 0 || cfg.WinRate > 1 {
		return nil, fmt.Errorf("SETTLE_WIN_RATE must be within [0,1], got %v", cfg.WinRate)
	}
	batch := cfg.Batch
	if batch <= 0 {
		batch = 50
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("X-Admin-Key", cfg.AdminAPIKey).
		SetHeader("User-Agent", "betpro-settle-bot")
	return &settler{
		client:  client,
		outcome: outcome,
		winRate: cfg.WinRate,
		batch:   batch,
		rnd:     rand.New(rand.NewSource(seed)),
	}, nil
}

func (s *settler) pick() string {
	if s.outcome != "random" {
		return s.outcome
	}
	if s.rnd.Float64() < s.winRate {
		return "won"
	}
	return "lost"
}

// runOnce settles one batch of pending wagers and reports how many it
// resolved. A wager another trigger settled first counts as resolved.
func (s *settler) runOnce(ctx context.Context) (int, error) {
	var page wagerPage
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("status", "pending").
		SetQueryParam("limit", fmt.Sprint(s.batch)).
		SetResult(&page).
		Get("/api/admin/wagers")
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("list pending wagers: status %d", resp.StatusCode())
	}

	settled := 0
	for _, w := range page.Items {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		outcome := s.pick()
		var apiErr apiError
		resp, err := s.client.R().
			SetContext(ctx).
			SetBody(map[string]string{"outcome": outcome}).
			SetError(&apiErr).
			Post("/api/admin/wagers/" + w.ID + "/settle")
		if err != nil {
			log.Error().Err(err).Str("wager_id", w.ID).Msg("settle request failed")
			continue
		}
		switch {
		case resp.StatusCode() == http.StatusOK:
			settled++
			log.Info().Str("wager_id", w.ID).Str("account_id", w.AccountID).Str("outcome", outcome).Msg("wager settled")
		case resp.StatusCode() == http.StatusConflict && apiErr.Error == "already_settled":
			settled++
		default:
			log.Warn().Str("wager_id", w.ID).Int("status", resp.StatusCode()).Str("error", apiErr.Error).Msg("settle rejected")
		}
	}
	return settled, nil
}
