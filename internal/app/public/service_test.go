package public

import (
	"context"
	"errors"
	"testing"
	"time"

	"betpro/internal/money"
	"betpro/internal/stats"
	"betpro/internal/store"
)

func TestClampLeaderboardPage(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		offset    int
		wantLimit int
		wantOK    bool
	}{
		{name: "default limit", limit: 0, offset: 0, wantLimit: 50, wantOK: true},
		{name: "explicit small limit", limit: 20, offset: 0, wantLimit: 20, wantOK: true},
		{name: "limit clipped at top100 boundary", limit: 10, offset: 95, wantLimit: 5, wantOK: true},
		{name: "limit exactly remaining", limit: 1, offset: 99, wantLimit: 1, wantOK: true},
		{name: "offset 100 rejected", limit: 10, offset: 100, wantLimit: 0, wantOK: false},
		{name: "offset beyond 100 rejected", limit: 10, offset: 150, wantLimit: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit, gotOK := clampLeaderboardPage(tt.limit, tt.offset)
			if gotOK != tt.wantOK {
				t.Fatalf("ok = %v, want %v", gotOK, tt.wantOK)
			}
			if gotLimit != tt.wantLimit {
				t.Fatalf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestLeaderboardWindowStart(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name      string
		window    string
		wantNil   bool
		wantRange time.Duration
	}{
		{name: "7d", window: "7d", wantNil: false, wantRange: 7 * 24 * time.Hour},
		{name: "30d", window: "30d", wantNil: false, wantRange: 30 * 24 * time.Hour},
		{name: "all", window: "all", wantNil: true},
		{name: "unknown", window: "x", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := leaderboardWindowStart(tt.window)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %v", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected non-nil time")
			}
			diff := now.Sub(*got)
			if diff < tt.wantRange-time.Minute || diff > tt.wantRange+time.Minute {
				t.Fatalf("diff=%v out of expected range around %v", diff, tt.wantRange)
			}
		})
	}
}

func TestLeaderboardPagesRankedAccounts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	now := time.Now().UTC()
	for i, name := range []string{"alice", "bob", "carol"} {
		acc := store.Account{ID: name, DisplayName: name, Balance: money.StartingGrant, CreatedAt: now}
		if err := st.CreateAccount(ctx, acc, nil); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w := store.Wager{
			ID:              store.NewID(),
			AccountID:       name,
			MatchID:         "m1",
			Side:            "home",
			Price:           money.MustPrice("2.0"),
			Stake:           money.MustParse("10.00"),
			PotentialPayout: money.MustParse("20.00"),
			Status:          store.WagerPending,
			PlacedAt:        now,
		}
		if i == 1 {
			w.Status = store.WagerWon
			settled := now
			w.SettledAt = &settled
		}
		if err := st.PlaceWagers(ctx, acc, []store.Wager{w}, nil); err != nil {
			t.Fatalf("place %s: %v", name, err)
		}
	}

	svc := NewService(stats.NewService(st))
	resp, err := svc.Leaderboard(ctx, "all", 2, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if resp.Total != 3 || len(resp.Items) != 2 {
		t.Fatalf("total=%d items=%d, want 3 and 2", resp.Total, len(resp.Items))
	}
	if resp.Items[0].DisplayName != "bob" || resp.Items[0].Rank != 1 {
		t.Fatalf("first = %+v, want bob ranked 1", resp.Items[0])
	}

	resp, err = svc.Leaderboard(ctx, "all", 10, 100)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("items = %d, want 0 past the top rows", len(resp.Items))
	}

	if _, err := svc.Leaderboard(ctx, "weekly", 10, 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidRequest)
	}
}
