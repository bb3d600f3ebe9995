package account

import (
	"context"
	"strings"

	"betpro/internal/betslip"
	"betpro/internal/ledger"
	"betpro/internal/session"
	"betpro/internal/stats"
	"betpro/internal/store"

	"github.com/rs/zerolog/log"
)

type Service struct {
	ledger   *ledger.Ledger
	sessions *session.Manager
	slips    *betslip.Hub
	stats    *stats.Service
}

func NewService(l *ledger.Ledger, sessions *session.Manager, slips *betslip.Hub, st *stats.Service) *Service {
	return &Service{ledger: l, sessions: sessions, slips: slips, stats: st}
}

func (s *Service) Register(ctx context.Context, in CredentialsInput) (*SessionResponse, error) {
	acc, err := s.ledger.Register(ctx, in.DisplayName, in.Secret)
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, acc, in.SlipKey)
}

func (s *Service) Login(ctx context.Context, in CredentialsInput) (*SessionResponse, error) {
	if strings.TrimSpace(in.DisplayName) == "" || in.Secret == "" {
		return nil, ErrInvalidRequest
	}
	acc, err := s.ledger.Authenticate(ctx, in.DisplayName, in.Secret)
	if err != nil {
		return nil, err
	}
	return s.begin(ctx, acc, in.SlipKey)
}

// begin opens a session and carries any anonymous slip over to it.
func (s *Service) begin(ctx context.Context, acc *store.Account, slipKey string) (*SessionResponse, error) {
	token, sess, err := s.sessions.Begin(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if slipKey = strings.TrimSpace(slipKey); slipKey != "" {
		s.slips.Adopt(slipKey, sess.ID)
	} else {
		s.slips.Get(sess.ID)
	}
	log.Info().Str("account_id", acc.ID).Str("session_id", sess.ID).Msg("session started")
	return &SessionResponse{
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
		Account:   viewOf(acc),
	}, nil
}

// Logout ends the session; the slip goes with it.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidRequest
	}
	return s.sessions.End(ctx, sessionID)
}

func (s *Service) Me(ctx context.Context, accountID string) (*AccountView, error) {
	acc, err := s.ledger.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	v := viewOf(acc)
	return &v, nil
}

func (s *Service) Reset(ctx context.Context, accountID string) (*AccountView, error) {
	acc, err := s.ledger.Reset(ctx, accountID)
	if err != nil {
		return nil, err
	}
	v := viewOf(acc)
	return &v, nil
}

func (s *Service) Delete(ctx context.Context, accountID string) error {
	return s.ledger.DeleteAccount(ctx, accountID)
}

func (s *Service) Wagers(ctx context.Context, accountID, status string, limit, offset int) (*WagersResponse, error) {
	f := store.WagerFilter{AccountID: accountID, Status: store.WagerStatus(status)}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	items, err := s.ledger.ListWagers(ctx, f, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Wager{}
	}
	return &WagersResponse{Items: items, Limit: limit, Offset: offset}, nil
}

func (s *Service) Ledger(ctx context.Context, accountID string, limit, offset int) (*LedgerResponse, error) {
	items, err := s.ledger.ListEntries(ctx, store.LedgerFilter{AccountID: accountID}, limit, offset)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.LedgerEntry{}
	}
	return &LedgerResponse{Items: items, Limit: limit, Offset: offset}, nil
}

func (s *Service) Stats(ctx context.Context, accountID string) (stats.Summary, error) {
	return s.stats.AccountSummary(ctx, accountID)
}
