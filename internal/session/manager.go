package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"betpro/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidToken    = errors.New("invalid_token")
	ErrSessionNotFound = errors.New("session_not_found")
)

// Manager issues session tokens and tracks which account each live session
// belongs to. Listeners registered with OnEnd run after a session ends.
type Manager struct {
	jwt      JWT
	registry Registry

	mu        sync.RWMutex
	listeners []func(sessionID string)
}

func NewManager(j JWT, registry Registry) *Manager {
	return &Manager{jwt: j, registry: registry}
}

func (m *Manager) OnEnd(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) Begin(ctx context.Context, accountID string) (string, Session, error) {
	sessionID := store.NewID()
	token, expiresAt, err := m.jwt.Sign(Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      sessionID,
			Subject: accountID,
		},
	})
	if err != nil {
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	s := Session{ID: sessionID, AccountID: accountID, ExpiresAt: expiresAt}
	if err := m.registry.Put(ctx, s); err != nil {
		return "", Session{}, fmt.Errorf("register session: %w", err)
	}
	return token, s, nil
}

func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	claims, err := m.jwt.Verify(token)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	s, err := m.registry.Get(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if s.AccountID != claims.AccountID {
		return Session{}, ErrInvalidToken
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

func (m *Manager) End(ctx context.Context, sessionID string) error {
	if err := m.registry.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.notify(sessionID)
	return nil
}

// EndAccount revokes every session of the account.
func (m *Manager) EndAccount(ctx context.Context, accountID string) error {
	ids, err := m.registry.DeleteAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		m.notify(id)
	}
	log.Info().Str("account_id", accountID).Int("sessions", len(ids)).Msg("account sessions ended")
	return nil
}

func (m *Manager) notify(sessionID string) {
	m.mu.RLock()
	listeners := append([]func(string){}, m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(sessionID)
	}
}
