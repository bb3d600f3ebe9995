package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Registry records live sessions so a token can be revoked before it expires.
type Registry interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteAccount removes every session of an account and returns their ids.
	DeleteAccount(ctx context.Context, accountID string) ([]string, error)
}

type MemoryRegistry struct {
	mu        sync.Mutex
	sessions  map[string]Session
	byAccount map[string]map[string]struct{}
	now       func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions:  map[string]Session{},
		byAccount: map[string]map[string]struct{}{},
		now:       time.Now,
	}
}

func (r *MemoryRegistry) Put(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	ids := r.byAccount[s.AccountID]
	if ids == nil {
		ids = map[string]struct{}{}
		r.byAccount[s.AccountID] = ids
	}
	ids[s.ID] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.ExpiresAt.IsZero() && !r.now().Before(s.ExpiresAt) {
		r.deleteLocked(id)
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(id)
	return nil
}

func (r *MemoryRegistry) deleteLocked(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if ids := r.byAccount[s.AccountID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byAccount, s.AccountID)
		}
	}
}

func (r *MemoryRegistry) DeleteAccount(_ context.Context, accountID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.byAccount[accountID]
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
		delete(r.sessions, id)
	}
	delete(r.byAccount, accountID)
	return out, nil
}

// RedisRegistry stores session:<id> -> account id with the session TTL and
// keeps an account_sessions:<account> set for bulk revocation.
type RedisRegistry struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisRegistry(client redis.Cmdable, prefix string) *RedisRegistry {
	if prefix == "" {
		prefix = "betpro:"
	}
	return &RedisRegistry{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisRegistry) sessionKey(id string) string { return r.prefix + "session:" + id }

func (r *RedisRegistry) accountKey(accountID string) string {
	return r.prefix + "account_sessions:" + accountID
}

func (r *RedisRegistry) Put(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	if err := r.client.Set(ctx, r.sessionKey(s.ID), s.AccountID, ttl).Err(); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.accountKey(s.AccountID), s.ID).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, r.accountKey(s.AccountID), ttl).Err()
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (Session, error) {
	accountID, err := r.client.Get(ctx, r.sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return Session{ID: id, AccountID: accountID}, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) error {
	accountID, err := r.client.Get(ctx, r.sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.sessionKey(id)).Err(); err != nil {
		return err
	}
	return r.client.SRem(ctx, r.accountKey(accountID), id).Err()
}

func (r *RedisRegistry) DeleteAccount(ctx context.Context, accountID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.accountKey(accountID)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, r.accountKey(accountID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
