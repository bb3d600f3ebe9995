package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrLockTimeout = errors.New("lock_timeout")

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Redis is a Locker shared by every server process that talks to the same
// Redis. A held lock expires after TTL so a crashed holder cannot wedge an
// account forever.
type Redis struct {
	client   redis.Cmdable
	prefix   string
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
}

type RedisOptions struct {
	Prefix string
	TTL    time.Duration
	Retry  time.Duration
}

func NewRedis(client redis.Cmdable, opts RedisOptions) *Redis {
	if opts.Prefix == "" {
		opts.Prefix = "betpro:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Second
	}
	if opts.Retry <= 0 {
		opts.Retry = 25 * time.Millisecond
	}
	return &Redis{client: client, prefix: opts.Prefix, ttl: opts.TTL, retry: opts.Retry, newToken: randomToken}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := r.newToken()
	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := r.client.Eval(ctx, releaseScript, []string{fullKey}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", fullKey).Msg("release redis lock failed")
			}
		})
	}, nil
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
