package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"betpro/internal/config"
	"betpro/internal/lock"
	"betpro/internal/session"
	"betpro/internal/store"
	"betpro/internal/wagerpush"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func openStore(ctx context.Context, cfg config.ServerConfig) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
		pg, err := store.NewPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if cfg.PostgresSchemaFile != "" {
			ddl, err := os.ReadFile(cfg.PostgresSchemaFile)
			if err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("read schema: %w", err)
			}
			if err := pg.ApplySchema(ctx, string(ddl)); err != nil {
				_ = pg.Close()
				return nil, fmt.Errorf("apply schema: %w", err)
			}
			log.Info().Str("file", cfg.PostgresSchemaFile).Msg("postgres schema applied")
		}
		return pg, nil
	case "badger":
		return store.OpenBadger(store.BadgerOptions{Path: cfg.BadgerPath})
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// coordination holds the cross-request state that must be shared between
// server processes when Redis is configured.
type coordination struct {
	locks    lock.Locker
	registry session.Registry
	client   *redis.Client
}

func newCoordination(cfg config.ServerConfig) *coordination {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return &coordination{locks: lock.NewKeyedMutex(), registry: session.NewMemoryRegistry()}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis for locks and sessions")
	return &coordination{
		locks:    lock.NewRedis(client, lock.RedisOptions{TTL: cfg.LockTTL}),
		registry: session.NewRedisRegistry(client, ""),
		client:   client,
	}
}

func (c *coordination) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}

func pushSinks(cfg config.ServerConfig) []wagerpush.Sink {
	var sinks []wagerpush.Sink
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		sinks = append(sinks, wagerpush.NewKafkaSink(brokers, cfg.KafkaTopicWagers))
	}
	if url := strings.TrimSpace(cfg.WagerWebhookURL); url != "" {
		sinks = append(sinks, wagerpush.NewWebhookSink(url, 0))
	}
	return sinks
}
