package config

import (
	"strings"
	"time"

	"betpro/internal/money"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StoreBackend       string `env:"STORE_BACKEND" envDefault:"memory"`
	PostgresDSN        string `env:"POSTGRES_DSN"`
	PostgresSchemaFile string `env:"POSTGRES_SCHEMA_FILE"`
	BadgerPath         string `env:"BADGER_PATH" envDefault:"./data/betpro"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	LockTTL       time.Duration `env:"LOCK_TTL" envDefault:"5s"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	AdminAPIKey string        `env:"ADMIN_API_KEY"`

	StartingBalance money.Amount  `env:"STARTING_BALANCE" envDefault:"1000.00"`
	DefaultStake    money.Amount  `env:"DEFAULT_STAKE" envDefault:"10.00"`
	MinSecretLength int           `env:"MIN_SECRET_LENGTH" envDefault:"6"`
	SlipIdleTTL     time.Duration `env:"SLIP_IDLE_TTL" envDefault:"2h"`

	KafkaBrokers         string `env:"KAFKA_BROKERS"`
	KafkaTopicWagers     string `env:"KAFKA_TOPIC_WAGERS" envDefault:"betpro.wagers"`
	WagerWebhookURL      string `env:"WAGER_WEBHOOK_URL"`
	WagerPushWorkers     int    `env:"WAGER_PUSH_WORKERS" envDefault:"2"`
	WagerPushRetryMax    int    `env:"WAGER_PUSH_RETRY_MAX" envDefault:"3"`
	WagerPushRetryBaseMS int    `env:"WAGER_PUSH_RETRY_BASE_MS" envDefault:"500"`

	FeedBufferSize int `env:"FEED_BUFFER_SIZE" envDefault:"200"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

// KafkaBrokerList splits KAFKA_BROKERS on commas, dropping blanks.
func (c ServerConfig) KafkaBrokerList() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
