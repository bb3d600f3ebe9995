package config

import (
	"testing"
	"time"

	"betpro/internal/money"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.StartingBalance != money.MustParse("1000.00") {
		t.Fatalf("StartingBalance = %s, want 1000.00", cfg.StartingBalance)
	}
	if cfg.DefaultStake != money.DefaultStake {
		t.Fatalf("DefaultStake = %s, want %s", cfg.DefaultStake, money.DefaultStake)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.MinSecretLength != 6 {
		t.Fatalf("MinSecretLength = %d, want 6", cfg.MinSecretLength)
	}
	if cfg.KafkaTopicWagers != "betpro.wagers" {
		t.Fatalf("KafkaTopicWagers = %q, want betpro.wagers", cfg.KafkaTopicWagers)
	}
	if got := cfg.KafkaBrokerList(); len(got) != 0 {
		t.Fatalf("KafkaBrokerList() = %v, want empty", got)
	}
}

func TestLoadServerRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("STARTING_BALANCE", "250.5")
	t.Setenv("LOCK_TTL", "2s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("WAGER_PUSH_RETRY_MAX", "5")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.StartingBalance != money.Amount(25050) {
		t.Fatalf("StartingBalance = %s, want 250.50", cfg.StartingBalance)
	}
	if cfg.LockTTL != 2*time.Second {
		t.Fatalf("LockTTL = %v, want 2s", cfg.LockTTL)
	}
	brokers := cfg.KafkaBrokerList()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Fatalf("KafkaBrokerList() = %v", brokers)
	}
	if cfg.WagerPushRetryMax != 5 {
		t.Fatalf("WagerPushRetryMax = %d, want 5", cfg.WagerPushRetryMax)
	}
}

func TestLoadServerRejectsMalformedAmount(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DEFAULT_STAKE", "ten")

	if _, err := LoadServer(); err == nil {
		t.Fatal("LoadServer() expected error for malformed amount")
	}
}
