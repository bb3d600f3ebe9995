package wagerpush

import (
	"strings"
	"time"

	"betpro/internal/config"
	"betpro/internal/events"
)

func ConfigFromServer(cfg config.ServerConfig) Config {
	out := Config{
		Enabled:             len(cfg.KafkaBrokerList()) > 0 || strings.TrimSpace(cfg.WagerWebhookURL) != "",
		Workers:             cfg.WagerPushWorkers,
		RetryMax:            cfg.WagerPushRetryMax,
		RetryBase:           time.Duration(cfg.WagerPushRetryBaseMS) * time.Millisecond,
		FailureThreshold:    3,
		CircuitOpenDuration: 30 * time.Second,
		RequestTimeout:      5 * time.Second,
		DispatchBuffer:      2048,
		EventAllowlist: []string{
			events.TypeWagerPlaced,
			events.TypeWagerSettled,
			events.TypeAccountDeleted,
		},
	}
	if out.Workers <= 0 {
		out.Workers = 2
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}
	if out.RetryBase <= 0 {
		out.RetryBase = 500 * time.Millisecond
	}
	return out
}
