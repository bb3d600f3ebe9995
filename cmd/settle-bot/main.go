package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betpro/internal/config"
	"betpro/internal/logging"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadSettler()
	if err != nil {
		log.Fatal().Err(err).Msg("load settler config failed")
	}
	s, err := newSettler(cfg, time.Now().UnixNano())
	if err != nil {
		log.Fatal().Err(err).Msg("settler init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("url", cfg.BaseURL).
		Str("outcome", cfg.Outcome).
		Dur("interval", cfg.Interval).
		Msg("settle bot started")
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		n, err := s.runOnce(ctx)
		if err != nil {
			log.Error().Err(err).Msg("settle pass failed")
		} else if n > 0 {
			log.Info().Int("settled", n).Msg("settle pass done")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("settle bot stopped")
			return
		case <-ticker.C:
		}
	}
}
