package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betpro/internal/betslip"
	"betpro/internal/config"
	"betpro/internal/events"
	"betpro/internal/feed"
	"betpro/internal/ledger"
	"betpro/internal/logging"
	"betpro/internal/session"
	"betpro/internal/stats"
	httptransport "betpro/internal/transport/http"
	"betpro/internal/wagerpush"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Server.StoreBackend).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("store ping failed")
	}

	coord := newCoordination(cfg.Server)
	defer coord.Close()

	feedHub := feed.NewHub(cfg.Server.FeedBufferSize)
	defer feedHub.Close()

	push := wagerpush.NewManager(wagerpush.ConfigFromServer(cfg.Server), pushSinks(cfg.Server)...)
	if err := push.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("wager push start failed")
	}
	defer push.Close()

	pub := events.Multi{feedHub, push}

	sessions := session.NewManager(session.JWT{
		Secret:   []byte(cfg.Server.JWTSecret),
		TokenTTL: cfg.Server.SessionTTL,
	}, coord.registry)
	slips := betslip.NewHub(cfg.Server.DefaultStake)
	sessions.OnEnd(slips.Drop)

	led := ledger.New(st, ledger.Options{
		StartingGrant:   cfg.Server.StartingBalance,
		MinSecretLength: cfg.Server.MinSecretLength,
		Locks:           coord.locks,
		Sessions:        sessions,
		Publisher:       pub,
	})
	engine := betslip.NewEngine(led, pub)

	r := httptransport.NewRouter(httptransport.Deps{
		Store:       st,
		Ledger:      led,
		Engine:      engine,
		Slips:       slips,
		Sessions:    sessions,
		Stats:       stats.NewService(st),
		Feed:        feedHub,
		AdminAPIKey: cfg.Server.AdminAPIKey,
	})
	httptransport.LogRoutes(r)

	go sweepSlips(ctx, slips, cfg.Server.SlipIdleTTL)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Str("store", cfg.Server.StoreBackend).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// SSE streams end when the feed closes, so close it before draining.
	feedHub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}

func sweepSlips(ctx context.Context, slips *betslip.Hub, idle time.Duration) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := slips.Sweep(idle); n > 0 {
				log.Debug().Int("dropped", n).Msg("idle slips swept")
			}
		}
	}
}
