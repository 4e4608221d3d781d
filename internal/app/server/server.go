package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"experiment-bridge/internal/api"
	"experiment-bridge/internal/config"
	"experiment-bridge/internal/emitter"
	"experiment-bridge/internal/listener"
	"experiment-bridge/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := listener.NewSettings(cfg.Integration)

	// Storage (optional event sink + settings overrides)
	var store *storage.Store
	if cfg.PostgresEnabled() {
		var err error
		store, err = storage.New(rootCtx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("init storage")
		}
		defer store.Close()
		if err := store.EnsureSchema(rootCtx); err != nil {
			log.Fatal().Err(err).Msg("ensure schema")
		}
		if err := settings.Refresh(rootCtx, store); err != nil {
			log.Error().Err(err).Msg("initial settings load")
		}
		// Listener (LISTEN/NOTIFY)
		go listener.ListenAndRefresh(rootCtx, store, settings, cfg.Listener.Channel, cfg.Backoff())
	} else {
		log.Info().Msg("postgres not configured; events go to the log only")
	}

	sessions, err := api.NewSessions(cfg.Sessions.Max, settings, sinks(store)...)
	if err != nil {
		log.Fatal().Err(err).Msg("init sessions")
	}
	defer sessions.Purge()

	srv := newHTTPServer(cfg, api.Router(api.NewSessionHandler(sessions)))

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func sinks(store *storage.Store) []emitter.Sink {
	out := []emitter.Sink{emitter.LogSink{}}
	if store != nil {
		out = append(out, store)
	}
	return out
}

func newHTTPServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
