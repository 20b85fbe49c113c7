package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kitchencoop/internal/app"
	"kitchencoop/internal/auth"
	"kitchencoop/internal/authority"
	"kitchencoop/internal/config"
	"kitchencoop/internal/logging"
	"kitchencoop/internal/ports"
	"kitchencoop/internal/ports/httpapi"
	"kitchencoop/internal/ports/natsbus"
	"kitchencoop/internal/ports/ws"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := config.ParseServer()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid server configuration")
	}
	logging.Setup(os.Stderr, cfg.LogLevel)

	kitchen, err := config.Load(cfg.KitchenPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load kitchen")
	}

	logger := logging.Global().WithField("session", cfg.SessionID)
	svc := app.NewService(rand.New(rand.NewSource(time.Now().UnixNano())), logger)
	host := authority.NewHost(authority.Config{
		Service: svc,
		Game:    kitchen.NewGame(),
		Clock:   clockwork.NewRealClock(),
		Tick:    cfg.TickInterval(),
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	issuer := auth.NewTokenIssuer(cfg.TokenSecret, cfg.SessionID, cfg.TokenTTL, nil)
	sockets := ws.NewManager(host, issuer, host, ws.DefaultConfig())
	out := ports.Fanout{sockets}

	if cfg.NATSURL != "" {
		busCfg := natsbus.DefaultConfig()
		busCfg.URL = cfg.NATSURL
		busCfg.Prefix = cfg.NATSPrefix
		busCfg.Session = cfg.SessionID

		nc, err := natsbus.Connect(busCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Close()

		relay := natsbus.NewRelay(nc, busCfg, clockwork.NewRealClock())
		if err := relay.Serve(host); err != nil {
			log.Fatal().Err(err).Msg("failed to serve bus commands")
		}
		defer relay.Close()
		go relay.Run(ctx)
		out = append(out, relay)
	}
	host.SetOutput(out)

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewHandler(httpapi.Deps{
			Issuer:  issuer,
			Sockets: sockets,
			Game:    host,
			Conns:   sockets,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	hostDone := make(chan error, 1)
	go func() {
		hostDone <- host.Run(ctx)
	}()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("session", cfg.SessionID).
			Int("tick_rate", cfg.TickRate).
			Msg("kitchen authority starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	sockets.Close()

	cancel()
	if err := <-hostDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("authority stopped with error")
	}
	log.Info().Msg("kitchen authority shutdown complete")
}
