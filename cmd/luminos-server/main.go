// Package main is the entry point for the Luminos community server.
// It serves the forum, store and back office API, plus live updates over websocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/luminosmc/luminos-community/internal/app"
	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/handler"
	"github.com/luminosmc/luminos-community/internal/metrics"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := app.NewLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("store", cfg.Store.Driver).
		Msg("starting Luminos community server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(events.DefaultHubConfig(), logger)
	defer hub.Close()

	opts := app.Options{Publisher: hub, AutoMigrate: true}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		m.GaugeFunc("websocket_clients", "Connected live update clients.", func() float64 {
			return float64(hub.Clients())
		})
		opts.LoginObserver = m
		opts.DenialObserver = m
	}

	a, err := app.New(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close resources")
		}
	}()

	res, err := a.Seeder.Seed(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	if res.GeneratedPassword != "" {
		// Printed once; it is not stored anywhere in clear text.
		logger.Warn().
			Str("username", res.Owner.Username).
			Str("password", res.GeneratedPassword).
			Msg("generated root owner password, change it after the first login")
	}

	rateLimit := cfg.RateLimit
	if !rateLimit.Enabled {
		rateLimit.LoginRequests = 0
	}

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:      a.Session,
		Users:         a.Users,
		Staff:         a.Staff,
		Roles:         a.Roles,
		Posts:         a.Posts,
		Products:      a.Products,
		Stats:         a.Stats,
		Events:        hub,
		Metrics:       m,
		MetricsPath:   cfg.Metrics.Path,
		Health:        a.Health,
		Cookie:        handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure},
		MaxBodySize:   cfg.Server.MaxBodySize,
		LoginRequests: rateLimit.LoginRequests,
		LoginWindow:   rateLimit.Window,
		Development:   cfg.Server.Development,
		AllowedHosts:  cfg.Server.AllowedHosts,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked, so Shutdown does not wait for them.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
