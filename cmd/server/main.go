package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopsense/backend/config"
	"github.com/shopsense/backend/internal/bootstrap"
	httpDelivery "github.com/shopsense/backend/internal/delivery/http"
	"github.com/shopsense/backend/internal/infrastructure/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("version", httpDelivery.Version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache_type", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("starting ShopSense backend")

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	app, err := bootstrap.New(startupCtx, cfg, true, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close cache")
		}
	}()

	logger.Info().
		Bool("proxy", app.Marketplace.UsesProxy()).
		Bool("keyword_model", app.Generator.IsEnabled()).
		Str("model", cfg.LLM.Model).
		Int("over_fetch_factor", cfg.Search.OverFetchFactor).
		Dur("review_delay", cfg.Search.ReviewDelay).
		Msg("search pipeline configured")

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(app.Service, logging.Component(logger, "http"))

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, logging.Component(logger, "http"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
