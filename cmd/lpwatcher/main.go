package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/lpreserver-watcher/internal/config"
	"github.com/SteelMorgan/lpreserver-watcher/internal/observability"
	"github.com/SteelMorgan/lpreserver-watcher/internal/service"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogOutput)

	log.Info().
		Str("version", version).
		Msg("Starting lpreserver status watcher")

	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "lpreserver-watcher",
		ServiceVersion: version,
		Endpoint:       cfg.TracingEndpoint,
		Protocol:       cfg.TracingProtocol,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer shutdownTracer(context.Background())
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	svc, err := service.NewStatusService(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create status service")
	}

	errChan := make(chan error, 1)
	go func() {
		if err := svc.Start(ctx); err != nil && ctx.Err() == nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Info().Msg("Received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("Status service error")
	}

	log.Info().Msg("Shutting down gracefully...")
	cancel()

	if err := svc.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	log.Info().Msg("Status watcher stopped")
}
