package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"veilchat-server/chat-api/internal/config"
	"veilchat-server/chat-api/internal/infrastructure/crontab"
	"veilchat-server/chat-api/internal/infrastructure/logger"
	"veilchat-server/chat-api/internal/infrastructure/observability"
	"veilchat-server/chat-api/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HttpServer
	crontab    *crontab.Crontab
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, crontab *crontab.Crontab, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		crontab:    crontab,
		log:        log,
	}
}

// Start runs the API server, the metrics listener and the stats job until
// the context is cancelled or one of them fails.
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var eg errgroup.Group
	eg.Go(func() error {
		err := a.httpServer.Run(ctx)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := a.httpServer.RunMetrics(ctx)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := a.crontab.Run(ctx)
		if err != nil {
			cancel()
		}
		return err
	})

	return eg.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	application, err := CreateApplication(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
