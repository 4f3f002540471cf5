package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fabrisys/internal/config"
	"fabrisys/internal/infra"
	"fabrisys/internal/router"
	"fabrisys/internal/service"
	"fabrisys/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Worker handlers are wired here (composition root) so the pool has
	// access to all infrastructure dependencies.
	agendaCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	var notifier service.Notifier = service.NoopNotifier{}
	if rdb != nil {
		dispatcher := worker.NewDispatcher(rdb)
		notifier = dispatcher

		mailer := infra.NewMailer(cfg)
		agenda := infra.NewAgendaClient(cfg.AgendaWebhookURL, agendaCB)
		handlers := map[string]worker.Handler{
			worker.JobNotification: worker.NewNotificationWorker(
				mailer, dispatcher, cfg.AlertEmail, cfg.VarianceThreshold(), cfg.PDFStoragePath),
			worker.JobAgendaReminder: worker.NewAgendaWorker(agenda),
		}
		worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)
	} else {
		log.Warn().Msg("REDIS_URL not set: notifications and rate limiting disabled")
	}

	r := router.New(cfg, router.Deps{
		DB:       db,
		Redis:    rdb,
		Notifier: notifier,
		AgendaCB: agendaCB,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("fabrisys till backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogger: dev gets the pretty console writer, production plain JSON.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
