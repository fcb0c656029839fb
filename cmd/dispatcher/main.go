package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fmbq-backend/config"
	"fmbq-backend/internal/infrastructure/push"
	"fmbq-backend/internal/repository/pgrepo"
	"fmbq-backend/internal/usecase"
	"fmbq-backend/pkg/logger"
)

// The dispatcher drains the notification outbox on a fixed interval. Running
// it separately from the API keeps push-provider latency and outages out of
// the request path. Each cycle claims its batch up front (pending rows flip
// to processing in one statement), so extra replicas never double-send, and
// rows claimed by a crashed replica are reclaimed after a stale window.
func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	pgxPool, err := pgrepo.NewPgxPool(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgxPool.Close()

	userRepo := pgrepo.NewUserRepository(pgxPool)
	notifRepo := pgrepo.NewNotificationRepository(pgxPool)
	expoClient := push.NewExpoClient(cfg.ExpoPushURL, cfg.PushSendTimeout)

	notifUC := usecase.NewNotificationUsecase(notifRepo, userRepo, expoClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Dur("interval", cfg.DispatchInterval).
		Int("batch_size", cfg.DispatchBatchSize).
		Msg("dispatcher started")

	ticker := time.NewTicker(cfg.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("dispatcher shutting down")
			return
		case <-ticker.C:
			processed, err := notifUC.Dispatch(ctx, cfg.DispatchBatchSize)
			if err != nil {
				log.Error().Err(err).Msg("dispatch cycle failed")
				continue
			}
			if processed > 0 {
				log.Info().Int("processed", processed).Msg("dispatched outbox events")
			}
		}
	}
}
