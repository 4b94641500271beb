package backendsim

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-eats/internal/backendsim/handlers"
	"campus-eats/internal/backendsim/repository"
	"campus-eats/internal/backendsim/service"
	"campus-eats/internal/config"
	"campus-eats/internal/connections/database"
	"campus-eats/internal/connections/rabbitmq"
	"campus-eats/internal/domain"
	"campus-eats/internal/httpx"
	"campus-eats/internal/logger"

	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

// Run starts the backend simulator: the REST order endpoints backed by
// Postgres, plus realtime event publishing and heartbeats over
// RabbitMQ. It stands in for the campus platform during development.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	log := logger.L().With(zap.String("service", "backend-sim"))

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer db.Close()
	log.Info("postgres connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	repo := repository.NewOrdersRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	mq, err := rabbitmq.Dial(cfg.RabbitMQ.Connection())
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer mq.Close()
	if err := mq.DeclareEventTopology(cfg.RabbitMQ.Exchange); err != nil {
		return fmt.Errorf("declare topology: %w", err)
	}
	log.Info("rabbitmq connected", zap.String("exchange", cfg.RabbitMQ.Exchange))

	svc := service.NewOrderService(repo, mq, cfg.RabbitMQ.Exchange, log)
	mux := handlers.Router(handlers.NewOrderHandler(svc))

	go heartbeat(ctx, mq, cfg.RabbitMQ.Exchange, log)

	handler := logger.RequestIDMiddleware(logger.LoggingMiddleware(mux))
	srv := httpx.New(fmt.Sprintf(":%d", port), handler, log)
	return srv.Run(ctx)
}

// heartbeat publishes a ping envelope on the broadcast key so every
// connected console sees periodic liveness traffic.
func heartbeat(ctx context.Context, mq *rabbitmq.Client, exchange string, log *zap.Logger) {
	body, _ := json.Marshal(domain.Envelope{Type: domain.EventTypePing})

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := mq.Publish(pubCtx, exchange, "broadcast", body); err != nil {
				log.Warn("heartbeat publish failed", zap.Error(err))
			}
			cancel()
		}
	}
}
