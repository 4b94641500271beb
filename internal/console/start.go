package console

import (
	"context"
	"fmt"

	"campus-eats/internal/config"
	"campus-eats/internal/console/handlers"
	"campus-eats/internal/engine"
	"campus-eats/internal/httpx"
	"campus-eats/internal/loader"
	"campus-eats/internal/logger"
	"campus-eats/internal/orderapi"
	"campus-eats/internal/realtime"
	"campus-eats/internal/store"

	"go.uber.org/zap"
)

// Run starts one vendor console session: the reconciliation engine
// subscribed to the platform, plus the local HTTP facade the UI renders
// from.
func Run(ctx context.Context, cfg *config.Config, port int, actorID string) error {
	log := logger.L().With(
		zap.String("service", "vendor-console"),
		zap.String("actor_id", actorID))

	api := orderapi.NewClient(cfg.API.BaseURL, cfg.API.Timeout())
	channel := realtime.NewChannel(
		realtime.AMQPDialer(cfg.RabbitMQ.Connection(), cfg.RabbitMQ.Exchange, actorID),
		cfg.RabbitMQ.ReconnectDelay(),
		log)

	eng := engine.New(engine.Config{
		ActorID:        actorID,
		ConfirmWindow:  cfg.Engine.ConfirmWindow(),
		RequestTimeout: cfg.API.Timeout(),
	}, store.New(log), loader.New(api, log), api, channel, log)

	eng.Subscribe(ctx)
	defer eng.Dispose()
	log.Info("engine subscribed", zap.String("base_url", cfg.API.BaseURL))

	go drainErrors(ctx, eng, log)

	mux := handlers.Router(handlers.NewConsoleHandler(eng))
	handler := logger.RequestIDMiddleware(logger.LoggingMiddleware(mux))
	srv := httpx.New(fmt.Sprintf(":%d", port), handler, log)
	return srv.Run(ctx)
}

// drainErrors forwards the engine's non-fatal failures to the log. The
// terminal UI would render these as toasts.
func drainErrors(ctx context.Context, eng *engine.Engine, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-eng.Errors():
			log.Warn("engine reported error", zap.Error(err))
		}
	}
}
