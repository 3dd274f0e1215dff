package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/contractflow/contractflow/internal/api"
	"github.com/contractflow/contractflow/internal/api/cron"
	v1 "github.com/contractflow/contractflow/internal/api/v1"
	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/gateway"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/postgres"
	"github.com/contractflow/contractflow/internal/pubsub"
	"github.com/contractflow/contractflow/internal/pubsub/kafka"
	"github.com/contractflow/contractflow/internal/pubsub/memory"
	pubsubRouter "github.com/contractflow/contractflow/internal/pubsub/router"
	"github.com/contractflow/contractflow/internal/pyroscope"
	"github.com/contractflow/contractflow/internal/repository"
	"github.com/contractflow/contractflow/internal/sentry"
	"github.com/contractflow/contractflow/internal/service"
	"github.com/contractflow/contractflow/internal/settlement"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/contractflow/contractflow/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			metrics.NewMetrics,
		),
		sentry.Module(),
		pyroscope.Module(),
		postgres.Module(),
		fx.Provide(
			// Repositories
			repository.NewContractRepository,
			repository.NewChangeHistoryRepository,
			repository.NewSettlementRepository,

			// Transport
			providePubSub,
			provideMessageRouter,
			gateway.NewGateway,
			provideEventPublisher,
			provideEventSubscriber,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewEventRegistrar,
			service.NewContractFSMService,
			service.NewContractService,
			service.NewContractEventHandler,
		),
	)

	// Settlement pipeline
	opts = append(opts,
		fx.Provide(
			provideTaskQueue,
			settlement.NewScanner,
			settlement.NewProcessor,
			settlement.NewScheduler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePubSub(cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	switch cfg.Transport.PubSub {
	case types.KafkaPubSub:
		return kafka.NewPubSub(cfg, log)
	default:
		return memory.NewPubSub(log), nil
	}
}

// provideMessageRouter dead-letters through the same transport it consumes from
func provideMessageRouter(cfg *config.Configuration, log *logger.Logger, sentrySvc *sentry.Service, ps pubsub.PubSub) (*pubsubRouter.Router, error) {
	return pubsubRouter.NewRouter(cfg, log, sentrySvc, ps)
}

func provideEventPublisher(g *gateway.Gateway) service.EventPublisher {
	return g
}

func provideEventSubscriber(g *gateway.Gateway) service.EventSubscriber {
	return g
}

func provideTaskQueue(cfg *config.Configuration) *settlement.TaskQueue {
	return settlement.NewTaskQueue(cfg.Settlement.QueueCapacity)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	contractService service.ContractService,
	fsmService service.ContractFSMService,
	scheduler *settlement.Scheduler,
) api.Handlers {
	handlers := api.Handlers{
		Health:   v1.NewHealthHandler(logger),
		Contract: v1.NewContractHandler(contractService, fsmService, logger),
	}
	if runsScheduler(cfg.Deployment.Mode) {
		handlers.CronSettlement = cron.NewSettlementCronHandler(scheduler, logger)
	}
	return handlers
}

func runsScheduler(mode types.RunMode) bool {
	return mode == types.ModeLocal || mode == types.ModeScheduler
}

func runsGateway(mode types.RunMode) bool {
	return mode == types.ModeLocal || mode == types.ModeConsumer
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	g *gateway.Gateway,
	handler *service.ContractEventHandler,
	processor *settlement.Processor,
	scheduler *settlement.Scheduler,
	log *logger.Logger,
) error {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}
	log.Infow("starting contractflow", "mode", mode)

	if runsGateway(mode) {
		if err := startGateway(lc, g, handler, log); err != nil {
			return err
		}
	}
	if runsScheduler(mode) {
		startSettlement(lc, processor, scheduler, log)
	}
	startAPIServer(lc, r, cfg, log)
	return nil
}

func startGateway(lc fx.Lifecycle, g *gateway.Gateway, handler *service.ContractEventHandler, log *logger.Logger) error {
	// Register handlers before starting the router
	if err := handler.RegisterHandlers(g); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting event gateway")
			go func() {
				if err := g.Run(context.Background()); err != nil {
					log.Errorw("event gateway stopped with error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping event gateway")
			return g.Close()
		},
	})
	return nil
}

func startSettlement(lc fx.Lifecycle, processor *settlement.Processor, scheduler *settlement.Scheduler, log *logger.Logger) {
	processorCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				processor.Run(processorCtx)
			}()
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			err := scheduler.Stop(ctx)
			cancel()
			select {
			case <-done:
				log.Info("settlement processor stopped")
			case <-ctx.Done():
			}
			return err
		},
	})
}

func startAPIServer(lc fx.Lifecycle, r *gin.Engine, cfg *config.Configuration, log *logger.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
