package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/pubsub"
	"github.com/contractflow/contractflow/internal/sentry"
)

// DeadLetterTopic receives messages whose handler kept failing after every retry
const DeadLetterTopic = "contract.dlq"

// Router manages all message routing
type Router struct {
	router *message.Router
	logger *logger.Logger
	sentry *sentry.Service
}

// NewRouter creates a new message router. Failed messages are only retried when
// transport.redeliver_on_failure is set; handlers decide that by returning an error.
func NewRouter(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service, dlq pubsub.Publisher) (*Router, error) {
	wmLogger := logger.GetWatermillLogger()

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}

	poisonQueue, err := middleware.PoisonQueue(&publisherAdapter{publisher: dlq}, DeadLetterTopic)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,
		middleware.CorrelationID,
		middleware.Retry{
			MaxRetries:          cfg.Transport.MaxRetries,
			InitialInterval:     cfg.Transport.InitialInterval,
			MaxInterval:         cfg.Transport.MaxInterval,
			Multiplier:          cfg.Transport.Multiplier,
			MaxElapsedTime:      cfg.Transport.MaxElapsedTime,
			RandomizationFactor: 0.5,
			Logger:              wmLogger,
			OnRetryHook: func(retryNum int, delay time.Duration) {
				logger.Infow("retrying message",
					"retry_number", retryNum,
					"max_retries", cfg.Transport.MaxRetries,
					"delay", delay,
				)
			},
		}.Middleware,
	)

	return &Router{
		router: router,
		logger: logger,
		sentry: sentry,
	}, nil
}

// AddNoPublishHandler adds a handler that doesn't publish messages
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topicName string,
	subscriber message.Subscriber,
	handlerFunc message.NoPublishHandlerFunc,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topicName,
		subscriber,
		func(msg *message.Message) error {
			err := handlerFunc(msg)
			if err != nil {
				r.sentry.CaptureException(err)
				r.logger.Errorw("handler failed",
					"handler", handlerName,
					"topic", topicName,
					"error", err,
					"correlation_id", middleware.MessageCorrelationID(msg),
					"message_uuid", msg.UUID,
				)
			}
			return err
		},
	)

	for _, m := range middlewares {
		handler.AddMiddleware(m)
	}
}

// Run blocks until ctx is cancelled or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting router")
	return r.router.Run(ctx)
}

// Running is closed once every handler is subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) IsRunning() bool {
	return r.router.IsRunning()
}

// Close gracefully shuts down the router
func (r *Router) Close() error {
	r.logger.Info("closing router")
	return r.router.Close()
}

// publisherAdapter lets the poison queue middleware publish through our Publisher
type publisherAdapter struct {
	publisher pubsub.Publisher
}

func (p *publisherAdapter) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		if err := p.publisher.Publish(msg.Context(), topic, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *publisherAdapter) Close() error {
	return nil
}
