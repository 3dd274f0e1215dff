package gateway

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/contractflow/contractflow/internal/config"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/pubsub"
	"github.com/contractflow/contractflow/internal/pubsub/router"
	"github.com/contractflow/contractflow/internal/sentry"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/contractflow/contractflow/internal/validator"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/fx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler processes one decoded inbound envelope
type Handler func(ctx context.Context, env *Envelope) error

// Gateway is the single entry and exit point between the service and the
// message transport. Inbound messages are dispatched by routing key and
// eventName through a table filled by Subscribe before Run.
type Gateway struct {
	cfg     *config.Configuration
	logger  *logger.Logger
	sentry  *sentry.Service
	metrics *metrics.Metrics
	pubsub  pubsub.PubSub
	router  *router.Router

	mu       sync.RWMutex
	handlers map[string]map[types.ContractEventName]Handler
	started  bool
}

type Params struct {
	fx.In

	Config  *config.Configuration
	Logger  *logger.Logger
	Sentry  *sentry.Service
	Metrics *metrics.Metrics
	PubSub  pubsub.PubSub
	Router  *router.Router
}

func NewGateway(p Params) *Gateway {
	return &Gateway{
		cfg:      p.Config,
		logger:   p.Logger,
		sentry:   p.Sentry,
		metrics:  p.Metrics,
		pubsub:   p.PubSub,
		router:   p.Router,
		handlers: make(map[string]map[types.ContractEventName]Handler),
	}
}

// Subscribe registers handler for eventName messages arriving on routingKey.
// All subscriptions must be made before Run.
func (g *Gateway) Subscribe(routingKey string, eventName types.ContractEventName, handler Handler) error {
	if err := eventName.Validate(); err != nil {
		return err
	}
	if routingKey == "" || handler == nil {
		return ierr.NewError("routing key and handler are required").
			WithHint("Subscribe needs a routing key and a handler").
			Mark(ierr.ErrValidation)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ierr.NewError("gateway already running").
			WithHint("Subscriptions must be registered before the gateway starts").
			WithReportableDetails(map[string]any{"routing_key": routingKey, "event_name": eventName}).
			Mark(ierr.ErrInvalidOperation)
	}

	table, ok := g.handlers[routingKey]
	if !ok {
		table = make(map[types.ContractEventName]Handler)
		g.handlers[routingKey] = table
		g.router.AddNoPublishHandler(
			"gateway."+routingKey,
			routingKey,
			g.pubsub,
			func(msg *message.Message) error {
				return g.dispatch(routingKey, msg)
			},
		)
	}
	if _, dup := table[eventName]; dup {
		return ierr.NewError("handler already registered").
			WithHintf("A handler for %s on %s is already registered", eventName, routingKey).
			Mark(ierr.ErrAlreadyExists)
	}
	table[eventName] = handler

	g.logger.Infow("subscribed to contract event",
		"routing_key", routingKey,
		"event_name", eventName,
	)
	return nil
}

// Run starts consuming and blocks until ctx ends or Close is called
func (g *Gateway) Run(ctx context.Context) error {
	g.mu.Lock()
	g.started = true
	g.mu.Unlock()
	return g.router.Run(ctx)
}

// Running is closed once every subscription is live
func (g *Gateway) Running() chan struct{} {
	return g.router.Running()
}

func (g *Gateway) IsRunning() bool {
	return g.router.IsRunning()
}

func (g *Gateway) Close() error {
	return g.router.Close()
}

func (g *Gateway) lookup(routingKey string, eventName types.ContractEventName) (Handler, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.handlers[routingKey][eventName]
	return h, ok
}

// dispatch returns nil whenever the message must be acked. An error is only
// returned for transient failures when redelivery is enabled.
func (g *Gateway) dispatch(routingKey string, msg *message.Message) error {
	eventName := types.ContractEventName(msg.Metadata.Get(HeaderEventName))
	log := g.logger.With(
		"routing_key", routingKey,
		"event_name", eventName,
		"message_uuid", msg.UUID,
		"correlation_id", middleware.MessageCorrelationID(msg),
	)

	handler, ok := g.lookup(routingKey, eventName)
	if !ok {
		log.Warnw("rejecting message with unknown event name")
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultRejected)
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		log.Warnw("dropping malformed message", "error", err)
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultDropped)
		return nil
	}
	if env.EventName == "" {
		env.EventName = eventName
	}
	if env.EventName != eventName {
		log.Warnw("dropping message whose body disagrees with its eventName header",
			"body_event_name", env.EventName,
		)
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultDropped)
		return nil
	}
	if err := validator.ValidateRequest(&env); err != nil {
		log.Warnw("dropping invalid message", "error", err)
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultDropped)
		return nil
	}

	ctx := types.SetCorrelationID(msg.Context(), middleware.MessageCorrelationID(msg))
	span, ctx := g.sentry.StartMessageSpan(ctx, routingKey, string(eventName))
	if span != nil {
		defer span.Finish()
	}

	err := handler(ctx, &env)
	switch {
	case err == nil:
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultHandled)
		return nil
	case ierr.IsIllegalTransition(err), ierr.IsDuplicateEvent(err):
		// already recorded in change history, the message is settled
		log.Infow("event settled without transition", "contract_id", env.ContractID, "reason", err)
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultHandled)
		return nil
	case ierr.IsValidation(err):
		log.Warnw("dropping message rejected by handler validation", "contract_id", env.ContractID, "error", err)
		g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultDropped)
		return nil
	}

	g.metrics.GatewayMessage(routingKey, string(eventName), metrics.ResultFailed)
	if g.cfg.Transport.RedeliverOnFailure && ierr.IsTransient(err) {
		// the router logs, reports and nacks
		return err
	}

	log.Errorw("handler failed, message consumed",
		"contract_id", env.ContractID,
		"error", err,
	)
	g.sentry.CaptureExceptionWithTags(err, map[string]string{
		"routing_key": routingKey,
		"event_name":  string(eventName),
	})
	return nil
}

// Publish sends body to routingKey with the eventName header set. Failures are
// returned to the caller and never retried here.
func (g *Gateway) Publish(ctx context.Context, routingKey string, eventName types.ContractEventName, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode outbound event").
			WithReportableDetails(map[string]any{"routing_key": routingKey, "event_name": eventName}).
			Mark(ierr.ErrPublish)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(HeaderEventName, string(eventName))
	correlationID := types.GetCorrelationID(ctx)
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)

	if err := g.pubsub.Publish(ctx, routingKey, msg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish outbound event").
			WithReportableDetails(map[string]any{"routing_key": routingKey, "event_name": eventName}).
			Mark(ierr.ErrPublish)
	}

	g.logger.Debugw("published event",
		"routing_key", routingKey,
		"event_name", eventName,
		"message_uuid", msg.UUID,
	)
	return nil
}
