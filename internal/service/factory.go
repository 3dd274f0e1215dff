package service

import (
	"context"

	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/domain/changehistory"
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/postgres"
	"github.com/contractflow/contractflow/internal/types"
	"go.uber.org/fx"
)

// EventPublisher sends an outbound event to a routing key. The event gateway implements it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, eventName types.ContractEventName, body any) error
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	fx.In

	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Metrics *metrics.Metrics

	// Repositories
	ContractRepo      contract.Repository
	ChangeHistoryRepo changehistory.Repository
	SettlementRepo    settlement.Repository

	Publisher EventPublisher
}
