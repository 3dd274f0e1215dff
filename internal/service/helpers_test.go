package service

import (
	"testing"

	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/gateway"
	"github.com/contractflow/contractflow/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Metrics:           s.GetMetrics(),
		ContractRepo:      stores.ContractRepo,
		ChangeHistoryRepo: stores.ChangeHistoryRepo,
		SettlementRepo:    stores.SettlementRepo,
		Publisher:         s.GetPublisher(),
	}
}

func settlementRecord(c *contract.Contract) *settlement.Record {
	return settlement.RecordFromContract(c)
}

func envelopeOf(t *testing.T, e testutil.PublishedEvent) gateway.Envelope {
	env, ok := e.Body.(gateway.Envelope)
	require.True(t, ok, "published body is %T", e.Body)
	return env
}
