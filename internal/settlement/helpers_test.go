package settlement

import (
	"github.com/contractflow/contractflow/internal/config"
	"github.com/contractflow/contractflow/internal/domain/contract"
	"github.com/contractflow/contractflow/internal/service"
	"github.com/contractflow/contractflow/internal/testutil"
	"github.com/contractflow/contractflow/internal/types"
)

// settlementSuite wires the contract FSM over the in-memory stores
type settlementSuite struct {
	testutil.BaseServiceTestSuite
	cfg   *config.Configuration
	fsm   service.ContractFSMService
	queue *TaskQueue
}

func (s *settlementSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := *s.GetConfig()
	cfg.Settlement.PublishRate = 0
	cfg.Settlement.PageSize = 100
	cfg.Settlement.QueueCapacity = 10
	s.cfg = &cfg

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.cfg,
		DB:                s.GetDB(),
		Metrics:           s.GetMetrics(),
		ContractRepo:      stores.ContractRepo,
		ChangeHistoryRepo: stores.ChangeHistoryRepo,
		SettlementRepo:    stores.SettlementRepo,
		Publisher:         s.GetPublisher(),
	}
	s.fsm = service.NewContractFSMService(params, service.NewEventRegistrar(params))
	s.queue = NewTaskQueue(s.cfg.Settlement.QueueCapacity)
}

// createDue stores an active recurring contract due an hour ago
func (s *settlementSuite) createDue(seqID int64) *contract.Contract {
	c := s.NewTestContract()
	c.SeqID = seqID
	c.ContractStatus = types.ContractStatusActive
	s.Require().NoError(s.GetStores().ContractRepo.Create(s.GetContext(), c))
	return c
}

func (s *settlementSuite) newScanner() *Scanner {
	return NewScanner(s.GetStores().SettlementRepo, s.queue, s.cfg, s.GetLogger(), s.GetMetrics())
}

func (s *settlementSuite) newProcessor() *Processor {
	return NewProcessor(s.queue, s.fsm, s.cfg, s.GetLogger(), s.GetMetrics())
}

func (s *settlementSuite) status(id string) types.ContractStatus {
	c, err := s.GetStores().ContractRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return c.ContractStatus
}
