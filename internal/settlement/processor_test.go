package settlement

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/gateway"
	"github.com/contractflow/contractflow/internal/service"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/stretchr/testify/suite"
)

type ProcessorSuite struct {
	settlementSuite
	processor *Processor
}

func TestProcessor(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) SetupTest() {
	s.settlementSuite.SetupTest()
	s.processor = s.newProcessor()
}

func (s *ProcessorSuite) recordsFor(ids ...int64) []*domainSettlement.Record {
	var out []*domainSettlement.Record
	for _, id := range ids {
		out = append(out, domainSettlement.RecordFromContract(s.createDue(id)))
	}
	return out
}

func (s *ProcessorSuite) TestSubmitsEveryRecord() {
	records := s.recordsFor(1, 2, 3)
	var done atomic.Int32
	batch := domainSettlement.NewTaskBatch("cycle_1", records, func() { done.Add(1) })

	result := s.processor.ProcessBatch(s.GetContext(), batch)
	s.Equal(3, result.Submitted)
	s.Zero(result.Failed)
	s.Equal(int32(1), done.Load())

	for _, r := range records {
		s.Equal(types.ContractStatusPendingPayment, s.status(r.ContractID))
	}

	published := s.GetPublisher().EventsTo(s.cfg.Routing.TryPayment)
	s.Require().Len(published, 3)
	for i, p := range published {
		s.Equal(types.EventTryPaymentContract, p.EventName)
		env, ok := p.Body.(gateway.Envelope)
		s.Require().True(ok)
		s.Equal(records[i].ContractID, env.ContractID)
	}
}

func (s *ProcessorSuite) TestFailingRecordDoesNotStopBatch() {
	records := s.recordsFor(1, 2)
	missing := &domainSettlement.Record{ContractID: "contract_missing", SeqID: 3, SettlementDate: time.Now().UTC()}
	batch := domainSettlement.NewTaskBatch("cycle_1", []*domainSettlement.Record{records[0], missing, records[1]}, nil)

	result := s.processor.ProcessBatch(s.GetContext(), batch)
	s.Equal(2, result.Submitted)
	s.Equal(1, result.Failed)
	s.Equal(types.ContractStatusPendingPayment, s.status(records[1].ContractID))
}

func (s *ProcessorSuite) TestPublishFailureLeavesRecordForNextCycle() {
	records := s.recordsFor(1)
	s.GetPublisher().FailRoutingKey(s.cfg.Routing.TryPayment, context.DeadlineExceeded)

	result := s.processor.ProcessBatch(s.GetContext(), domainSettlement.NewTaskBatch("cycle_1", records, nil))
	s.Equal(1, result.Failed)
	s.Equal(types.ContractStatusActive, s.status(records[0].ContractID))
	s.Zero(s.GetStores().ChangeHistoryRepo.Len())
}

func (s *ProcessorSuite) TestReprocessedBatchIsSkipped() {
	records := s.recordsFor(1, 2)

	first := s.processor.ProcessBatch(s.GetContext(), domainSettlement.NewTaskBatch("cycle_1", records, nil))
	s.Equal(2, first.Submitted)

	second := s.processor.ProcessBatch(s.GetContext(), domainSettlement.NewTaskBatch("cycle_2", records, nil))
	s.Zero(second.Submitted)
	s.Equal(2, second.Skipped)
	s.Len(s.GetPublisher().EventsTo(s.cfg.Routing.TryPayment), 2)
}

func (s *ProcessorSuite) TestRunDrainsQueueUntilCanceled() {
	cycle := NewCycle(domainSettlement.NewWindow(time.Now().Add(-time.Hour), time.Now()))
	records := s.recordsFor(1, 2, 3, 4)
	s.Require().NoError(s.queue.Push(s.GetContext(), cycle.NewBatch(records[:2])))
	s.Require().NoError(s.queue.Push(s.GetContext(), cycle.NewBatch(records[2:])))

	ctx, cancel := context.WithCancel(s.GetContext())
	stopped := make(chan struct{})
	go func() {
		s.processor.Run(ctx)
		close(stopped)
	}()

	waitCtx, waitCancel := context.WithTimeout(s.GetContext(), 5*time.Second)
	defer waitCancel()
	s.Require().NoError(cycle.Wait(waitCtx))

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.Fail("processor did not stop")
	}

	for _, r := range records {
		s.Equal(types.ContractStatusPendingPayment, s.status(r.ContractID))
	}
}

func (s *ProcessorSuite) TestTryPaymentEventCarriesSettlementKey() {
	r := s.recordsFor(7)[0]
	e := service.NewTryPaymentEvent(r)
	s.Equal("try:"+r.DedupeKey(), e.DedupeKey)
	s.Equal(r.DedupeKey(), e.Payload[service.PayloadSettlementKey])
}
