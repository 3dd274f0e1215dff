package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/types"
	"github.com/stretchr/testify/suite"
)

type ScannerSuite struct {
	settlementSuite
	scanner *Scanner
}

func TestScanner(t *testing.T) {
	suite.Run(t, new(ScannerSuite))
}

func (s *ScannerSuite) SetupTest() {
	s.settlementSuite.SetupTest()
	s.scanner = s.newScanner()
}

func (s *ScannerSuite) cycle() *Cycle {
	now := time.Now().UTC()
	return NewCycle(domainSettlement.NewWindow(now.Add(-24*time.Hour), now))
}

func (s *ScannerSuite) drain() []*domainSettlement.TaskBatch {
	var out []*domainSettlement.TaskBatch
	for s.queue.Len() > 0 {
		b, err := s.queue.Pop(context.Background())
		s.Require().NoError(err)
		out = append(out, b)
	}
	return out
}

func (s *ScannerSuite) TestSingleContract() {
	c := s.createDue(5)

	result, err := s.scanner.Scan(s.GetContext(), s.cycle())
	s.Require().NoError(err)
	s.Equal(int64(5), result.MinSeqID)
	s.Equal(int64(5), result.MaxSeqID)
	s.Equal(1, result.Batches)

	batches := s.drain()
	s.Require().Len(batches, 1)
	s.Equal(int64(5), batches[0].StartSeqID)
	s.Equal(int64(5), batches[0].EndSeqID)
	s.Equal(c.ID, batches[0].Records[0].ContractID)
}

func (s *ScannerSuite) TestPaginatesBySeqID() {
	for i := int64(1); i <= 250; i++ {
		s.createDue(i)
	}

	result, err := s.scanner.Scan(s.GetContext(), s.cycle())
	s.Require().NoError(err)
	s.Equal(3, result.Batches)
	s.Equal(250, result.Records)

	batches := s.drain()
	s.Require().Len(batches, 3)
	want := []struct{ start, end int64 }{{1, 100}, {101, 200}, {201, 250}}
	for i, w := range want {
		s.Equal(w.start, batches[i].StartSeqID)
		s.Equal(w.end, batches[i].EndSeqID)
	}
	s.Equal(50, batches[2].Size())
}

func (s *ScannerSuite) TestSkipsContractsOutsideTheWindow() {
	ctx := s.GetContext()
	repo := s.GetStores().ContractRepo
	due := s.createDue(1)

	pending := s.NewTestContract()
	pending.SeqID = 2
	pending.ContractStatus = types.ContractStatusPendingPayment
	s.Require().NoError(repo.Create(ctx, pending))

	oneTime := s.NewTestContract()
	oneTime.SeqID = 3
	oneTime.ContractStatus = types.ContractStatusActive
	oneTime.CycleType = types.CycleTypeOneTime
	s.Require().NoError(repo.Create(ctx, oneTime))

	later := s.NewTestContract()
	later.SeqID = 4
	later.ContractStatus = types.ContractStatusActive
	next := time.Now().UTC().Add(time.Hour)
	later.NextSettlementDate = &next
	s.Require().NoError(repo.Create(ctx, later))

	result, err := s.scanner.Scan(ctx, s.cycle())
	s.Require().NoError(err)
	s.Equal(1, result.Records)

	batches := s.drain()
	s.Require().Len(batches, 1)
	s.Equal(due.ID, batches[0].Records[0].ContractID)
}

func (s *ScannerSuite) TestNothingDue() {
	result, err := s.scanner.Scan(s.GetContext(), s.cycle())
	s.Require().NoError(err)
	s.Zero(result.Batches)
	s.Zero(s.queue.Len())
	s.Zero(s.GetStores().SettlementRepo.PageQueries())
}

func (s *ScannerSuite) TestStoreErrorAbortsScan() {
	s.createDue(1)
	s.GetStores().SettlementRepo.Err = errors.New("connection reset")

	_, err := s.scanner.Scan(s.GetContext(), s.cycle())
	s.Require().Error(err)
	s.True(ierr.IsDatabase(err))
	s.Zero(s.queue.Len())
}

func (s *ScannerSuite) TestCanceledPushReleasesBatch() {
	s.queue = NewTaskQueue(1)
	for i := int64(1); i <= 3; i++ {
		s.createDue(i)
	}
	s.cfg.Settlement.PageSize = 1
	s.scanner = s.newScanner()

	ctx, cancel := context.WithTimeout(s.GetContext(), 50*time.Millisecond)
	defer cancel()
	cycle := s.cycle()

	result, err := s.scanner.Scan(ctx, cycle)
	s.Require().ErrorIs(err, context.DeadlineExceeded)
	s.Equal(1, result.Batches)

	// only the queued batch is still pending
	b, err := s.queue.Pop(context.Background())
	s.Require().NoError(err)
	b.Done()
	s.NoError(cycle.Wait(context.Background()))
}
