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

type SchedulerSuite struct {
	settlementSuite
	cancel context.CancelFunc
}

func TestScheduler(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.settlementSuite.SetupTest()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.newProcessor().Run(ctx)
}

func (s *SchedulerSuite) TearDownTest() {
	s.cancel()
	s.settlementSuite.TearDownTest()
}

func (s *SchedulerSuite) newScheduler(repo domainSettlement.Repository) *Scheduler {
	scanner := NewScanner(repo, s.queue, s.cfg, s.GetLogger(), s.GetMetrics())
	return NewScheduler(s.cfg, scanner, s.GetLogger(), s.GetMetrics(), nil, nil)
}

// blockingRepo holds GetMinMaxSeqID until release is closed
type blockingRepo struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRepo) GetMinMaxSeqID(ctx context.Context, _ domainSettlement.Window) (int64, int64, bool, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
		return 0, 0, false, nil
	case <-ctx.Done():
		return 0, 0, false, ctx.Err()
	}
}

func (r *blockingRepo) GetSettlementRecords(context.Context, domainSettlement.Window, int64, int64, int) ([]*domainSettlement.Record, error) {
	return nil, nil
}

type failingRepo struct{}

func (failingRepo) GetMinMaxSeqID(context.Context, domainSettlement.Window) (int64, int64, bool, error) {
	return 0, 0, false, errors.New("connection refused")
}

func (failingRepo) GetSettlementRecords(context.Context, domainSettlement.Window, int64, int64, int) ([]*domainSettlement.Record, error) {
	return nil, errors.New("connection refused")
}

func (s *SchedulerSuite) TestRunCycleSettlesDueContracts() {
	var ids []string
	for i := int64(1); i <= 3; i++ {
		ids = append(ids, s.createDue(i).ID)
	}
	scheduler := s.newScheduler(s.GetStores().SettlementRepo)

	result, started, err := scheduler.RunCycle(s.GetContext())
	s.Require().NoError(err)
	s.True(started)
	s.Equal(3, result.Scan.Records)
	s.Equal(int64(1), scheduler.Cycles())
	s.False(scheduler.InFlight())

	for _, id := range ids {
		s.Equal(types.ContractStatusPendingPayment, s.status(id))
	}

	// a second cycle finds nothing left to settle
	result, started, err = scheduler.RunCycle(s.GetContext())
	s.Require().NoError(err)
	s.True(started)
	s.Zero(result.Scan.Records)
}

func (s *SchedulerSuite) TestTriggerWhileInFlightIsSkipped() {
	repo := &blockingRepo{entered: make(chan struct{}, 1), release: make(chan struct{})}
	scheduler := s.newScheduler(repo)

	s.True(scheduler.Trigger(s.GetContext()))
	select {
	case <-repo.entered:
	case <-time.After(time.Second):
		s.FailNow("cycle did not start")
	}

	s.False(scheduler.Trigger(s.GetContext()))
	_, started, err := scheduler.RunCycle(s.GetContext())
	s.NoError(err)
	s.False(started)
	s.Equal(int64(2), scheduler.Skipped())
	s.Equal(int64(1), scheduler.Cycles())

	close(repo.release)
	s.Eventually(func() bool { return !scheduler.InFlight() }, time.Second, 5*time.Millisecond)
	s.True(scheduler.Trigger(s.GetContext()))

	stopCtx, cancel := context.WithTimeout(s.GetContext(), time.Second)
	defer cancel()
	s.NoError(scheduler.Stop(stopCtx))
}

func (s *SchedulerSuite) TestScanErrorFailsCycleAndReleasesGuard() {
	scheduler := s.newScheduler(failingRepo{})

	_, started, err := scheduler.RunCycle(s.GetContext())
	s.True(started)
	s.Require().Error(err)
	s.True(ierr.IsDatabase(err))

	_, started, _ = scheduler.RunCycle(s.GetContext())
	s.True(started)
	s.Equal(int64(2), scheduler.Cycles())
}

func (s *SchedulerSuite) TestStartRejectsInvalidSchedule() {
	s.cfg.Settlement.Enabled = true
	s.cfg.Settlement.Schedule = "every so often"
	scheduler := s.newScheduler(s.GetStores().SettlementRepo)

	err := scheduler.Start()
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SchedulerSuite) TestStartAndStop() {
	s.cfg.Settlement.Enabled = true
	s.cfg.Settlement.Schedule = "* * * * * *"
	s.createDue(1)
	scheduler := s.newScheduler(s.GetStores().SettlementRepo)

	s.Require().NoError(scheduler.Start())
	s.Eventually(func() bool { return scheduler.Cycles() > 0 }, 3*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(s.GetContext(), 2*time.Second)
	defer cancel()
	s.NoError(scheduler.Stop(stopCtx))
}

func (s *SchedulerSuite) TestDisabledScheduleOnlyRunsOnTrigger() {
	s.cfg.Settlement.Enabled = false
	s.cfg.Settlement.Schedule = "* * * * * *"
	due := s.createDue(1)
	scheduler := s.newScheduler(s.GetStores().SettlementRepo)

	s.Require().NoError(scheduler.Start())
	s.Empty(scheduler.cron.Entries())
	s.Never(func() bool { return scheduler.Cycles() > 0 }, 1500*time.Millisecond, 50*time.Millisecond)

	s.True(scheduler.Trigger(s.GetContext()))
	s.Eventually(func() bool {
		return s.status(due.ID) == types.ContractStatusPendingPayment
	}, 2*time.Second, 10*time.Millisecond)
	s.Equal(int64(1), scheduler.Cycles())

	stopCtx, cancel := context.WithTimeout(s.GetContext(), time.Second)
	defer cancel()
	s.NoError(scheduler.Stop(stopCtx))
}

func (s *SchedulerSuite) TestNoCycleStartsAfterStop() {
	scheduler := s.newScheduler(s.GetStores().SettlementRepo)

	stopCtx, cancel := context.WithTimeout(s.GetContext(), time.Second)
	defer cancel()
	s.Require().NoError(scheduler.Stop(stopCtx))

	s.False(scheduler.Trigger(s.GetContext()))
	_, started, err := scheduler.RunCycle(s.GetContext())
	s.NoError(err)
	s.False(started)
	s.Zero(scheduler.Cycles())
	s.False(scheduler.InFlight())
}
