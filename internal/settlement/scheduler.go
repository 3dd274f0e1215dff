package settlement

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/contractflow/contractflow/internal/config"
	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/pyroscope"
	"github.com/contractflow/contractflow/internal/sentry"
	"github.com/robfig/cron/v3"
)

// CycleResult summarizes a finished settlement cycle
type CycleResult struct {
	Scan     *ScanResult   `json:"scan"`
	Duration time.Duration `json:"duration"`
}

// Scheduler runs settlement cycles on a cron schedule. At most one cycle is
// in flight; ticks that arrive while one runs are skipped, not queued.
type Scheduler struct {
	cfg       config.SettlementConfig
	scanner   *Scanner
	logger    *logger.Logger
	metrics   *metrics.Metrics
	pyroscope *pyroscope.Service
	sentry    *sentry.Service

	cron     *cron.Cron
	baseCtx  context.Context
	cancel   context.CancelFunc
	running  atomic.Bool
	inflight sync.WaitGroup
	// mu orders inflight.Add against the Wait in Stop
	mu       sync.Mutex
	stopping bool

	cycles  atomic.Int64
	skipped atomic.Int64

	now func() time.Time
}

func NewScheduler(
	cfg *config.Configuration,
	scanner *Scanner,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	pyroscope *pyroscope.Service,
	sentry *sentry.Service,
) *Scheduler {
	cronLogger := logger.GetCronLogger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:       cfg.Settlement,
		scanner:   scanner,
		logger:    logger,
		metrics:   metrics,
		pyroscope: pyroscope,
		sentry:    sentry,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		baseCtx: ctx,
		cancel:  cancel,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the tick and starts the cron runner. With the schedule
// disabled only Trigger and RunCycle start cycles.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Infow("settlement schedule disabled, cycles run on trigger only")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, _, err := s.RunCycle(s.baseCtx); err != nil {
			s.logger.Errorw("settlement cycle failed", "error", err)
		}
	})
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Invalid settlement schedule %q", s.cfg.Schedule).
			Mark(ierr.ErrValidation)
	}

	s.cron.Start()
	s.logger.Infow("settlement scheduler started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop stops scheduling and waits for the cycle in flight until ctx ends
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infow("settlement scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCycle runs one cycle unless one is already in flight. started is false
// when the call was skipped.
func (s *Scheduler) RunCycle(ctx context.Context) (result *CycleResult, started bool, err error) {
	if !s.acquire() {
		return nil, false, nil
	}
	result, err = s.runCycle(ctx)
	return result, true, err
}

// Trigger starts a cycle in the background and reports whether one was started
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.acquire() {
		return false
	}

	s.logger.Infow("settlement cycle triggered manually")
	go func() {
		if _, err := s.runCycle(s.baseCtx); err != nil {
			s.logger.Errorw("triggered settlement cycle failed", "error", err)
		}
	}()
	return true
}

// Cycles counts the cycles started so far
func (s *Scheduler) Cycles() int64 {
	return s.cycles.Load()
}

// Skipped counts the ticks dropped because a cycle was in flight
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// InFlight reports whether a cycle is running
func (s *Scheduler) InFlight() bool {
	return s.running.Load()
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopping {
		s.logger.Infow("settlement scheduler stopping, not starting a cycle")
		return false
	}
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.metrics.TickSkipped()
		s.logger.Infow("settlement cycle still in flight, skipping tick")
		return false
	}
	s.inflight.Add(1)
	s.cycles.Add(1)
	return true
}

// runCycle must only be called after acquire succeeded
func (s *Scheduler) runCycle(ctx context.Context) (*CycleResult, error) {
	defer func() {
		s.running.Store(false)
		s.inflight.Done()
	}()

	now := s.now()
	cycle := NewCycle(domainSettlement.NewWindow(now.Add(-s.cfg.Lookback), now))
	log := s.logger.With("cycle_id", cycle.ID)
	log.Infow("settlement cycle started",
		"window_start", cycle.Window.StartDate,
		"window_end", cycle.Window.EndDate,
	)

	txn, ctx := s.sentry.StartTransaction(ctx, "settlement.cycle")
	if txn != nil {
		defer txn.Finish()
	}

	var (
		scan    *ScanResult
		scanErr error
		waitErr error
	)
	s.pyroscope.TagWrapper(ctx, map[string]string{"settlement_cycle": "scan"}, func(ctx context.Context) {
		scan, scanErr = s.scanner.Scan(ctx, cycle)
		// pushed batches are processed even when the scan stopped early
		waitErr = cycle.Wait(ctx)
	})

	result := &CycleResult{Scan: scan, Duration: time.Since(cycle.StartedAt)}
	if scanErr != nil || waitErr != nil {
		s.metrics.CycleFailed()
		err := scanErr
		if err == nil {
			err = waitErr
		}
		log.Errorw("settlement cycle ended with error", "error", err, "duration", result.Duration)
		s.sentry.CaptureExceptionWithTags(err, map[string]string{"cycle_id": cycle.ID})
		return result, err
	}

	s.metrics.CycleCompleted(result.Duration.Seconds())
	log.Infow("settlement cycle finished",
		"batches", scan.Batches,
		"records", scan.Records,
		"duration", result.Duration,
	)
	return result, nil
}
