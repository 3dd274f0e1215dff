package settlement

import (
	"context"

	"github.com/contractflow/contractflow/internal/config"
	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
	"github.com/contractflow/contractflow/internal/service"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

// BatchResult counts what happened to the records of one batch
type BatchResult struct {
	CycleID   string `json:"cycle_id"`
	Submitted int    `json:"submitted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// Processor drains the task queue and routes each due record to the payment
// subsystem through the contract FSM
type Processor struct {
	queue   *TaskQueue
	fsm     service.ContractFSMService
	limiter *rate.Limiter
	logger  *logger.Logger
	metrics *metrics.Metrics
	workers int
}

func NewProcessor(
	queue *TaskQueue,
	fsm service.ContractFSMService,
	cfg *config.Configuration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Processor {
	limit := rate.Inf
	if cfg.Settlement.PublishRate > 0 {
		limit = rate.Limit(cfg.Settlement.PublishRate)
	}
	burst := cfg.Settlement.PublishBurst
	if burst < 1 {
		burst = 1
	}
	workers := cfg.Settlement.Workers
	if workers < 1 {
		workers = 1
	}

	return &Processor{
		queue:   queue,
		fsm:     fsm,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		metrics: metrics,
		workers: workers,
	}
}

// Run processes batches until ctx ends
func (p *Processor) Run(ctx context.Context) {
	var wg conc.WaitGroup
	for i := 0; i < p.workers; i++ {
		worker := i
		wg.Go(func() {
			p.work(ctx, worker)
		})
	}
	wg.Wait()
}

func (p *Processor) work(ctx context.Context, worker int) {
	for {
		batch, err := p.queue.Pop(ctx)
		if err != nil {
			p.logger.Debugw("settlement worker stopped", "worker", worker, "reason", err)
			return
		}
		p.metrics.SetQueueDepth(p.queue.Len())
		p.ProcessBatch(ctx, batch)
	}
}

// ProcessBatch submits the batch's records in order. A failed record is
// counted and left for the next cycle; the rest of the batch still runs.
func (p *Processor) ProcessBatch(ctx context.Context, batch *domainSettlement.TaskBatch) BatchResult {
	defer batch.Done()

	result := BatchResult{CycleID: batch.CycleID}
	for _, r := range batch.Records {
		if err := p.limiter.Wait(ctx); err != nil {
			p.logger.Warnw("settlement batch interrupted",
				"cycle_id", batch.CycleID,
				"contract_id", r.ContractID,
				"error", err,
			)
			break
		}

		_, err := p.fsm.Apply(ctx, r.ContractID, service.NewTryPaymentEvent(r))
		switch {
		case err == nil:
			result.Submitted++
			p.metrics.RecordSubmitted()
		case ierr.IsDuplicateEvent(err), ierr.IsIllegalTransition(err):
			// the contract moved on since the scan
			result.Skipped++
		default:
			result.Failed++
			p.metrics.RecordFailed()
			p.logger.Warnw("failed to submit settlement record",
				"cycle_id", batch.CycleID,
				"contract_id", r.ContractID,
				"seq_id", r.SeqID,
				"dedupe_key", r.DedupeKey(),
				"error", err,
			)
		}
	}

	p.logger.Debugw("settlement batch processed",
		"cycle_id", batch.CycleID,
		"start_seq_id", batch.StartSeqID,
		"end_seq_id", batch.EndSeqID,
		"submitted", result.Submitted,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result
}
