package settlement

import (
	"context"

	"github.com/contractflow/contractflow/internal/config"
	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/contractflow/contractflow/internal/logger"
	"github.com/contractflow/contractflow/internal/metrics"
)

// ScanResult describes what one scan pushed onto the queue
type ScanResult struct {
	CycleID  string `json:"cycle_id"`
	MinSeqID int64  `json:"min_seq_id"`
	MaxSeqID int64  `json:"max_seq_id"`
	Batches  int    `json:"batches"`
	Records  int    `json:"records"`
}

// Scanner pages the contracts due in a window into task batches ordered by seq id
type Scanner struct {
	repo     domainSettlement.Repository
	queue    *TaskQueue
	logger   *logger.Logger
	metrics  *metrics.Metrics
	pageSize int
}

func NewScanner(
	repo domainSettlement.Repository,
	queue *TaskQueue,
	cfg *config.Configuration,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Scanner {
	pageSize := cfg.Settlement.PageSize
	if pageSize < 1 {
		pageSize = config.GetDefaultConfig().Settlement.PageSize
	}
	return &Scanner{
		repo:     repo,
		queue:    queue,
		logger:   logger,
		metrics:  metrics,
		pageSize: pageSize,
	}
}

// Scan pushes every due record of the cycle's window onto the queue. A store
// error stops the scan; batches already pushed stay queued.
func (s *Scanner) Scan(ctx context.Context, cycle *Cycle) (*ScanResult, error) {
	result := &ScanResult{CycleID: cycle.ID}
	log := s.logger.With("cycle_id", cycle.ID)

	minSeq, maxSeq, found, err := s.repo.GetMinMaxSeqID(ctx, cycle.Window)
	if err != nil {
		return result, ierr.WithError(err).
			WithHint("Failed to read the settlement seq id range").
			WithReportableDetails(map[string]any{"cycle_id": cycle.ID}).
			Mark(ierr.ErrDatabase)
	}
	if !found || minSeq < 1 || minSeq > maxSeq {
		log.Debugw("no contracts due for settlement",
			"window_start", cycle.Window.StartDate,
			"window_end", cycle.Window.EndDate,
		)
		return result, nil
	}
	result.MinSeqID, result.MaxSeqID = minSeq, maxSeq

	for cursor := minSeq; cursor <= maxSeq; {
		records, err := s.repo.GetSettlementRecords(ctx, cycle.Window, cursor, maxSeq, s.pageSize)
		if err != nil {
			return result, ierr.WithError(err).
				WithHint("Failed to read a settlement page").
				WithReportableDetails(map[string]any{"cycle_id": cycle.ID, "cursor": cursor}).
				Mark(ierr.ErrDatabase)
		}
		if len(records) == 0 {
			break
		}

		last := records[len(records)-1].SeqID
		if last < cursor {
			return result, ierr.NewError("settlement page went backwards").
				WithReportableDetails(map[string]any{"cycle_id": cycle.ID, "cursor": cursor, "last_seq_id": last}).
				Mark(ierr.ErrSystem)
		}

		batch := cycle.NewBatch(records)
		if err := s.queue.Push(ctx, batch); err != nil {
			batch.Done()
			return result, err
		}
		s.metrics.BatchQueued()
		s.metrics.SetQueueDepth(s.queue.Len())

		result.Batches++
		result.Records += len(records)
		cursor = last + 1
	}

	log.Infow("settlement scan finished",
		"min_seq_id", result.MinSeqID,
		"max_seq_id", result.MaxSeqID,
		"batches", result.Batches,
		"records", result.Records,
	)
	return result, nil
}
