package settlement

import (
	"context"

	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
)

// TaskQueue is the bounded FIFO between the scanner and the processor. Push
// blocks while the queue is full and Pop blocks while it is empty.
type TaskQueue struct {
	batches chan *domainSettlement.TaskBatch
}

func NewTaskQueue(capacity int) *TaskQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &TaskQueue{batches: make(chan *domainSettlement.TaskBatch, capacity)}
}

// Push enqueues batch, waiting for room until ctx ends
func (q *TaskQueue) Push(ctx context.Context, batch *domainSettlement.TaskBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.batches <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues the oldest batch, waiting for one until ctx ends
func (q *TaskQueue) Pop(ctx context.Context) (*domainSettlement.TaskBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case b := <-q.batches:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *TaskQueue) Len() int {
	return len(q.batches)
}

func (q *TaskQueue) Cap() int {
	return cap(q.batches)
}
