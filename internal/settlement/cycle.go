package settlement

import (
	"context"
	"sync"
	"time"

	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/contractflow/contractflow/internal/types"
)

// Cycle is one scheduler run: a window and the batches scanned out of it
type Cycle struct {
	ID        string
	Window    domainSettlement.Window
	StartedAt time.Time

	pending sync.WaitGroup
}

func NewCycle(window domainSettlement.Window) *Cycle {
	return &Cycle{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CYCLE),
		Window:    window,
		StartedAt: time.Now().UTC(),
	}
}

// NewBatch wraps a page of records as a batch the cycle waits on
func (c *Cycle) NewBatch(records []*domainSettlement.Record) *domainSettlement.TaskBatch {
	c.pending.Add(1)
	return domainSettlement.NewTaskBatch(c.ID, records, c.pending.Done)
}

// Wait blocks until every batch of the cycle is done or ctx ends
func (c *Cycle) Wait(ctx context.Context) error {
	drained := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
