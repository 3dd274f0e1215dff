package settlement

import (
	"context"
	"testing"
	"time"

	domainSettlement "github.com/contractflow/contractflow/internal/domain/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchOf(seqIDs ...int64) *domainSettlement.TaskBatch {
	records := make([]*domainSettlement.Record, len(seqIDs))
	for i, id := range seqIDs {
		records[i] = &domainSettlement.Record{SeqID: id}
	}
	return domainSettlement.NewTaskBatch("cycle_test", records, nil)
}

func TestTaskQueueFIFO(t *testing.T) {
	q := NewTaskQueue(3)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, q.Push(ctx, batchOf(i)))
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Cap())

	for i := int64(1); i <= 3; i++ {
		b, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, b.StartSeqID)
	}
	assert.Zero(t, q.Len())
}

func TestTaskQueuePushBlocksWhenFull(t *testing.T) {
	q := NewTaskQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, batchOf(1)))
	require.NoError(t, q.Push(ctx, batchOf(2)))

	timeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := q.Push(timeout, batchOf(3))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, q.Len())

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(ctx, batchOf(3)) }()

	b, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.StartSeqID)

	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("push did not resume after pop")
	}
	assert.Equal(t, 2, q.Len())
}

func TestTaskQueuePopHonorsContext(t *testing.T) {
	q := NewTaskQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, q.Push(ctx, batchOf(1)), context.Canceled)
	assert.Zero(t, q.Len())
}

func TestTaskQueueMinimumCapacity(t *testing.T) {
	assert.Equal(t, 1, NewTaskQueue(0).Cap())
}
