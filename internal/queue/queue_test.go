package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueue_FIFO(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Push(&Task{ID: "task-001", URL: "https://item.taobao.com/item.htm?id=1"}))
	require.NoError(t, q.Push(&Task{ID: "task-002", URL: "https://item.taobao.com/item.htm?id=2"}))
	assert.Equal(t, 2, q.Size())

	first, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task-001", first.ID)

	second, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task-002", second.ID)
	assert.Equal(t, 0, q.Size())
}

func TestInMemoryQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue()

	go func() {
		time.Sleep(50 * time.Millisecond)
		q.Push(&Task{ID: "task-001"})
	}()

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "task-001", task.ID)
}

func TestInMemoryQueue_PopHonorsContext(t *testing.T) {
	q := NewInMemoryQueue()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Push(&Task{ID: "task-001"}))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Task{ID: "task-002"}), ErrQueueClosed)

	task, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "task-001", task.ID)

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrQueueClosed)
}
