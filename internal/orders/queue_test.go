package orders

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingQueue_FIFO(t *testing.T) {
	q := newProcessingQueue(10)

	first := &Order{ID: uuid.New()}
	second := &Order{ID: uuid.New()}
	q.Push(queueItem{order: first})
	q.Push(queueItem{order: second})
	assert.Equal(t, 2, q.Depth())

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, first.ID, item.order.ID)

	item, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, second.ID, item.order.ID)

	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Zero(t, q.Depth())
}

func TestProcessingQueue_FullAtCapacity(t *testing.T) {
	q := newProcessingQueue(2)
	assert.False(t, q.Full())

	q.Push(queueItem{order: &Order{ID: uuid.New()}})
	assert.False(t, q.Full())
	q.Push(queueItem{order: &Order{ID: uuid.New()}})
	assert.True(t, q.Full())

	// Push past capacity still succeeds; the bound is enforced at accept
	// admission.
	q.Push(queueItem{order: &Order{ID: uuid.New()}})
	assert.Equal(t, 3, q.Depth())
}

func TestProcessingQueue_RetrySchedulingFields(t *testing.T) {
	q := newProcessingQueue(2)
	notBefore := time.Now().Add(time.Minute)
	q.Push(queueItem{order: &Order{ID: uuid.New()}, attempts: 2, notBefore: notBefore})

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, item.attempts)
	assert.Equal(t, notBefore, item.notBefore)
}
