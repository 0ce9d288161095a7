package orders

import (
	"sync"
	"time"
)

// queueItem is one accepted order awaiting state resolution, with its retry
// bookkeeping.
type queueItem struct {
	order     *Order
	attempts  int
	notBefore time.Time
}

// processingQueue is the in-process FIFO of accepted orders. The capacity
// bound is enforced at accept admission (Full), not on Push, so an order that
// passed admission and was persisted can always be queued.
type processingQueue struct {
	mu       sync.Mutex
	items    []queueItem
	capacity int
}

func newProcessingQueue(capacity int) *processingQueue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &processingQueue{capacity: capacity}
}

func (q *processingQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) >= q.capacity
}

func (q *processingQueue) Push(item queueItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	depth := len(q.items)
	q.mu.Unlock()
	queueDepthGauge.Set(float64(depth))
}

func (q *processingQueue) Pop() (queueItem, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return queueItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	depth := len(q.items)
	q.mu.Unlock()
	queueDepthGauge.Set(float64(depth))
	return item, true
}

func (q *processingQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
