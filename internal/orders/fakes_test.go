package orders

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// fakeCache is an in-memory CacheStore with the same most-recent-first index
// semantics as the Redis adapter.
type fakeCache struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*Order
	userIdx   map[uuid.UUID][]uuid.UUID
	symbolIdx map[string][]uuid.UUID

	failPut    error
	failUpdate error
	failGet    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		records:   make(map[uuid.UUID]*Order),
		userIdx:   make(map[uuid.UUID][]uuid.UUID),
		symbolIdx: make(map[string][]uuid.UUID),
	}
}

func (f *fakeCache) PutOrder(ctx context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.records[order.ID] = order.Clone()
	f.userIdx[order.UserID] = append([]uuid.UUID{order.ID}, f.userIdx[order.UserID]...)
	f.symbolIdx[order.Symbol] = append([]uuid.UUID{order.ID}, f.symbolIdx[order.Symbol]...)
	return nil
}

func (f *fakeCache) UpdateOrder(ctx context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	f.records[order.ID] = order.Clone()
	return nil
}

func (f *fakeCache) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	if o, ok := f.records[id]; ok {
		return o.Clone(), nil
	}
	return nil, nil
}

func (f *fakeCache) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakeCache) UserOrderIDs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pageIDs(f.userIdx[userID], limit, offset), nil
}

func (f *fakeCache) SymbolOrderIDs(ctx context.Context, symbol string, limit, offset int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pageIDs(f.symbolIdx[symbol], limit, offset), nil
}

func pageIDs(ids []uuid.UUID, limit, offset int) []uuid.UUID {
	if offset >= len(ids) {
		return nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]uuid.UUID, end-offset)
	copy(out, ids[offset:end])
	return out
}

// fakeDurable is an in-memory DurableStore mirroring the Postgres adapter's
// insert-only create and pending-only update guard.
type fakeDurable struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Order

	failCreate error
	failUpdate error
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{rows: make(map[uuid.UUID]*Order)}
}

func (f *fakeDurable) CreateOrder(ctx context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	if _, ok := f.rows[order.ID]; ok {
		return NewValidationError("order id already exists")
	}
	f.rows[order.ID] = order.Clone()
	return nil
}

func (f *fakeDurable) UpdateOrder(ctx context.Context, order *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	cur, ok := f.rows[order.ID]
	if !ok {
		return NewNotFoundError("order not found in durable store")
	}
	if cur.Status != OrderStatusPending {
		return NewInvalidStateError("order is no longer pending")
	}
	f.rows[order.ID] = order.Clone()
	return nil
}

func (f *fakeDurable) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.rows[id]; ok {
		return o.Clone(), nil
	}
	return nil, nil
}

func (f *fakeDurable) CountByStatus(ctx context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, o := range f.rows {
		counts[o.Status]++
	}
	return counts, nil
}

// fakeRisk approves or rejects every order.
type fakeRisk struct {
	approve bool
	reason  string
	err     error
}

func (f *fakeRisk) Check(ctx context.Context, order *Order, userID uuid.UUID) (RiskDecision, error) {
	if f.err != nil {
		return RiskDecision{}, f.err
	}
	return RiskDecision{Approved: f.approve, Reason: f.reason}, nil
}

// fakeExec tracks call and concurrency counts; failures can be limited to
// the first failUntil calls.
type fakeExec struct {
	filled    bool
	err       error
	failUntil int32
	delay     time.Duration

	calls         atomic.Int32
	active        atomic.Int32
	maxConcurrent atomic.Int32
}

func (f *fakeExec) Execute(ctx context.Context, order *Order) (ExecutionResult, error) {
	call := f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		max := f.maxConcurrent.Load()
		if cur <= max || f.maxConcurrent.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil && (f.failUntil == 0 || call <= f.failUntil) {
		return ExecutionResult{}, f.err
	}
	return ExecutionResult{Filled: f.filled}, nil
}

// fakePublisher records emitted events.
type fakePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (f *fakePublisher) Publish(ctx context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}
