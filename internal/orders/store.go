// Package orders implements the order lifecycle core: accept, validate,
// risk-gate, dual-store write-through, asynchronous state progression, and
// consistent reads.
package orders

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config tunes the order store.
type Config struct {
	// QueueCapacity bounds the processing queue; accept sheds load once the
	// bound is reached.
	QueueCapacity int
	// DrainInterval is the periodic drain tick, the safety net behind the
	// post-accept trigger.
	DrainInterval time.Duration
	// MaxResolveAttempts bounds drain retries for a failing order.
	MaxResolveAttempts int
	// RetryBackoff is the base delay before a failed resolution is retried;
	// it scales linearly with the attempt count.
	RetryBackoff time.Duration
	// HotCacheSize bounds the in-process order cache.
	HotCacheSize int
	// MetricsWindow is the latency recorder reset period.
	MetricsWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 4096
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = 100 * time.Millisecond
	}
	if c.MaxResolveAttempts <= 0 {
		c.MaxResolveAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.HotCacheSize <= 0 {
		c.HotCacheSize = 10000
	}
	if c.MetricsWindow <= 0 {
		c.MetricsWindow = 60 * time.Second
	}
	return c
}

// Store orchestrates the order lifecycle. Inbound operations may interleave
// freely; only the drain itself is single-flight.
type Store struct {
	cfg      Config
	cache    CacheStore
	durable  DurableStore
	risk     RiskGate
	exec     ExecutionGate
	events   EventPublisher
	logger   *zap.Logger
	hot      *hotCache
	queue    *processingQueue
	recorder *Recorder
	draining atomic.Bool
	bgCtx    context.Context
}

// NewStore wires the order lifecycle core. events may be nil when no
// notification layer is attached.
func NewStore(cfg Config, cache CacheStore, durable DurableStore, risk RiskGate, exec ExecutionGate, events EventPublisher, logger *zap.Logger) *Store {
	cfg = cfg.withDefaults()
	return &Store{
		cfg:      cfg,
		cache:    cache,
		durable:  durable,
		risk:     risk,
		exec:     exec,
		events:   events,
		logger:   logger,
		hot:      newHotCache(cfg.HotCacheSize),
		queue:    newProcessingQueue(cfg.QueueCapacity),
		recorder: NewRecorder(cfg.MetricsWindow),
		bgCtx:    context.Background(),
	}
}

// Start launches the periodic drain tick and the metrics window reset. It
// returns immediately; background work stops when ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	s.bgCtx = ctx
	go s.recorder.Run(ctx)
	go func() {
		ticker := time.NewTicker(s.cfg.DrainInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.kickDrain()
			}
		}
	}()
}

// Accept validates, risk-gates, persists, and enqueues a new order. The
// returned order is a copy owned by the caller.
func (s *Store) Accept(ctx context.Context, req Request, userID uuid.UUID) (order *Order, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("accept", time.Since(start), err) }()

	if err = ValidateRequest(&req); err != nil {
		return nil, err
	}
	if s.queue.Full() {
		err = NewStoreError("processing queue full", nil)
		return nil, err
	}

	id := req.ID
	if id == uuid.Nil {
		id = uuid.New()
	} else {
		// A caller-supplied id is accepted only after an existence check;
		// the insert below still enforces uniqueness race-free, so a
		// resubmitted id can never rewrite an existing order.
		existing, lookErr := s.lookup(ctx, id)
		if lookErr != nil {
			err = lookErr
			return nil, err
		}
		if existing != nil {
			err = NewValidationError("order id already exists")
			return nil, err
		}
	}
	tif := req.TimeInForce
	if tif == "" {
		tif = TimeInForceGTC
	}
	now := time.Now().UTC()
	o := &Order{
		ID:          id,
		UserID:      userID,
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    req.Quantity,
		Price:       req.Price,
		OrderType:   req.OrderType,
		TimeInForce: tif,
		Status:      OrderStatusPending,
		StopPrice:   req.StopPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	decision, gateErr := s.risk.Check(ctx, o, userID)
	if gateErr != nil {
		err = NewStoreError("risk gate unavailable", gateErr)
		return nil, err
	}
	if !decision.Approved {
		// Rejection happens before persistence; nothing is written.
		rejected := o.Clone()
		rejected.Status = OrderStatusRejected
		s.emit(EventOrderRejected, rejected)
		err = NewRiskRejectedError(decision.Reason)
		return nil, err
	}

	if err = s.persistNew(ctx, o); err != nil {
		return nil, err
	}
	s.hot.Set(o)
	s.queue.Push(queueItem{order: o.Clone()})
	s.kickDrain()
	s.emit(EventOrderAccepted, o)
	return o.Clone(), nil
}

// Modify merges a patch into a pending order owned by userID, re-validates,
// re-gates, and writes through both stores. The order is not re-enqueued.
func (s *Store) Modify(ctx context.Context, id uuid.UUID, patch Patch, userID uuid.UUID) (order *Order, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("modify", time.Since(start), err) }()

	cur, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		err = NewNotFoundError("order not found")
		return nil, err
	}
	if cur.UserID != userID {
		err = NewUnauthorizedError("order is owned by another user")
		return nil, err
	}
	if cur.Status != OrderStatusPending {
		err = NewInvalidStateError("only pending orders can be modified")
		return nil, err
	}

	merged := cur.Clone()
	patch.apply(merged)
	if err = validateOrder(merged); err != nil {
		return nil, err
	}

	decision, gateErr := s.risk.Check(ctx, merged, userID)
	if gateErr != nil {
		err = NewStoreError("risk gate unavailable", gateErr)
		return nil, err
	}
	if !decision.Approved {
		// The pre-existing pending order is left unchanged.
		err = NewRiskRejectedError(decision.Reason)
		return nil, err
	}

	merged.UpdatedAt = monotonicNow(cur.UpdatedAt)
	if err = s.persistUpdate(ctx, merged); err != nil {
		return nil, err
	}
	s.hot.Set(merged)
	s.emit(EventOrderModified, merged)
	return merged.Clone(), nil
}

// Cancel moves a pending order owned by userID to CANCELLED, a terminal
// status, and writes through both stores.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID, userID uuid.UUID) (order *Order, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("cancel", time.Since(start), err) }()

	cur, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		err = NewNotFoundError("order not found")
		return nil, err
	}
	if cur.UserID != userID {
		err = NewUnauthorizedError("order is owned by another user")
		return nil, err
	}
	if cur.Status != OrderStatusPending {
		err = NewInvalidStateError("only pending orders can be cancelled")
		return nil, err
	}

	cancelled := cur.Clone()
	cancelled.Status = OrderStatusCancelled
	cancelled.UpdatedAt = monotonicNow(cur.UpdatedAt)
	if err = s.persistUpdate(ctx, cancelled); err != nil {
		return nil, err
	}
	s.hot.Set(cancelled)
	s.emit(EventOrderCancelled, cancelled)
	return cancelled.Clone(), nil
}

// Get returns the order by id, or (nil, nil) when it exists in no store.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (order *Order, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("get", time.Since(start), err) }()
	order, err = s.lookup(ctx, id)
	return order, err
}

// lookup reads hot cache, then fast cache, then durable store, populating
// the hot cache on the way out. It records no metrics so that list
// operations observe exactly once.
func (s *Store) lookup(ctx context.Context, id uuid.UUID) (*Order, error) {
	if o := s.hot.Get(id); o != nil {
		return o, nil
	}
	o, err := s.cache.GetOrder(ctx, id)
	if err != nil {
		// The durable store backs a failing cache read.
		s.logger.Warn("fast cache read failed, falling back to durable store",
			zap.String("order_id", id.String()), zap.Error(err))
	}
	if o != nil {
		s.hot.Set(o)
		return o, nil
	}
	o, err = s.durable.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	s.hot.Set(o)
	return o, nil
}

// ListByUser returns the user's orders, most recent first. Index entries
// that no longer resolve are dropped rather than failing the list.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) (out []*Order, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("list_by_user", time.Since(start), err) }()

	ids, err := s.cache.UserOrderIDs(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.resolveIDs(ctx, ids), nil
}

// ListBySymbol returns the symbol's orders, most recent first, with the same
// drop-stale-entries behavior as ListByUser.
func (s *Store) ListBySymbol(ctx context.Context, symbol string, limit, offset int) (out []*Order, err error) {
	start := time.Now()
	defer func() { s.recorder.Observe("list_by_symbol", time.Since(start), err) }()

	ids, err := s.cache.SymbolOrderIDs(ctx, symbol, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.resolveIDs(ctx, ids), nil
}

func (s *Store) resolveIDs(ctx context.Context, ids []uuid.UUID) []*Order {
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.lookup(ctx, id)
		if err != nil {
			s.logger.Warn("dropping unresolvable index entry",
				zap.String("order_id", id.String()), zap.Error(err))
			continue
		}
		if o == nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Stats returns aggregate counters for operational dashboards.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.durable.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		OrdersByStatus: counts,
		QueueDepth:     s.queue.Depth(),
		HotCacheSize:   s.hot.Len(),
	}, nil
}

// LatencyStats returns the current metrics window per operation.
func (s *Store) LatencyStats() map[string]OpStats {
	return s.recorder.Snapshot()
}

// persistNew writes a freshly accepted order: durable store first, then the
// fast cache record plus index entries. A cache failure after a successful
// durable write is logged and the stale key invalidated; the accept still
// succeeds, so the cache never serves an entry older than the durable write.
func (s *Store) persistNew(ctx context.Context, o *Order) error {
	if err := s.durable.CreateOrder(ctx, o); err != nil {
		return err
	}
	if err := s.cache.PutOrder(ctx, o); err != nil {
		s.logger.Warn("cache write-through failed after durable write",
			zap.String("order_id", o.ID.String()), zap.Error(err))
		if derr := s.cache.DeleteOrder(ctx, o.ID); derr != nil {
			s.logger.Warn("cache invalidation failed",
				zap.String("order_id", o.ID.String()), zap.Error(derr))
		}
	}
	return nil
}

// persistUpdate writes an order mutation with the same durable-first policy
// as persistNew.
func (s *Store) persistUpdate(ctx context.Context, o *Order) error {
	if err := s.durable.UpdateOrder(ctx, o); err != nil {
		return err
	}
	if err := s.cache.UpdateOrder(ctx, o); err != nil {
		s.logger.Warn("cache write-through failed after durable update",
			zap.String("order_id", o.ID.String()), zap.Error(err))
		if derr := s.cache.DeleteOrder(ctx, o.ID); derr != nil {
			s.logger.Warn("cache invalidation failed",
				zap.String("order_id", o.ID.String()), zap.Error(derr))
		}
	}
	return nil
}

func (s *Store) emit(eventType string, o *Order) {
	if s.events == nil {
		return
	}
	eventsPublished.WithLabelValues(eventType).Inc()
	event := Event{Type: eventType, Order: o.Clone(), At: time.Now().UTC()}
	go func() {
		ctx, cancel := context.WithTimeout(s.bgCtx, 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("event publish failed",
				zap.String("type", eventType),
				zap.String("order_id", event.Order.ID.String()),
				zap.Error(err))
		}
	}()
}

// monotonicNow returns the current time, nudged forward if the clock reads
// at or before the previous update so updated_at never decreases.
func monotonicNow(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}
