package orders

import (
	"time"

	"go.uber.org/zap"
)

// kickDrain starts a drain unless one is already running. The drain is
// single-flight: the CAS guarantees at most one concurrent drain, and a
// dropped trigger is covered by the periodic tick.
func (s *Store) kickDrain() {
	if !s.draining.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.draining.Store(false)
		s.drain()
	}()
}

// drain pops until the queue is empty, resolving one order fully before the
// next. Items that fail or are not yet due for retry are re-pushed after the
// loop so a persistently failing order cannot spin the drain.
func (s *Store) drain() {
	var deferred []queueItem
	for {
		item, ok := s.queue.Pop()
		if !ok {
			break
		}
		if time.Now().Before(item.notBefore) {
			deferred = append(deferred, item)
			continue
		}
		if err := s.resolve(item.order); err != nil {
			reason := string(KindOf(err))
			if reason == "" {
				reason = "unknown"
			}
			drainFailures.WithLabelValues(reason).Inc()
			s.logger.Error("order resolution failed",
				zap.String("order_id", item.order.ID.String()),
				zap.String("order_type", item.order.OrderType),
				zap.Int("attempt", item.attempts+1),
				zap.Error(err))

			if item.attempts+1 < s.cfg.MaxResolveAttempts {
				backoff := s.cfg.RetryBackoff * time.Duration(item.attempts+1)
				deferred = append(deferred, queueItem{
					order:     item.order,
					attempts:  item.attempts + 1,
					notBefore: time.Now().Add(backoff),
				})
			} else {
				// Retries exhausted; the order stays PENDING.
				s.logger.Error("giving up on order resolution",
					zap.String("order_id", item.order.ID.String()),
					zap.Int("attempts", item.attempts+1))
			}
		}
	}
	for _, item := range deferred {
		s.queue.Push(item)
	}
}

// resolve advances one order through its type-specific transition. The
// queued copy may be stale, so the current state is re-read first; orders
// that reached a terminal status while queued are skipped.
func (s *Store) resolve(queued *Order) error {
	ctx := s.bgCtx
	cur, err := s.lookup(ctx, queued.ID)
	if err != nil {
		return err
	}
	if cur == nil || cur.Terminal() {
		return nil
	}

	switch cur.OrderType {
	case OrderTypeMarket:
		// Market orders resolve immediately through the execution gate; no
		// price discovery happens here.
		result, err := s.exec.Execute(ctx, cur)
		if err != nil {
			return NewExecutionError("execution gate failed", err)
		}
		if !result.Filled {
			return NewExecutionError("execution gate declined the fill", nil)
		}
		filled := cur.Clone()
		filled.Status = OrderStatusFilled
		filled.UpdatedAt = monotonicNow(cur.UpdatedAt)
		if err := s.persistUpdate(ctx, filled); err != nil {
			// The order reached a terminal status while the fill was in
			// flight; its state wins.
			if IsKind(err, KindInvalidState) {
				return nil
			}
			return err
		}
		s.hot.Set(filled)
		s.emit(EventOrderFilled, filled)
		return nil
	default:
		// LIMIT, STOP, and STOP_LIMIT rest in the book as PENDING.
		resting := cur.Clone()
		resting.UpdatedAt = monotonicNow(cur.UpdatedAt)
		if err := s.persistUpdate(ctx, resting); err != nil {
			if IsKind(err, KindInvalidState) {
				return nil
			}
			return err
		}
		s.hot.Set(resting)
		return nil
	}
}
