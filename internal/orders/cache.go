// Redis-backed fast cache: read-optimized, TTL-bounded mirror of order state.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Redis key patterns for order data
const (
	orderKeyFmt       = "order:%s"         // order_id
	userIndexKeyFmt   = "orders:user:%s"   // user_id
	symbolIndexKeyFmt = "orders:symbol:%s" // symbol
)

// DefaultRecordTTL bounds every order record and index entry in the cache.
// Indexes carry the same expiry as the records they reference so they cannot
// outlive them.
const DefaultRecordTTL = 24 * time.Hour

// RedisCache implements CacheStore on a pooled Redis client.
type RedisCache struct {
	client    redis.UniversalClient
	logger    *zap.Logger
	ttl       time.Duration
	opTimeout time.Duration
}

// NewRedisCache creates a Redis-backed fast cache. Zero ttl falls back to
// DefaultRecordTTL; zero opTimeout falls back to 2s.
func NewRedisCache(client redis.UniversalClient, logger *zap.Logger, ttl, opTimeout time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRecordTTL
	}
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &RedisCache{client: client, logger: logger, ttl: ttl, opTimeout: opTimeout}
}

// PutOrder writes the order record, both index entries, and their expiries in
// a single atomic pipeline. Indexes are pushed at the head so ranges come
// back most-recent first.
func (c *RedisCache) PutOrder(ctx context.Context, order *Order) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	orderKey := fmt.Sprintf(orderKeyFmt, order.ID.String())
	userKey := fmt.Sprintf(userIndexKeyFmt, order.UserID.String())
	symbolKey := fmt.Sprintf(symbolIndexKeyFmt, order.Symbol)

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, orderKey, orderFields(order))
	pipe.Expire(ctx, orderKey, c.ttl)
	pipe.LPush(ctx, userKey, order.ID.String())
	pipe.Expire(ctx, userKey, c.ttl)
	pipe.LPush(ctx, symbolKey, order.ID.String())
	pipe.Expire(ctx, symbolKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewStoreError("cache write failed", err)
	}
	return nil
}

// UpdateOrder rewrites the record hash and refreshes its expiry; index
// entries already reference the id and are left alone.
func (c *RedisCache) UpdateOrder(ctx context.Context, order *Order) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	orderKey := fmt.Sprintf(orderKeyFmt, order.ID.String())
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, orderKey, orderFields(order))
	pipe.Expire(ctx, orderKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return NewStoreError("cache update failed", err)
	}
	return nil
}

func (c *RedisCache) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	fields, err := c.client.HGetAll(ctx, fmt.Sprintf(orderKeyFmt, id.String())).Result()
	if err != nil {
		return nil, NewStoreError("cache read failed", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	order, err := orderFromFields(fields)
	if err != nil {
		// A corrupt record is treated as a miss; the durable store backs it.
		c.logger.Warn("dropping unparseable cache record",
			zap.String("order_id", id.String()), zap.Error(err))
		return nil, nil
	}
	return order, nil
}

func (c *RedisCache) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, fmt.Sprintf(orderKeyFmt, id.String())).Err(); err != nil {
		return NewStoreError("cache delete failed", err)
	}
	return nil
}

func (c *RedisCache) UserOrderIDs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]uuid.UUID, error) {
	return c.rangeIndex(ctx, fmt.Sprintf(userIndexKeyFmt, userID.String()), limit, offset)
}

func (c *RedisCache) SymbolOrderIDs(ctx context.Context, symbol string, limit, offset int) ([]uuid.UUID, error) {
	return c.rangeIndex(ctx, fmt.Sprintf(symbolIndexKeyFmt, symbol), limit, offset)
}

func (c *RedisCache) rangeIndex(ctx context.Context, key string, limit, offset int) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	raw, err := c.client.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, NewStoreError("cache index read failed", err)
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			c.logger.Warn("dropping malformed index entry", zap.String("key", key), zap.String("entry", s))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Health pings the cache connection.
func (c *RedisCache) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("fast cache unhealthy: %w", err)
	}
	return nil
}

// orderFields flattens an order into string-typed hash fields. Nullable
// prices are stored as empty strings.
func orderFields(o *Order) map[string]interface{} {
	fields := map[string]interface{}{
		"id":            o.ID.String(),
		"user_id":       o.UserID.String(),
		"symbol":        o.Symbol,
		"side":          o.Side,
		"quantity":      o.Quantity.String(),
		"price":         "",
		"order_type":    o.OrderType,
		"time_in_force": o.TimeInForce,
		"status":        o.Status,
		"stop_price":    "",
		"created_at":    o.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":    o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.Price != nil {
		fields["price"] = o.Price.String()
	}
	if o.StopPrice != nil {
		fields["stop_price"] = o.StopPrice.String()
	}
	return fields
}

func orderFromFields(fields map[string]string) (*Order, error) {
	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("bad id: %w", err)
	}
	userID, err := uuid.Parse(fields["user_id"])
	if err != nil {
		return nil, fmt.Errorf("bad user_id: %w", err)
	}
	quantity, err := decimal.NewFromString(fields["quantity"])
	if err != nil {
		return nil, fmt.Errorf("bad quantity: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("bad created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}

	order := &Order{
		ID:          id,
		UserID:      userID,
		Symbol:      fields["symbol"],
		Side:        fields["side"],
		Quantity:    quantity,
		OrderType:   fields["order_type"],
		TimeInForce: fields["time_in_force"],
		Status:      fields["status"],
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if s := fields["price"]; s != "" {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("bad price: %w", err)
		}
		order.Price = &price
	}
	if s := fields["stop_price"]; s != "" {
		sp, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("bad stop_price: %w", err)
		}
		order.StopPrice = &sp
	}
	return order, nil
}
