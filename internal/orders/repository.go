package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStore implements DurableStore using GORM. It is the transactional
// system of record for orders.
type PostgresStore struct {
	db        *gorm.DB
	logger    *zap.Logger
	opTimeout time.Duration
}

// NewPostgresStore creates a GORM-backed durable store. Zero opTimeout falls
// back to 10s.
func NewPostgresStore(db *gorm.DB, logger *zap.Logger, opTimeout time.Duration) *PostgresStore {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &PostgresStore{db: db, logger: logger, opTimeout: opTimeout}
}

// Migrate creates or updates the orders table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Order{})
}

// CreateOrder inserts a new row. The primary-key constraint makes the
// uniqueness check race-free; a duplicate id maps to a validation error so a
// resubmitted id can never rewrite an existing row. Requires the connection
// to be opened with TranslateError so the driver's duplicate-key error
// surfaces as gorm.ErrDuplicatedKey.
func (s *PostgresStore) CreateOrder(ctx context.Context, order *Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	err := s.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return NewValidationError("order id already exists")
	}
	if err != nil {
		s.logger.Error("durable insert failed",
			zap.String("order_id", order.ID.String()), zap.Error(err))
		return NewStoreError("durable store write failed", err)
	}
	return nil
}

// UpdateOrder rewrites the mutable fields of an existing row. The update is
// guarded on the row still being PENDING: every legal transition in the
// state machine leaves PENDING, so a guarded update can never overwrite a
// terminal status.
func (s *PostgresStore) UpdateOrder(ctx context.Context, order *Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", order.ID, OrderStatusPending).
		Updates(map[string]interface{}{
		"quantity":      order.Quantity,
		"price":         order.Price,
		"stop_price":    order.StopPrice,
		"time_in_force": order.TimeInForce,
		"status":        order.Status,
		"updated_at":    order.UpdatedAt,
	})
	if res.Error != nil {
		s.logger.Error("durable update failed",
			zap.String("order_id", order.ID.String()), zap.Error(res.Error))
		return NewStoreError("durable store update failed", res.Error)
	}
	if res.RowsAffected == 0 {
		cur, err := s.GetOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return NewNotFoundError("order not found in durable store")
		}
		return NewInvalidStateError("order is no longer pending")
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var order Order
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStoreError("durable store read failed", err)
	}
	return &order, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).Model(&Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, NewStoreError("durable store count failed", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Health verifies the underlying connection.
func (s *PostgresStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
