// Package execution provides the gate that resolves immediately-executable
// orders during drain.
package execution

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexatrade/orderflow/internal/orders"
)

// ImmediateFill marks market orders filled without price discovery. A real
// venue connection would replace this behind the same interface.
type ImmediateFill struct {
	logger *zap.Logger
}

// NewImmediateFill creates the immediate-fill execution gate.
func NewImmediateFill(logger *zap.Logger) *ImmediateFill {
	return &ImmediateFill{logger: logger}
}

// Execute fills the order.
func (g *ImmediateFill) Execute(ctx context.Context, order *orders.Order) (orders.ExecutionResult, error) {
	g.logger.Debug("filling market order",
		zap.String("order_id", order.ID.String()),
		zap.String("symbol", order.Symbol),
		zap.String("side", order.Side))
	return orders.ExecutionResult{Filled: true}, nil
}
