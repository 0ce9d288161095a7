// Package risk provides the pre-trade risk gate consulted before any order
// mutation commits.
package risk

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexatrade/orderflow/internal/orders"
)

// Limits are the per-order ceilings enforced by the gate.
type Limits struct {
	// MaxQuantity caps a single order's quantity. Zero disables the check.
	MaxQuantity decimal.Decimal
	// MaxNotional caps price*quantity for priced orders. Zero disables the
	// check; market and stop orders carry no limit price and are exempt.
	MaxNotional decimal.Decimal
	// AllowedSymbols restricts tradable symbols. Empty allows all.
	AllowedSymbols []string
}

// Service is a threshold-based risk gate. Richer scoring lives outside this
// subsystem; orders only see the approve/reject verdict.
type Service struct {
	limits  Limits
	symbols map[string]struct{}
	logger  *zap.Logger
}

// NewService creates a risk gate with the given limits.
func NewService(limits Limits, logger *zap.Logger) *Service {
	var symbols map[string]struct{}
	if len(limits.AllowedSymbols) > 0 {
		symbols = make(map[string]struct{}, len(limits.AllowedSymbols))
		for _, s := range limits.AllowedSymbols {
			symbols[s] = struct{}{}
		}
	}
	return &Service{limits: limits, symbols: symbols, logger: logger}
}

// Check applies the limits to one order. It never mutates the order.
func (s *Service) Check(ctx context.Context, order *orders.Order, userID uuid.UUID) (orders.RiskDecision, error) {
	if s.symbols != nil {
		if _, ok := s.symbols[order.Symbol]; !ok {
			return s.reject(order, userID, fmt.Sprintf("symbol %s is not tradable", order.Symbol)), nil
		}
	}

	if s.limits.MaxQuantity.IsPositive() && order.Quantity.GreaterThan(s.limits.MaxQuantity) {
		return s.reject(order, userID, fmt.Sprintf("quantity %s exceeds limit %s",
			order.Quantity, s.limits.MaxQuantity)), nil
	}

	if s.limits.MaxNotional.IsPositive() && order.Price != nil {
		notional := order.Price.Mul(order.Quantity)
		if notional.GreaterThan(s.limits.MaxNotional) {
			return s.reject(order, userID, fmt.Sprintf("notional %s exceeds limit %s",
				notional, s.limits.MaxNotional)), nil
		}
	}

	return orders.RiskDecision{Approved: true}, nil
}

func (s *Service) reject(order *orders.Order, userID uuid.UUID, reason string) orders.RiskDecision {
	s.logger.Info("risk gate rejected order",
		zap.String("user_id", userID.String()),
		zap.String("symbol", order.Symbol),
		zap.String("reason", reason))
	return orders.RiskDecision{Approved: false, Reason: reason}
}
