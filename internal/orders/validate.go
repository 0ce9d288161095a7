package orders

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateRequest enforces the structural and semantic invariants on an
// incoming order request. Pure and deterministic; it runs before any store
// mutation or risk gate call.
func ValidateRequest(req *Request) error {
	return validateFields(req.Symbol, req.Side, req.Quantity, req.OrderType, req.TimeInForce, req.Price, req.StopPrice)
}

// validateOrder re-checks a merged order during modify.
func validateOrder(o *Order) error {
	return validateFields(o.Symbol, o.Side, o.Quantity, o.OrderType, o.TimeInForce, o.Price, o.StopPrice)
}

func validateFields(symbol, side string, quantity decimal.Decimal, orderType, timeInForce string, price, stopPrice *decimal.Decimal) error {
	if symbol == "" {
		return NewValidationError("symbol is required")
	}

	switch side {
	case OrderSideBuy, OrderSideSell:
	default:
		return NewValidationError(fmt.Sprintf("side must be %s or %s", OrderSideBuy, OrderSideSell))
	}

	if quantity.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("quantity must be positive")
	}

	switch orderType {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
	default:
		return NewValidationError(fmt.Sprintf("unknown order type %q", orderType))
	}

	// Exactly one price requirement pair holds per order type: LIMIT and
	// STOP_LIMIT need a positive price, STOP and STOP_LIMIT need a positive
	// stop price, and neither field may appear where it is not required.
	needsPrice := orderType == OrderTypeLimit || orderType == OrderTypeStopLimit
	needsStop := orderType == OrderTypeStop || orderType == OrderTypeStopLimit

	if needsPrice {
		if price == nil || price.LessThanOrEqual(decimal.Zero) {
			return NewValidationError(fmt.Sprintf("%s order requires a positive price", orderType))
		}
	} else if price != nil {
		return NewValidationError(fmt.Sprintf("%s order must not carry a price", orderType))
	}

	if needsStop {
		if stopPrice == nil || stopPrice.LessThanOrEqual(decimal.Zero) {
			return NewValidationError(fmt.Sprintf("%s order requires a positive stop price", orderType))
		}
	} else if stopPrice != nil {
		return NewValidationError(fmt.Sprintf("%s order must not carry a stop price", orderType))
	}

	if timeInForce != "" {
		switch timeInForce {
		case TimeInForceDay, TimeInForceGTC, TimeInForceIOC, TimeInForceFOK:
		default:
			return NewValidationError(fmt.Sprintf("unknown time in force %q", timeInForce))
		}
	}

	return nil
}
