package risk

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nexatrade/orderflow/internal/orders"
)

func limitOrder(symbol string, qty, price int64) *orders.Order {
	p := decimal.NewFromInt(price)
	return &orders.Order{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Symbol:    symbol,
		Side:      orders.OrderSideBuy,
		Quantity:  decimal.NewFromInt(qty),
		Price:     &p,
		OrderType: orders.OrderTypeLimit,
	}
}

func TestCheck_ApprovesWithinLimits(t *testing.T) {
	svc := NewService(Limits{
		MaxQuantity: decimal.NewFromInt(100),
		MaxNotional: decimal.NewFromInt(100000),
	}, zaptest.NewLogger(t))

	order := limitOrder("AAPL", 10, 150)
	decision, err := svc.Check(context.Background(), order, order.UserID)
	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Empty(t, decision.Reason)
}

func TestCheck_RejectsExcessQuantity(t *testing.T) {
	svc := NewService(Limits{MaxQuantity: decimal.NewFromInt(100)}, zaptest.NewLogger(t))

	order := limitOrder("AAPL", 500, 150)
	decision, err := svc.Check(context.Background(), order, order.UserID)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "quantity")
}

func TestCheck_RejectsExcessNotional(t *testing.T) {
	svc := NewService(Limits{MaxNotional: decimal.NewFromInt(1000)}, zaptest.NewLogger(t))

	order := limitOrder("AAPL", 10, 150)
	decision, err := svc.Check(context.Background(), order, order.UserID)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "notional")
}

func TestCheck_MarketOrderExemptFromNotional(t *testing.T) {
	svc := NewService(Limits{MaxNotional: decimal.NewFromInt(1)}, zaptest.NewLogger(t))

	order := &orders.Order{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Symbol:    "AAPL",
		Side:      orders.OrderSideBuy,
		Quantity:  decimal.NewFromInt(10),
		OrderType: orders.OrderTypeMarket,
	}
	decision, err := svc.Check(context.Background(), order, order.UserID)
	require.NoError(t, err)
	assert.True(t, decision.Approved)
}

func TestCheck_SymbolAllowList(t *testing.T) {
	svc := NewService(Limits{AllowedSymbols: []string{"AAPL", "MSFT"}}, zaptest.NewLogger(t))

	ok := limitOrder("MSFT", 1, 10)
	decision, err := svc.Check(context.Background(), ok, ok.UserID)
	require.NoError(t, err)
	assert.True(t, decision.Approved)

	blocked := limitOrder("GME", 1, 10)
	decision, err = svc.Check(context.Background(), blocked, blocked.UserID)
	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Contains(t, decision.Reason, "GME")
}
