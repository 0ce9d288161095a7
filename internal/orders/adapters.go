package orders

import (
	"context"

	"github.com/google/uuid"
)

// CacheStore is the fast-cache adapter contract: hash-like per-order records,
// list-like per-user and per-symbol id indexes, and TTL eviction. A miss is
// reported as (nil, nil), not an error.
type CacheStore interface {
	// PutOrder writes the order record plus both index entries and their
	// expiries in one atomic batch.
	PutOrder(ctx context.Context, order *Order) error
	// UpdateOrder rewrites the order record and refreshes its expiry. Index
	// entries are left untouched.
	UpdateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	// DeleteOrder removes the order record (best-effort cache invalidation).
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	UserOrderIDs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]uuid.UUID, error)
	SymbolOrderIDs(ctx context.Context, symbol string, limit, offset int) ([]uuid.UUID, error)
}

// DurableStore is the system-of-record adapter contract. Every call is
// transactional. A miss is reported as (nil, nil), not an error.
type DurableStore interface {
	// CreateOrder inserts a new row. An id collision is a validation-kind
	// error, never an update, so an existing row can never be rewritten
	// through the accept path.
	CreateOrder(ctx context.Context, order *Order) error
	// UpdateOrder rewrites the mutable fields of an existing row, guarded on
	// the row still being PENDING so a stale writer cannot leave a terminal
	// status. A guard miss surfaces as an invalid-state or not-found error.
	UpdateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// RiskDecision is the risk gate verdict for one order.
type RiskDecision struct {
	Approved bool
	Reason   string
}

// RiskGate is consulted before the first persistence of accept and before
// the re-persistence of modify. A rejection prevents any state mutation.
type RiskGate interface {
	Check(ctx context.Context, order *Order, userID uuid.UUID) (RiskDecision, error)
}

// ExecutionResult is the execution gate outcome for one order.
type ExecutionResult struct {
	Filled bool
}

// ExecutionGate resolves immediately-executable orders. It is called only
// for MARKET orders during drain.
type ExecutionGate interface {
	Execute(ctx context.Context, order *Order) (ExecutionResult, error)
}

// EventPublisher receives an event for every order state transition. Publish
// failures must never block or fail the order path.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
