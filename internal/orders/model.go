package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Constants for order sides, types, statuses, and time in force options
const (
	// Order sides
	OrderSideBuy  = "BUY"
	OrderSideSell = "SELL"

	// Order types
	OrderTypeMarket    = "MARKET"
	OrderTypeLimit     = "LIMIT"
	OrderTypeStop      = "STOP"
	OrderTypeStopLimit = "STOP_LIMIT"

	// Order statuses
	OrderStatusPending   = "PENDING"
	OrderStatusFilled    = "FILLED"
	OrderStatusCancelled = "CANCELLED"
	OrderStatusRejected  = "REJECTED"

	// Time in force
	TimeInForceDay = "DAY" // Day order
	TimeInForceGTC = "GTC" // Good Till Cancelled
	TimeInForceIOC = "IOC" // Immediate Or Cancel
	TimeInForceFOK = "FOK" // Fill Or Kill
)

// Order represents a trade order in the system. It is created only by the
// store's accept path and mutated only by the drainer or by explicit
// modify/cancel requests.
type Order struct {
	ID          uuid.UUID        `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID        `json:"user_id" gorm:"type:uuid;index"`
	Symbol      string           `json:"symbol" gorm:"index"`
	Side        string           `json:"side"`
	Quantity    decimal.Decimal  `json:"quantity" gorm:"type:numeric"`
	Price       *decimal.Decimal `json:"price,omitempty" gorm:"type:numeric"`
	OrderType   string           `json:"order_type"`
	TimeInForce string           `json:"time_in_force"`
	Status      string           `json:"status" gorm:"index"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty" gorm:"type:numeric"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName maps the model onto the orders table.
func (Order) TableName() string { return "orders" }

// Terminal reports whether the order has reached a terminal status. No
// transition is defined out of a terminal status.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Clone returns a deep copy of the order. Pointers held by the copy are
// independent of the receiver's.
func (o *Order) Clone() *Order {
	c := *o
	if o.Price != nil {
		p := *o.Price
		c.Price = &p
	}
	if o.StopPrice != nil {
		sp := *o.StopPrice
		c.StopPrice = &sp
	}
	return &c
}

// Request carries the client-supplied fields of a new order. The store
// assigns the id when absent; a client-supplied id is never trusted as the
// sole uniqueness guarantee.
type Request struct {
	ID          uuid.UUID        `json:"id,omitempty"`
	Symbol      string           `json:"symbol"`
	Side        string           `json:"side"`
	Quantity    decimal.Decimal  `json:"quantity"`
	OrderType   string           `json:"order_type"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce string           `json:"time_in_force,omitempty"`
}

// Patch carries the mutable fields of a modify request. Nil fields are left
// unchanged.
type Patch struct {
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	StopPrice   *decimal.Decimal `json:"stop_price,omitempty"`
	TimeInForce *string          `json:"time_in_force,omitempty"`
}

// apply merges the patch into the order in place.
func (p Patch) apply(o *Order) {
	if p.Quantity != nil {
		o.Quantity = *p.Quantity
	}
	if p.Price != nil {
		price := *p.Price
		o.Price = &price
	}
	if p.StopPrice != nil {
		sp := *p.StopPrice
		o.StopPrice = &sp
	}
	if p.TimeInForce != nil {
		o.TimeInForce = *p.TimeInForce
	}
}

// Event types emitted on order state transitions.
const (
	EventOrderAccepted  = "order.accepted"
	EventOrderModified  = "order.modified"
	EventOrderCancelled = "order.cancelled"
	EventOrderFilled    = "order.filled"
	EventOrderRejected  = "order.rejected"
)

// Event is the outbound notification emitted by the store on every state
// transition, consumed by the notification layer.
type Event struct {
	Type  string    `json:"type"`
	Order *Order    `json:"order"`
	At    time.Time `json:"at"`
}

// Stats aggregates operational counters for dashboards.
type Stats struct {
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	QueueDepth     int              `json:"queue_depth"`
	HotCacheSize   int              `json:"hot_cache_size"`
}
