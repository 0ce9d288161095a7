package orders

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHotCache_CloneIsolation(t *testing.T) {
	h := newHotCache(10)
	price := decimal.NewFromInt(100)
	order := &Order{ID: uuid.New(), Status: OrderStatusPending, Price: &price}
	h.Set(order)

	// Mutating the original does not leak into the cache.
	order.Status = OrderStatusFilled
	*order.Price = decimal.NewFromInt(999)

	got := h.Get(order.ID)
	require.NotNil(t, got)
	assert.Equal(t, OrderStatusPending, got.Status)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(100)))

	// Mutating a returned copy does not leak either.
	got.Status = OrderStatusCancelled
	again := h.Get(order.ID)
	assert.Equal(t, OrderStatusPending, again.Status)
}

func TestHotCache_BoundedEviction(t *testing.T) {
	h := newHotCache(3)
	for i := 0; i < 10; i++ {
		h.Set(&Order{ID: uuid.New()})
	}
	assert.Equal(t, 3, h.Len())
}

func TestHotCache_UpdateExistingDoesNotEvict(t *testing.T) {
	h := newHotCache(2)
	a := &Order{ID: uuid.New(), Status: OrderStatusPending}
	b := &Order{ID: uuid.New(), Status: OrderStatusPending}
	h.Set(a)
	h.Set(b)

	a.Status = OrderStatusFilled
	h.Set(a)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, OrderStatusFilled, h.Get(a.ID).Status)
	assert.NotNil(t, h.Get(b.ID))
}

func TestHotCache_TerminalStatusSticks(t *testing.T) {
	h := newHotCache(10)
	id := uuid.New()
	h.Set(&Order{ID: id, Status: OrderStatusCancelled})

	// A stale pending write (e.g. a racing drain) must not win.
	h.Set(&Order{ID: id, Status: OrderStatusPending})
	assert.Equal(t, OrderStatusCancelled, h.Get(id).Status)

	// Terminal to terminal is allowed to settle.
	h.Set(&Order{ID: id, Status: OrderStatusCancelled})
	assert.Equal(t, OrderStatusCancelled, h.Get(id).Status)
}

func TestHotCache_ConcurrentAccess(t *testing.T) {
	h := newHotCache(100)
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				id := ids[j%len(ids)]
				h.Set(&Order{ID: id, Status: OrderStatusPending})
				h.Get(id)
				if j%50 == 0 {
					h.Delete(id)
				}
			}
		}()
	}
	wg.Wait()
}
