package orders

import (
	"sync"

	"github.com/google/uuid"
)

// hotCache is the in-process order cache consulted before the fast cache.
// It is mutated from every concurrent request path, so all access goes
// through the RWMutex. Entries are stored and returned as clones to keep
// callers from mutating shared state.
type hotCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Order
	cap     int
}

func newHotCache(capacity int) *hotCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &hotCache{
		entries: make(map[uuid.UUID]*Order, capacity),
		cap:     capacity,
	}
}

func (h *hotCache) Get(id uuid.UUID) *Order {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if o, ok := h.entries[id]; ok {
		return o.Clone()
	}
	return nil
}

func (h *hotCache) Set(order *Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// A terminal entry never goes back to PENDING; a stale drain write racing
	// a cancel must not resurrect the order here.
	if cur, ok := h.entries[order.ID]; ok && cur.Terminal() && !order.Terminal() {
		return
	}
	if _, ok := h.entries[order.ID]; !ok && len(h.entries) >= h.cap {
		// Evict an arbitrary entry at capacity; the fast cache backs every
		// miss, so eviction order only affects hit rate.
		for id := range h.entries {
			delete(h.entries, id)
			break
		}
	}
	h.entries[order.ID] = order.Clone()
}

func (h *hotCache) Delete(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, id)
}

func (h *hotCache) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
