package feeds

import "sync"

// Invalidator is a feed that can be told its source changed
type Invalidator interface {
	Invalidate()
}

// Hub routes collection change notifications to the feeds reading that collection.
// Notify has the shape of remotestore.ChangeListener.
type Hub struct {
	mu      sync.RWMutex
	targets map[string][]Invalidator
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{targets: make(map[string][]Invalidator)}
}

// Register makes inv reload whenever collection changes
func (h *Hub) Register(collection string, inv Invalidator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.targets[collection] = append(h.targets[collection], inv)
}

// Notify invalidates every feed registered for collection
func (h *Hub) Notify(collection string) {
	h.mu.RLock()
	targets := h.targets[collection]
	h.mu.RUnlock()

	for _, inv := range targets {
		inv.Invalidate()
	}
}

// NotifyAll invalidates every registered feed
func (h *Hub) NotifyAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, targets := range h.targets {
		for _, inv := range targets {
			inv.Invalidate()
		}
	}
}
