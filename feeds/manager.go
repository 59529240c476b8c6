package feeds

import (
	"sync"

	"github.com/kendall-kelly/nafs-essence-api/models"
)

// Name identifies one of the four feeds
type Name string

const (
	NameAuth     Name = "auth"
	NameProducts Name = "products"
	NameOrders   Name = "orders"
	NameSettings Name = "settings"
)

// Names lists the feeds in the order Manager opens them
var Names = []Name{NameAuth, NameProducts, NameOrders, NameSettings}

// Set is the four feeds the application state is built from
type Set struct {
	Auth     Subscribable[models.AuthState]
	Products Subscribable[[]models.Product]
	Orders   Subscribable[[]models.Order] // newest first
	Settings Subscribable[[]models.SiteSettings]
}

// Sink receives the snapshots of all four feeds
type Sink interface {
	SetAuth(models.AuthState)
	SetProducts([]models.Product)
	SetOrders([]models.Order)
	SetSettings([]models.SiteSettings)
	// FeedFailed reports a failure of an established feed
	FeedFailed(name Name, err error)
}

// Manager owns the four subscriptions of one Sink.
// They are opened together, torn down together, and never duplicated.
type Manager struct {
	feeds Set

	mu     sync.Mutex
	unsubs []Unsubscribe
}

// NewManager creates a manager over feeds
func NewManager(feeds Set) *Manager {
	return &Manager{feeds: feeds}
}

// Open subscribes sink to all four feeds. It reports false, and does nothing,
// when the subscriptions are already open.
func (m *Manager) Open(sink Sink) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubs != nil {
		return false
	}

	onError := func(name Name) SubscribeOption {
		return WithErrorHandler(func(err error) { sink.FeedFailed(name, err) })
	}

	m.unsubs = []Unsubscribe{
		m.feeds.Auth.Subscribe(sink.SetAuth, onError(NameAuth)),
		m.feeds.Products.Subscribe(sink.SetProducts, onError(NameProducts)),
		m.feeds.Orders.Subscribe(sink.SetOrders, onError(NameOrders)),
		m.feeds.Settings.Subscribe(sink.SetSettings, onError(NameSettings)),
	}
	return true
}

// Close tears down all four subscriptions. A later Open subscribes again.
func (m *Manager) Close() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// IsOpen reports whether the subscriptions are open
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubs != nil
}
