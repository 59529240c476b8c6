// Package appstate holds the process-wide reactive state of the storefront.
//
// A Store merges the auth, products, orders and settings feeds into one composite
// View. Every snapshot overwrites its slice; views read whatever was last received.
// Writes never go through the Store except settings previews, which are held per
// admin and stay out of the published settings until published.
package appstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/logging"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
)

var (
	// ErrContextUnavailable is returned when the store is read before Start or after Close
	ErrContextUnavailable = errors.New("appstate: state is not available outside a started store")
	// ErrSettingsNotFound is returned when publishing with no settings document to write to
	ErrSettingsNotFound = errors.New("appstate: no settings document to publish to")
	// ErrNoOwner is returned when a preview is edited or published without an admin
	ErrNoOwner = errors.New("appstate: settings preview needs an owner")
)

// SettingsWriter persists site settings
type SettingsWriter interface {
	ListSettingsDocuments(ctx context.Context) ([]remotestore.SettingsDocument, error)
	UpdateSettings(ctx context.Context, id string, s models.SiteSettings) (remotestore.Ack, error)
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for feed failures
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is the process-wide reactive state. It implements feeds.Sink.
type Store struct {
	manager  *feeds.Manager
	settings SettingsWriter
	logger   *slog.Logger

	pubMu   sync.Mutex // orders change notifications
	mu      sync.RWMutex
	started bool
	state   state

	changes feeds.Broadcaster[View]
}

// New creates a store fed by manager. settings is used by PublishSettings.
func New(manager *feeds.Manager, settings SettingsWriter, opts ...Option) *Store {
	s := &Store{
		manager:  manager,
		settings: settings,
		logger:   logging.Discard(),
		state:    newState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the four feed subscriptions. Calling Start on a started store does nothing.
func (s *Store) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	_ = s.update(func(*state) {})
	s.manager.Open(s)
	s.logger.Info("application state started")
}

// Close tears down the feed subscriptions. No slice changes once Close returns.
func (s *Store) Close() {
	s.manager.Close()

	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()

	if wasStarted {
		s.logger.Info("application state closed")
	}
}

// View returns the current composite state
func (s *Store) View() (View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return View{}, ErrContextUnavailable
	}
	return s.state.view(), nil
}

// Subscribe calls onView with the current view and again after every change.
// onView runs on feed goroutines and must not block.
func (s *Store) Subscribe(onView func(View)) (feeds.Unsubscribe, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrContextUnavailable
	}
	return s.changes.Subscribe(onView), nil
}

// PreviewSettings applies edit to owner's preview without persisting anything.
// The first edit starts from the published settings. Other consumers keep seeing
// the published settings; the preview lasts until owner publishes it, the next
// settings snapshot arrives or the admin signs out.
func (s *Store) PreviewSettings(owner string, edit func(*models.SiteSettings)) (models.SiteSettings, error) {
	if owner == "" {
		return models.SiteSettings{}, ErrNoOwner
	}

	var previewed models.SiteSettings
	err := s.update(func(st *state) {
		settings, ok := st.previews[owner]
		if !ok {
			settings = st.settings
		}
		edit(&settings)
		st.previews[owner] = settings
		previewed = settings
	})
	return previewed, err
}

// PublishSettings writes owner's settings, preview included, onto the first
// settings document and drops the preview. The published settings change only
// when the write comes back through the settings feed.
func (s *Store) PublishSettings(ctx context.Context, owner string) (remotestore.Ack, error) {
	if owner == "" {
		return remotestore.Ack{}, ErrNoOwner
	}

	view, err := s.View()
	if err != nil {
		return remotestore.Ack{}, err
	}
	settings, _ := view.SettingsFor(owner)

	docs, err := s.settings.ListSettingsDocuments(ctx)
	if err != nil {
		return remotestore.Ack{}, err
	}
	if len(docs) == 0 {
		return remotestore.Ack{}, ErrSettingsNotFound
	}

	ack, err := s.settings.UpdateSettings(ctx, docs[0].ID, settings)
	if err != nil {
		return remotestore.Ack{}, err
	}

	_ = s.update(func(st *state) { delete(st.previews, owner) })
	s.logger.Info("site settings published", "document", docs[0].ID, "admin", owner)
	return ack, nil
}

// SetAuth implements feeds.Sink. Signing out discards every preview.
func (s *Store) SetAuth(auth models.AuthState) {
	s.apply(feeds.NameAuth, func(st *state) {
		st.auth = auth
		if !auth.IsAuthenticated() {
			clear(st.previews)
		}
	})
}

// SetProducts implements feeds.Sink
func (s *Store) SetProducts(products []models.Product) {
	s.apply(feeds.NameProducts, func(st *state) { st.products = products })
}

// SetOrders implements feeds.Sink
func (s *Store) SetOrders(orders []models.Order) {
	s.apply(feeds.NameOrders, func(st *state) { st.orders = orders })
}

// SetSettings implements feeds.Sink. An empty snapshot keeps the held settings;
// otherwise the first document replaces them, discarding every preview.
func (s *Store) SetSettings(docs []models.SiteSettings) {
	s.apply(feeds.NameSettings, func(st *state) {
		if len(docs) == 0 {
			return
		}
		st.settings = docs[0]
		st.settingsSource = SettingsLive
		clear(st.previews)
	})
}

// FeedFailed implements feeds.Sink. The slice keeps its value and is marked degraded
// until the feed delivers again.
func (s *Store) FeedFailed(name feeds.Name, err error) {
	s.logger.Warn("feed failed", "feed", name, "error", err)
	_ = s.update(func(st *state) {
		status := st.feeds[name]
		status.Degraded = true
		status.LastError = err.Error()
		st.feeds[name] = status
	})
}

// apply records a snapshot of one feed
func (s *Store) apply(name feeds.Name, fn func(*state)) {
	_ = s.update(func(st *state) {
		fn(st)
		st.feeds[name] = FeedStatus{Live: true}
	})
}

func (s *Store) update(fn func(*state)) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrContextUnavailable
	}
	fn(&s.state)
	s.state.version++
	view := s.state.view()
	s.mu.Unlock()

	s.changes.Publish(view)
	return nil
}
