package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
	"github.com/kendall-kelly/nafs-essence-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeeds struct {
	auth     *feeds.FakeFeed[models.AuthState]
	products *feeds.FakeFeed[[]models.Product]
	orders   *feeds.FakeFeed[[]models.Order]
	settings *feeds.FakeFeed[[]models.SiteSettings]
}

func newFakeFeeds() fakeFeeds {
	return fakeFeeds{
		auth:     feeds.NewFakeFeed[models.AuthState](),
		products: feeds.NewFakeFeed[[]models.Product](),
		orders:   feeds.NewFakeFeed[[]models.Order](),
		settings: feeds.NewFakeFeed[[]models.SiteSettings](),
	}
}

func (f fakeFeeds) manager() *feeds.Manager {
	return feeds.NewManager(feeds.Set{Auth: f.auth, Products: f.products, Orders: f.orders, Settings: f.settings})
}

// fakeSettingsWriter records settings writes
type fakeSettingsWriter struct {
	mu      sync.Mutex
	docs    []remotestore.SettingsDocument
	writes  []remotestore.SettingsDocument
	listErr error
}

func (w *fakeSettingsWriter) ListSettingsDocuments(context.Context) ([]remotestore.SettingsDocument, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs, w.listErr
}

func (w *fakeSettingsWriter) UpdateSettings(_ context.Context, id string, s models.SiteSettings) (remotestore.Ack, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, remotestore.SettingsDocument{ID: id, Settings: s})
	return remotestore.Ack{Collection: models.CollectionSettings, ID: id}, nil
}

func startedStore(t *testing.T) (*Store, fakeFeeds, *fakeSettingsWriter) {
	t.Helper()
	fakes := newFakeFeeds()
	writer := &fakeSettingsWriter{}
	store := New(fakes.manager(), writer)
	store.Start()
	t.Cleanup(store.Close)
	return store, fakes, writer
}

func mustView(t *testing.T, s *Store) View {
	t.Helper()
	v, err := s.View()
	require.NoError(t, err)
	return v
}

func TestViewOutsideLifecycle(t *testing.T) {
	fakes := newFakeFeeds()
	store := New(fakes.manager(), &fakeSettingsWriter{})

	_, err := store.View()
	assert.ErrorIs(t, err, ErrContextUnavailable, "Reading before Start fails")

	_, err = store.Subscribe(func(View) {})
	assert.ErrorIs(t, err, ErrContextUnavailable)

	_, err = store.PreviewSettings("admin", func(*models.SiteSettings) {})
	assert.ErrorIs(t, err, ErrContextUnavailable)

	store.Start()
	_, err = store.View()
	require.NoError(t, err)

	store.Close()
	_, err = store.View()
	assert.ErrorIs(t, err, ErrContextUnavailable, "Reading after Close fails")
}

func TestInitialView(t *testing.T) {
	store, _, _ := startedStore(t)
	v := mustView(t, store)

	assert.Equal(t, models.DefaultSiteSettings(), v.Settings)
	assert.Equal(t, SettingsDefault, v.SettingsSource)
	assert.Empty(t, v.Products)
	assert.Empty(t, v.Orders)
	assert.Equal(t, models.AuthStatusUnknown, v.Auth.Status)
	for _, name := range feeds.Names {
		assert.False(t, v.Feeds[name].Live, "feed %s", name)
	}
}

func TestStartOpensFeedsOnce(t *testing.T) {
	store, fakes, _ := startedStore(t)
	store.Start()

	assert.Equal(t, 1, fakes.products.Subscribers())
	assert.Equal(t, 1, fakes.auth.Subscribers())

	store.Close()
	assert.Zero(t, fakes.products.Subscribers())
	assert.Zero(t, fakes.settings.Subscribers())
}

func TestEmptySettingsSnapshotKeepsValue(t *testing.T) {
	store, fakes, _ := startedStore(t)

	fakes.settings.Emit([]models.SiteSettings{})
	v := mustView(t, store)
	assert.Equal(t, models.DefaultSiteSettings(), v.Settings, "An empty collection keeps the defaults")
	assert.Equal(t, SettingsDefault, v.SettingsSource)
	assert.True(t, v.Feeds[feeds.NameSettings].Live)

	live := models.DefaultSiteSettings()
	live.WebsiteName = "Nafs"
	fakes.settings.Emit([]models.SiteSettings{live})
	fakes.settings.Emit(nil)

	v = mustView(t, store)
	assert.Equal(t, "Nafs", v.Settings.WebsiteName, "An empty snapshot keeps the live value")
	assert.Equal(t, SettingsLive, v.SettingsSource)
}

func TestSettingsSnapshotUsesFirstDocument(t *testing.T) {
	store, fakes, _ := startedStore(t)

	first := models.DefaultSiteSettings()
	first.HeroTitle = "First"
	second := models.DefaultSiteSettings()
	second.HeroTitle = "Second"
	fakes.settings.Emit([]models.SiteSettings{first, second})

	assert.Equal(t, "First", mustView(t, store).Settings.HeroTitle)
}

func TestPreviewIsLocalUntilPublished(t *testing.T) {
	store, fakes, writer := startedStore(t)
	writer.docs = []remotestore.SettingsDocument{{ID: "site", Settings: models.DefaultSiteSettings()}}
	fakes.settings.Emit([]models.SiteSettings{models.DefaultSiteSettings()})

	previewed, err := store.PreviewSettings("admin", func(s *models.SiteSettings) {
		s.PrimaryColor = "#aa0000"
	})
	require.NoError(t, err)
	assert.Equal(t, "#aa0000", previewed.PrimaryColor)

	v := mustView(t, store)
	settings, source := v.SettingsFor("admin")
	assert.Equal(t, "#aa0000", settings.PrimaryColor, "The preview is visible to its owner immediately")
	assert.Equal(t, SettingsPreview, source)
	assert.Equal(t, models.DefaultSiteSettings(), v.Settings, "Everyone else keeps the published settings")
	assert.Equal(t, SettingsLive, v.SettingsSource)
	assert.Empty(t, writer.writes, "Nothing is persisted by a preview")

	ack, err := store.PublishSettings(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "site", ack.ID)
	require.Len(t, writer.writes, 1)
	assert.Equal(t, "site", writer.writes[0].ID)
	assert.Equal(t, "#aa0000", writer.writes[0].Settings.PrimaryColor)

	v = mustView(t, store)
	_, source = v.SettingsFor("admin")
	assert.Equal(t, SettingsLive, source, "Publishing drops the preview")
	assert.Equal(t, models.DefaultSiteSettings(), v.Settings, "Publishing waits for the feed")
}

func TestPreviewsAreKeptPerAdmin(t *testing.T) {
	store, _, _ := startedStore(t)

	_, err := store.PreviewSettings("amina", func(s *models.SiteSettings) { s.HeroTitle = "Amina's draft" })
	require.NoError(t, err)
	previewed, err := store.PreviewSettings("amina", func(s *models.SiteSettings) { s.FooterText = "Dhaka" })
	require.NoError(t, err)
	assert.Equal(t, "Amina's draft", previewed.HeroTitle, "Edits build on the owner's preview")

	v := mustView(t, store)
	other, source := v.SettingsFor("karim")
	assert.Equal(t, models.DefaultSiteSettings(), other)
	assert.Equal(t, SettingsDefault, source)

	_, err = store.PreviewSettings("", func(*models.SiteSettings) {})
	assert.ErrorIs(t, err, ErrNoOwner)
	_, err = store.PublishSettings(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestPreviewNeverReachesSubscribers(t *testing.T) {
	store, _, _ := startedStore(t)

	var last View
	unsubscribe, err := store.Subscribe(func(v View) { last = v })
	require.NoError(t, err)
	defer unsubscribe()

	_, err = store.PreviewSettings("admin", func(s *models.SiteSettings) { s.HeroTitle = "Draft" })
	require.NoError(t, err)

	assert.Equal(t, models.DefaultSiteSettings().HeroTitle, last.Settings.HeroTitle)

	payload, err := json.Marshal(last)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "Draft")
}

func TestSnapshotDiscardsPreview(t *testing.T) {
	store, fakes, _ := startedStore(t)

	_, err := store.PreviewSettings("admin", func(s *models.SiteSettings) { s.HeroTitle = "Draft" })
	require.NoError(t, err)

	remote := models.DefaultSiteSettings()
	remote.HeroTitle = "Remote"
	fakes.settings.Emit([]models.SiteSettings{remote})

	settings, source := mustView(t, store).SettingsFor("admin")
	assert.Equal(t, "Remote", settings.HeroTitle)
	assert.Equal(t, SettingsLive, source)
}

func TestSignOutDiscardsPreview(t *testing.T) {
	store, fakes, _ := startedStore(t)
	fakes.auth.Emit(models.SignedIn("admin@nafsessence.com"))

	_, err := store.PreviewSettings("admin", func(s *models.SiteSettings) { s.HeroTitle = "Draft" })
	require.NoError(t, err)

	fakes.auth.Emit(models.SignedOut())

	_, source := mustView(t, store).SettingsFor("admin")
	assert.Equal(t, SettingsDefault, source)
}

func TestPublishWithoutSettingsDocument(t *testing.T) {
	store, _, writer := startedStore(t)

	_, err := store.PublishSettings(context.Background(), "admin")
	assert.ErrorIs(t, err, ErrSettingsNotFound)
	assert.Empty(t, writer.writes)

	writer.listErr = errors.New("remote unavailable")
	_, err = store.PublishSettings(context.Background(), "admin")
	assert.EqualError(t, err, "remote unavailable")
}

func TestInterleavedFeeds(t *testing.T) {
	store, fakes, _ := startedStore(t)

	order := models.Order{ID: "o1", CustomerName: "Amina", Total: 1000}
	fakes.products.Emit([]models.Product{{ID: "a1"}})
	fakes.orders.Emit([]models.Order{order})
	fakes.products.Emit([]models.Product{{ID: "a2"}})
	fakes.products.Emit([]models.Product{{ID: "a3"}, {ID: "a4"}})

	v := mustView(t, store)
	assert.Equal(t, []models.Product{{ID: "a3"}, {ID: "a4"}}, v.Products, "Products hold the last snapshot")
	assert.Equal(t, []models.Order{order}, v.Orders, "Orders are independent of products")
}

func TestAuthSlice(t *testing.T) {
	store, fakes, _ := startedStore(t)

	fakes.auth.Emit(models.SignedIn("admin@nafsessence.com"))
	v := mustView(t, store)
	assert.True(t, v.Auth.IsAuthenticated())

	fakes.auth.Emit(models.SignedOut())
	assert.Equal(t, models.AuthStatusUnauthenticated, mustView(t, store).Auth.Status)
}

func TestCloseStopsMutations(t *testing.T) {
	store, fakes, _ := startedStore(t)

	fakes.products.Emit([]models.Product{{ID: "before"}})
	store.Close()
	fakes.products.Emit([]models.Product{{ID: "after"}})
	fakes.settings.Emit([]models.SiteSettings{{WebsiteName: "after"}})

	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Equal(t, []models.Product{{ID: "before"}}, store.state.products)
	assert.Equal(t, models.DefaultSiteSettings(), store.state.settings)
}

func TestFeedFailureMarksSliceDegraded(t *testing.T) {
	store, fakes, _ := startedStore(t)

	fakes.orders.Emit([]models.Order{{ID: "o1"}})
	fakes.orders.EmitError(errors.New("permission denied"))

	v := mustView(t, store)
	assert.True(t, v.Degraded())
	assert.True(t, v.Feeds[feeds.NameOrders].Degraded)
	assert.Equal(t, "permission denied", v.Feeds[feeds.NameOrders].LastError)
	assert.Len(t, v.Orders, 1, "A failing feed keeps its last value")

	fakes.orders.Emit([]models.Order{{ID: "o1"}, {ID: "o2"}})
	v = mustView(t, store)
	assert.False(t, v.Degraded(), "The next snapshot clears the failure")
	assert.Len(t, v.Orders, 2)
}

func TestViewIsACopy(t *testing.T) {
	store, fakes, _ := startedStore(t)
	fakes.products.Emit([]models.Product{{ID: "p1", Name: "Midnight Oud"}})

	v := mustView(t, store)
	v.Products[0].Name = "changed"
	v.Feeds[feeds.NameProducts] = FeedStatus{}

	again := mustView(t, store)
	assert.Equal(t, "Midnight Oud", again.Products[0].Name)
	assert.True(t, again.Feeds[feeds.NameProducts].Live)
}

func TestSubscribe(t *testing.T) {
	store, fakes, _ := startedStore(t)

	var mu sync.Mutex
	var versions []uint64
	unsubscribe, err := store.Subscribe(func(v View) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, v.Version)
	})
	require.NoError(t, err)

	fakes.products.Emit([]models.Product{{ID: "p1"}})
	fakes.orders.Emit(nil)
	unsubscribe()
	fakes.products.Emit(nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, versions, 3, "The current view is delivered first")
	assert.Less(t, versions[0], versions[1], "Views arrive in change order")
	assert.Less(t, versions[1], versions[2])
}

func TestPublishRoundTripThroughFeeds(t *testing.T) {
	db := testutil.NewTestDB(t)
	remote := remotestore.New(db, remotestore.WithRules(remotestore.AllowAll()))
	client := remotestore.NewClient(remote)

	_, err := client.SeedSettings(context.Background(), models.DefaultSiteSettings())
	require.NoError(t, err)

	hub := feeds.NewHub()
	remote.OnChange(hub.Notify)
	collections := feeds.NewCollections(client, hub, 0)
	defer collections.Close()

	store := New(feeds.NewManager(collections.Set(feeds.NewFakeFeed[models.AuthState]())), client)
	store.Start()
	defer store.Close()

	require.Eventually(t, func() bool {
		v, err := store.View()
		return err == nil && v.SettingsSource == SettingsLive
	}, 2*time.Second, 5*time.Millisecond)

	_, err = store.PreviewSettings("admin", func(s *models.SiteSettings) { s.HeroTitle = "Oud Season" })
	require.NoError(t, err)
	_, err = store.PublishSettings(context.Background(), "admin")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := store.View()
		return err == nil && v.SettingsSource == SettingsLive && v.Settings.HeroTitle == "Oud Season"
	}, 2*time.Second, 5*time.Millisecond, "The published settings come back through the feed")
}
