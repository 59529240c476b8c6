package appstate

import (
	"github.com/kendall-kelly/nafs-essence-api/feeds"
	"github.com/kendall-kelly/nafs-essence-api/models"
)

// SettingsSource tells where the held settings came from
type SettingsSource string

const (
	SettingsDefault SettingsSource = "default" // no settings document received yet
	SettingsLive    SettingsSource = "live"
	SettingsPreview SettingsSource = "preview" // an admin's local edit, not yet published
)

// FeedStatus is the health of one slice
type FeedStatus struct {
	Live      bool   `json:"live"` // at least one snapshot received
	Degraded  bool   `json:"degraded"`
	LastError string `json:"lastError,omitempty"`
}

// View is a read-only copy of the composite state. Settings always holds the
// published settings; previews are only reachable through SettingsFor.
type View struct {
	Version        uint64                    `json:"version"`
	Settings       models.SiteSettings       `json:"settings"`
	SettingsSource SettingsSource            `json:"settingsSource"`
	Products       []models.Product          `json:"products"`
	Orders         []models.Order            `json:"orders"` // newest first
	Auth           models.AuthState          `json:"auth"`
	Feeds          map[feeds.Name]FeedStatus `json:"feeds"`

	previews map[string]models.SiteSettings
}

type state struct {
	version        uint64
	settings       models.SiteSettings
	settingsSource SettingsSource
	products       []models.Product
	orders         []models.Order
	auth           models.AuthState
	feeds          map[feeds.Name]FeedStatus
	previews       map[string]models.SiteSettings // by admin
}

func newState() state {
	st := state{
		settings:       models.DefaultSiteSettings(),
		settingsSource: SettingsDefault,
		products:       []models.Product{},
		orders:         []models.Order{},
		auth:           models.UnknownAuthState(),
		feeds:          make(map[feeds.Name]FeedStatus, len(feeds.Names)),
		previews:       map[string]models.SiteSettings{},
	}
	for _, name := range feeds.Names {
		st.feeds[name] = FeedStatus{}
	}
	return st
}

// view copies the state so callers cannot alter it
func (st *state) view() View {
	v := View{
		Version:        st.version,
		Settings:       st.settings,
		SettingsSource: st.settingsSource,
		Products:       make([]models.Product, len(st.products)),
		Orders:         make([]models.Order, len(st.orders)),
		Auth:           st.auth,
		Feeds:          make(map[feeds.Name]FeedStatus, len(st.feeds)),
		previews:       make(map[string]models.SiteSettings, len(st.previews)),
	}
	copy(v.Products, st.products)
	copy(v.Orders, st.orders)
	for name, status := range st.feeds {
		v.Feeds[name] = status
	}
	for owner, settings := range st.previews {
		v.previews[owner] = settings
	}
	return v
}

// SettingsFor returns the settings as owner sees them: their pending preview if
// they have one, the published settings otherwise
func (v View) SettingsFor(owner string) (models.SiteSettings, SettingsSource) {
	if preview, ok := v.previews[owner]; ok {
		return preview, SettingsPreview
	}
	return v.Settings, v.SettingsSource
}

// Degraded reports whether any feed is currently failing
func (v View) Degraded() bool {
	for _, status := range v.Feeds {
		if status.Degraded {
			return true
		}
	}
	return false
}
