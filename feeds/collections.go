package feeds

import (
	"time"

	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/remotestore"
)

// Collections are the three document feeds read through the remote store client
type Collections struct {
	Products *CollectionFeed[[]models.Product]
	Orders   *CollectionFeed[[]models.Order]
	Settings *CollectionFeed[[]models.SiteSettings]
}

// NewCollections builds the document feeds. With a zero pollInterval they are push
// feeds driven by hub; otherwise they poll and are still invalidated by hub.
func NewCollections(client *remotestore.Client, hub *Hub, pollInterval time.Duration, opts ...FeedOption) *Collections {
	c := &Collections{
		Products: newCollectionFeed(string(NameProducts), client.ListProducts, pollInterval, opts),
		Orders:   newCollectionFeed(string(NameOrders), client.ListOrders, pollInterval, opts),
		Settings: newCollectionFeed(string(NameSettings), client.ListSettings, pollInterval, opts),
	}

	hub.Register(models.CollectionProducts, c.Products)
	hub.Register(models.CollectionOrders, c.Orders)
	hub.Register(models.CollectionSettings, c.Settings)
	return c
}

// Set combines the document feeds with the auth feed
func (c *Collections) Set(auth Subscribable[models.AuthState]) Set {
	return Set{
		Auth:     auth,
		Products: c.Products,
		Orders:   c.Orders,
		Settings: c.Settings,
	}
}

// Close stops the three feeds
func (c *Collections) Close() {
	c.Products.Close()
	c.Orders.Close()
	c.Settings.Close()
}
