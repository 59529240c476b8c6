package remotestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kendall-kelly/nafs-essence-api/models"
)

// Client is the typed view of Store used by the feeds and the admin views
type Client struct {
	store *Store
}

// NewClient wraps store
func NewClient(store *Store) *Client {
	return &Client{store: store}
}

// ListProducts returns the products collection in provider order
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	records, err := c.store.List(ctx, models.CollectionProducts)
	if err != nil {
		return nil, err
	}
	return decodeRecords[models.Product](records)
}

// CreateProduct stores a new product; its ID field is ignored
func (c *Client) CreateProduct(ctx context.Context, p models.Product) (Ack, error) {
	record, err := ToRecord(p)
	if err != nil {
		return Ack{}, err
	}
	return c.store.Create(ctx, models.CollectionProducts, record)
}

// UpdateProduct merges fields into the product with the given id
func (c *Client) UpdateProduct(ctx context.Context, id string, fields Record) (Ack, error) {
	return c.store.Update(ctx, models.CollectionProducts, id, fields)
}

// DeleteProduct removes a product
func (c *Client) DeleteProduct(ctx context.Context, id string) (Ack, error) {
	return c.store.Delete(ctx, models.CollectionProducts, id)
}

// ListOrders returns every order, newest first as sorted by the store
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	records, err := c.store.List(ctx, models.CollectionOrders, OrderByCreatedDesc())
	if err != nil {
		return nil, err
	}
	return decodeRecords[models.Order](records)
}

// CreateOrder stores a new order; the store assigns its id and createdAt
func (c *Client) CreateOrder(ctx context.Context, o models.Order) (Ack, error) {
	record, err := ToRecord(o)
	if err != nil {
		return Ack{}, err
	}
	return c.store.Create(ctx, models.CollectionOrders, record)
}

// UpdateOrderStatus sets the status of an order. Any status may follow any other.
func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (Ack, error) {
	if !status.Valid() {
		return Ack{}, fmt.Errorf("unknown order status %q", status)
	}
	return c.store.Update(ctx, models.CollectionOrders, id, Record{"status": string(status)})
}

// DeleteOrder removes an order
func (c *Client) DeleteOrder(ctx context.Context, id string) (Ack, error) {
	return c.store.Delete(ctx, models.CollectionOrders, id)
}

// SettingsDocument is a settings document together with its id
type SettingsDocument struct {
	ID       string
	Settings models.SiteSettings
}

// ListSettingsDocuments returns every settings document in provider order
func (c *Client) ListSettingsDocuments(ctx context.Context) ([]SettingsDocument, error) {
	records, err := c.store.List(ctx, models.CollectionSettings)
	if err != nil {
		return nil, err
	}

	settings, err := decodeRecords[models.SiteSettings](records)
	if err != nil {
		return nil, err
	}

	docs := make([]SettingsDocument, len(records))
	for i, record := range records {
		id, _ := record[FieldID].(string)
		docs[i] = SettingsDocument{ID: id, Settings: settings[i]}
	}
	return docs, nil
}

// ListSettings returns the settings documents without their ids
func (c *Client) ListSettings(ctx context.Context) ([]models.SiteSettings, error) {
	docs, err := c.ListSettingsDocuments(ctx)
	if err != nil {
		return nil, err
	}
	settings := make([]models.SiteSettings, len(docs))
	for i, doc := range docs {
		settings[i] = doc.Settings
	}
	return settings, nil
}

// UpdateSettings overwrites every field of the settings document with the given id
func (c *Client) UpdateSettings(ctx context.Context, id string, s models.SiteSettings) (Ack, error) {
	record, err := ToRecord(s)
	if err != nil {
		return Ack{}, err
	}
	return c.store.Update(ctx, models.CollectionSettings, id, record)
}

// SeedSettings creates the settings document when the collection is empty
func (c *Client) SeedSettings(ctx context.Context, s models.SiteSettings) (created bool, err error) {
	docs, err := c.ListSettingsDocuments(ctx)
	if err != nil {
		return false, err
	}
	if len(docs) > 0 {
		return false, nil
	}

	record, err := ToRecord(s)
	if err != nil {
		return false, err
	}
	if _, err := c.store.Create(ctx, models.CollectionSettings, record); err != nil {
		return false, err
	}
	return true, nil
}

// ToRecord converts a model into a record using its JSON field names
func ToRecord(v any) (Record, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	record := Record{}
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	delete(record, FieldID)
	return record, nil
}

func decodeRecords[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("decode record %v: %w", record[FieldID], err)
		}
		out = append(out, v)
	}
	return out, nil
}
