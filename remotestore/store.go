// Package remotestore is the client of the schema-free document store holding the
// products, orders and settings collections.
//
// The store never caches. Writes are acknowledged once committed and announced to
// change listeners; readers learn about them only through the next List.
package remotestore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/nafs-essence-api/logging"
	"github.com/kendall-kelly/nafs-essence-api/models"
	"github.com/kendall-kelly/nafs-essence-api/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = telemetry.Tracer("github.com/kendall-kelly/nafs-essence-api/remotestore")

// Record is a document body with its id merged in under "id"
type Record map[string]any

// Reserved keys merged into every record read from the store
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
)

// Ack acknowledges a committed write
type Ack struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	WriteTime  time.Time `json:"writeTime"`
}

// ChangeListener is told which collection changed after every committed write.
// It runs on the writer's goroutine and must not block.
type ChangeListener func(collection string)

// Store reads and writes documents through gorm
type Store struct {
	db            *gorm.DB
	rules         Rules
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
	notifyChannel string

	mu        sync.RWMutex
	listeners []ChangeListener
}

// Option configures a Store
type Option func(*Store)

// WithRules replaces DefaultRules
func WithRules(r Rules) Option {
	return func(s *Store) { s.rules = r }
}

// WithLogger sets the logger used for non-fatal write side effects
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the server clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNotifyChannel makes every write on PostgreSQL issue pg_notify on channel
// with the collection name as payload
func WithNotifyChannel(channel string) Option {
	return func(s *Store) { s.notifyChannel = channel }
}

// New creates a Store over db
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		rules:  DefaultRules(),
		logger: logging.Discard(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener for committed writes
func (s *Store) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

type queryOptions struct {
	newestFirst bool
}

// QueryOption shapes a List query
type QueryOption func(*queryOptions)

// OrderByCreatedDesc sorts by server creation time, newest first
func OrderByCreatedDesc() QueryOption {
	return func(o *queryOptions) { o.newestFirst = true }
}

// List returns every document of collection. Without options documents come back
// in insertion order.
func (s *Store) List(ctx context.Context, collection string, opts ...QueryOption) (records []Record, err error) {
	ctx, span := s.startSpan(ctx, "remotestore.List", collection, "")
	defer func() { telemetry.End(span, err) }()

	if err := s.check(ctx, "list", OpList, collection, ""); err != nil {
		return nil, err
	}

	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	order := "created_at ASC"
	if o.newestFirst {
		order = "created_at DESC"
	}

	var docs []models.Document
	if err := s.db.WithContext(ctx).Where("collection = ?", collection).Order(order).Find(&docs).Error; err != nil {
		return nil, storeError("list", collection, "", ErrRemoteUnavailable, err)
	}

	records = make([]Record, 0, len(docs))
	for _, doc := range docs {
		record, err := decodeDocument(doc)
		if err != nil {
			return nil, storeError("list", collection, doc.ID, ErrRemoteUnavailable, err)
		}
		records = append(records, record)
	}

	span.SetAttributes(attribute.Int("documents", len(records)))
	return records, nil
}

// Create stores record under a new id. Any "id" or "createdAt" key in record is
// ignored; the store assigns both.
func (s *Store) Create(ctx context.Context, collection string, record Record) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "remotestore.Create", collection, "")
	defer func() { telemetry.End(span, err) }()

	if err := s.check(ctx, "create", OpCreate, collection, ""); err != nil {
		return Ack{}, err
	}

	body, err := json.Marshal(stripReserved(record))
	if err != nil {
		return Ack{}, storeError("create", collection, "", ErrRemoteUnavailable, err)
	}

	now := s.now().UTC()
	doc := models.Document{
		ID:         s.newID(),
		Collection: collection,
		Data:       string(body),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return Ack{}, storeError("create", collection, "", ErrRemoteUnavailable, err)
	}

	s.changed(ctx, collection)
	span.SetAttributes(attribute.String("document.id", doc.ID))
	return Ack{Collection: collection, ID: doc.ID, WriteTime: now}, nil
}

// Update merges the top-level keys of partial into an existing document
func (s *Store) Update(ctx context.Context, collection, id string, partial Record) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "remotestore.Update", collection, id)
	defer func() { telemetry.End(span, err) }()

	if err := s.check(ctx, "update", OpUpdate, collection, id); err != nil {
		return Ack{}, err
	}

	now := s.now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.Where("id = ? AND collection = ?", id, collection).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storeError("update", collection, id, ErrNotFound, nil)
			}
			return storeError("update", collection, id, ErrRemoteUnavailable, err)
		}

		data := map[string]any{}
		if err := json.Unmarshal([]byte(doc.Data), &data); err != nil {
			return storeError("update", collection, id, ErrRemoteUnavailable, err)
		}
		for k, v := range stripReserved(partial) {
			data[k] = v
		}

		body, err := json.Marshal(data)
		if err != nil {
			return storeError("update", collection, id, ErrRemoteUnavailable, err)
		}

		if err := tx.Model(&doc).Updates(map[string]any{"data": string(body), "updated_at": now}).Error; err != nil {
			return storeError("update", collection, id, ErrRemoteUnavailable, err)
		}
		return nil
	})
	if err != nil {
		var storeErr *Error
		if !errors.As(err, &storeErr) {
			err = storeError("update", collection, id, ErrRemoteUnavailable, err)
		}
		return Ack{}, err
	}

	s.changed(ctx, collection)
	return Ack{Collection: collection, ID: id, WriteTime: now}, nil
}

// Delete removes a document. Deleting a missing document succeeds.
func (s *Store) Delete(ctx context.Context, collection, id string) (ack Ack, err error) {
	ctx, span := s.startSpan(ctx, "remotestore.Delete", collection, id)
	defer func() { telemetry.End(span, err) }()

	if err := s.check(ctx, "delete", OpDelete, collection, id); err != nil {
		return Ack{}, err
	}

	if err := s.db.WithContext(ctx).Where("id = ? AND collection = ?", id, collection).Delete(&models.Document{}).Error; err != nil {
		return Ack{}, storeError("delete", collection, id, ErrRemoteUnavailable, err)
	}

	s.changed(ctx, collection)
	return Ack{Collection: collection, ID: id, WriteTime: s.now().UTC()}, nil
}

func (s *Store) check(ctx context.Context, op string, kind Operation, collection, id string) error {
	if !validCollection(collection) {
		return storeError(op, collection, id, ErrUnknownCollection, nil)
	}
	if err := ctx.Err(); err != nil {
		return storeError(op, collection, id, ErrRemoteUnavailable, err)
	}
	if !s.rules.Allow(ctx, kind, collection) {
		return storeError(op, collection, id, ErrPermissionDenied, nil)
	}
	return nil
}

func (s *Store) changed(ctx context.Context, collection string) {
	if s.notifyChannel != "" && s.db.Dialector.Name() == "postgres" {
		if err := s.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", s.notifyChannel, collection).Error; err != nil {
			s.logger.Warn("failed to publish change notification", "collection", collection, "error", err)
		}
	}

	s.mu.RLock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(collection)
	}
}

func (s *Store) startSpan(ctx context.Context, name, collection, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("collection", collection)}
	if id != "" {
		attrs = append(attrs, attribute.String("document.id", id))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func validCollection(collection string) bool {
	switch collection {
	case models.CollectionProducts, models.CollectionOrders, models.CollectionSettings:
		return true
	}
	return false
}

func stripReserved(record Record) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = v
	}
	return out
}

func decodeDocument(doc models.Document) (Record, error) {
	record := Record{}
	if err := json.Unmarshal([]byte(doc.Data), &record); err != nil {
		return nil, err
	}
	record[FieldID] = doc.ID
	record[FieldCreatedAt] = doc.CreatedAt.UTC()
	return record, nil
}
