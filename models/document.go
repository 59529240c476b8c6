package models

import (
	"time"
)

// Collection names of the document store
const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionSettings = "settings"
)

// Document is a schema-free record stored in one of the named collections.
// Data holds the JSON body; the id and server timestamps live in their own columns.
type Document struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Collection string    `gorm:"not null;index:idx_documents_collection_created,priority:1" json:"collection"`
	Data       string    `gorm:"type:text;not null" json:"data"`
	CreatedAt  time.Time `gorm:"index:idx_documents_collection_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Document model
func (Document) TableName() string {
	return "documents"
}
