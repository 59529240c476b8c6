package models

import "encoding/json"

// Product represents a perfume oil document in the "products" collection
type Product struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"` // URI of the product photo
	Category    string   `json:"category"`
	Stock       int      `json:"stock"`
	Sizes       []string `json:"sizes"`
	Rating      *float64 `json:"rating,omitempty"` // optional for newer products
	SKU         *string  `json:"sku,omitempty"`    // optional for newer products
	DateAdded   string   `json:"dateAdded,omitempty"`
	LastUpdated string   `json:"lastUpdated,omitempty"`
}

// MarshalJSON writes a product without sizes as an empty list
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	if p.Sizes == nil {
		p.Sizes = []string{}
	}
	return json.Marshal(product(p))
}

// DefaultCategory is preselected by the inventory form
const DefaultCategory = "Oud"

// DefaultSize is offered when a product lists no sizes
const DefaultSize = "6ml"

// FirstSize returns the first offered size, or DefaultSize when none are listed
func (p Product) FirstSize() string {
	if len(p.Sizes) > 0 && p.Sizes[0] != "" {
		return p.Sizes[0]
	}
	return DefaultSize
}

// FindProduct returns the product with the given id from a snapshot
func FindProduct(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
