package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// OrderStatuses lists every status in the order the admin views present them
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the known statuses.
// Transitions are not constrained: any status may follow any other.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts a raw value into an OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return status, nil
}

// LineItem is a snapshot of a product at the time it was ordered
type LineItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"` // unit price when the order was placed
	Size        string  `json:"size"`
}

// Subtotal returns price × quantity for the line
func (li LineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

// Customer holds the contact and shipping details captured at checkout
type Customer struct {
	Name    string
	Email   string
	Mobile  string
	Address string
}

// Order represents a storefront order document in the "orders" collection
type Order struct {
	ID           string      `json:"id,omitempty"`
	CustomerName string      `json:"customerName"`
	Email        string      `json:"email"`
	Mobile       string      `json:"mobile"`
	Address      string      `json:"address"`
	Items        []LineItem  `json:"items"`
	Total        float64     `json:"total"`
	Status       OrderStatus `json:"status"`
	Date         string      `json:"date"`                // human-readable, formatted by the client
	CreatedAt    *time.Time  `json:"createdAt,omitempty"` // authoritative, assigned by the store
}

// MarshalJSON writes an order without items as an empty list
func (o Order) MarshalJSON() ([]byte, error) {
	type order Order
	if o.Items == nil {
		o.Items = []LineItem{}
	}
	return json.Marshal(order(o))
}

// OrderDateLayout is the layout used for the client-formatted Date field
const OrderDateLayout = "1/2/2006, 3:04:05 PM"

// NewOrder builds a Pending order whose total is the sum of the line subtotals.
// The total is fixed here and never recomputed afterwards.
func NewOrder(customer Customer, items []LineItem, placedAt time.Time) (Order, error) {
	if len(items) == 0 {
		return Order{}, fmt.Errorf("order must contain at least one item")
	}

	var total float64
	for i, item := range items {
		if item.Quantity < 1 {
			return Order{}, fmt.Errorf("item %d: quantity must be at least 1", i)
		}
		if item.Price < 0 {
			return Order{}, fmt.Errorf("item %d: price must not be negative", i)
		}
		total += item.Subtotal()
	}

	lines := make([]LineItem, len(items))
	copy(lines, items)

	return Order{
		CustomerName: customer.Name,
		Email:        customer.Email,
		Mobile:       customer.Mobile,
		Address:      customer.Address,
		Items:        lines,
		Total:        total,
		Status:       OrderStatusPending,
		Date:         placedAt.Format(OrderDateLayout),
	}, nil
}
