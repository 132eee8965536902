package orders

import (
	"time"

	"github.com/imrishuroy/go-checkout-orders/internal/money"
)

// Order represents the item stored in the orders table. Line items are
// embedded so the order and its items are written by a single PutItem.
type Order struct {
	OrderID    string     `dynamodbav:"order_id" json:"order_id"` // PK
	CustomerID string     `dynamodbav:"customer_id" json:"customer_id"`
	Products   []LineItem `dynamodbav:"products" json:"products"`
	CreatedAt  time.Time  `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `dynamodbav:"updated_at" json:"updated_at"`
}

// LineItem is one product of an order with its price at order time.
type LineItem struct {
	ID        string      `dynamodbav:"id" json:"id"`
	ProductID string      `dynamodbav:"product_id" json:"product_id"`
	Quantity  int         `dynamodbav:"quantity" json:"quantity"`
	Price     money.Money `dynamodbav:"price" json:"price"`
}

// Total is the sum of quantity * price over all line items.
func (o *Order) Total() money.Money {
	total := money.Zero
	for _, li := range o.Products {
		total = total.Add(li.Price.Times(li.Quantity))
	}
	return total
}

// CreateOrderInput is what the orders store needs to persist a new order.
type CreateOrderInput struct {
	CustomerID string
	Products   []LineItemInput
}

// LineItemInput is a line item before ids are assigned.
type LineItemInput struct {
	ProductID string
	Quantity  int
	Price     money.Money
}

// CreatedEvent is published once an order is stored.
type CreatedEvent struct {
	OrderID    string             `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	Items      []CreatedEventItem `json:"items"`
	Total      money.Money        `json:"total"`
	CreatedAt  time.Time          `json:"created_at"`
}

// CreatedEventItem mirrors LineItem without the line item id.
type CreatedEventItem struct {
	ProductID string      `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Price     money.Money `json:"price"`
}

// NewCreatedEvent builds the event for a stored order.
func NewCreatedEvent(o *Order) CreatedEvent {
	items := make([]CreatedEventItem, 0, len(o.Products))
	for _, li := range o.Products {
		items = append(items, CreatedEventItem{ProductID: li.ProductID, Quantity: li.Quantity, Price: li.Price})
	}
	return CreatedEvent{
		OrderID:    o.OrderID,
		CustomerID: o.CustomerID,
		Items:      items,
		Total:      o.Total(),
		CreatedAt:  o.CreatedAt,
	}
}

// Units is the total number of units in the event.
func (e CreatedEvent) Units() int {
	n := 0
	for _, it := range e.Items {
		n += it.Quantity
	}
	return n
}
