package validation

import "github.com/imrishuroy/go-checkout-orders/internal/money"

// ProductItem is one requested product of an order.
type ProductItem struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"` // must be >= 1
}

// CreateOrderRequest is the payload for POST /orders
type CreateOrderRequest struct {
	CustomerID string        `json:"customer_id" validate:"required"`
	Products   []ProductItem `json:"products" validate:"required,min=1,dive"` // ids must be unique
}

// CreateCustomerRequest is the payload for POST /customers
type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

// CreateProductRequest is the payload for POST /products
type CreateProductRequest struct {
	Name     string      `json:"name" validate:"required,max=200"`
	Price    money.Money `json:"price"` // checked at struct level, must be > 0
	Quantity int         `json:"quantity" validate:"min=0"`
}
