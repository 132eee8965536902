// Package checkout holds the order use cases. Persistence is reached only
// through the repository interfaces below.
package checkout

import (
	"context"

	"github.com/imrishuroy/go-checkout-orders/internal/customers"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
	"github.com/imrishuroy/go-checkout-orders/internal/products"
)

// CustomersRepository looks customers up. FindByID returns (nil, nil) when
// the customer does not exist.
type CustomersRepository interface {
	FindByID(ctx context.Context, id string) (*customers.Customer, error)
}

// ProductsRepository reads products and overwrites their stock.
// FindAllByID returns only the products that exist.
type ProductsRepository interface {
	FindAllByID(ctx context.Context, ids []string) ([]products.Product, error)
	UpdateQuantity(ctx context.Context, updates []products.QuantityUpdate) error
}

// OrdersRepository persists orders with their line items.
type OrdersRepository interface {
	Create(ctx context.Context, in orders.CreateOrderInput) (*orders.Order, error)
	FindByID(ctx context.Context, orderID string) (*orders.Order, error)
}
