package products

import (
	"time"

	"github.com/imrishuroy/go-checkout-orders/internal/money"
)

// Product is the item stored in the products table.
type Product struct {
	ID        string      `dynamodbav:"id" json:"id"` // PK
	Name      string      `dynamodbav:"name" json:"name"`
	Price     money.Money `dynamodbav:"price" json:"price"`
	Quantity  int         `dynamodbav:"quantity" json:"quantity"` // available stock
	CreatedAt time.Time   `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt time.Time   `dynamodbav:"updated_at" json:"updated_at"`
}

// QuantityUpdate overwrites the stock of one product.
type QuantityUpdate struct {
	ID       string
	Quantity int
}
