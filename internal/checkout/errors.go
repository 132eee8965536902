package checkout

import (
	"errors"
	"net/http"
)

// Kind classifies business rule violations.
type Kind string

const (
	KindCustomerNotFound  Kind = "CUSTOMER_NOT_FOUND"
	KindNoProductsFound   Kind = "NO_PRODUCTS_FOUND"
	KindProductNotFound   Kind = "PRODUCT_NOT_FOUND"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindOrderNotFound     Kind = "ORDER_NOT_FOUND"
)

// Sentinels matched by errors.Is against an *AppError of the same kind.
var (
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrNoProductsFound   = errors.New("no products found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
)

var sentinels = map[Kind]error{
	KindCustomerNotFound:  ErrCustomerNotFound,
	KindNoProductsFound:   ErrNoProductsFound,
	KindProductNotFound:   ErrProductNotFound,
	KindInsufficientStock: ErrInsufficientStock,
	KindOrderNotFound:     ErrOrderNotFound,
}

// AppError is a business error safe to show to API clients.
type AppError struct {
	Kind       Kind
	Message    string
	StatusCode int
}

// NewAppError returns an AppError with the default 400 status.
func NewAppError(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, StatusCode: http.StatusBadRequest}
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return sentinels[e.Kind] }

// Status returns the HTTP status for the error, defaulting to 400.
func (e *AppError) Status() int {
	if e.StatusCode == 0 {
		return http.StatusBadRequest
	}
	return e.StatusCode
}
