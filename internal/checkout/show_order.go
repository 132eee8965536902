package checkout

import (
	"context"
	"fmt"
	"net/http"

	"github.com/imrishuroy/go-checkout-orders/internal/orders"
)

// ShowOrderService fetches a stored order.
type ShowOrderService struct {
	orders OrdersRepository
}

func NewShowOrderService(o OrdersRepository) *ShowOrderService {
	return &ShowOrderService{orders: o}
}

// Execute returns the order or an AppError of kind KindOrderNotFound.
func (s *ShowOrderService) Execute(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if o == nil {
		return nil, &AppError{Kind: KindOrderNotFound, Message: "Order not found", StatusCode: http.StatusNotFound}
	}
	return o, nil
}
