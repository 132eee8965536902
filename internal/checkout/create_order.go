package checkout

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/logging"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
	"github.com/imrishuroy/go-checkout-orders/internal/products"
)

const (
	tracerName         = "github.com/imrishuroy/go-checkout-orders/internal/checkout"
	useCaseCreateOrder = "order.create"
)

// ProductRequest is one requested product and quantity.
type ProductRequest struct {
	ID       string
	Quantity int
}

// CreateOrderRequest is the input of CreateOrderService.
type CreateOrderRequest struct {
	CustomerID string
	Products   []ProductRequest
}

// CreateOrderService creates an order for a customer and decrements stock.
type CreateOrderService struct {
	customers CustomersRepository
	products  ProductsRepository
	orders    OrdersRepository
	log       *zap.Logger
	tracer    trace.Tracer
	nowFunc   func() time.Time
}

// NewCreateOrderService wires the service. A nil logger disables logging.
func NewCreateOrderService(c CustomersRepository, p ProductsRepository, o OrdersRepository, log *zap.Logger) *CreateOrderService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CreateOrderService{
		customers: c,
		products:  p,
		orders:    o,
		log:       log,
		tracer:    otel.Tracer(tracerName),
		nowFunc:   time.Now,
	}
}

// Execute validates the request against stored customers and products,
// stores the order at current prices and overwrites the stock of every
// ordered product. Business rule violations are returned as *AppError.
//
// Order creation and the stock update are not atomic: if the update fails
// the order stays stored and the error is returned.
func (s *CreateOrderService) Execute(ctx context.Context, req CreateOrderRequest) (_ *orders.Order, err error) {
	logger := logging.FromContextOr(ctx, s.log).With(zap.String("use_case", useCaseCreateOrder))

	ctx, span := s.tracer.Start(ctx, "UC.CreateOrder",
		trace.WithAttributes(
			attribute.String("use_case", useCaseCreateOrder),
			attribute.String("customer.id", req.CustomerID),
			attribute.Int("order.line_items", len(req.Products)),
		),
	)
	start := s.nowFunc()
	outcome, status := "success", "OK"
	var orderID string

	defer func() {
		if err != nil {
			outcome = "error"
			if status == "OK" {
				status = "INTERNAL"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()

		fields := []zap.Field{
			zap.String("outcome", outcome),
			zap.String("status", status),
			zap.Float64("latency_seconds", s.nowFunc().Sub(start).Seconds()),
			zap.String("customer_id", req.CustomerID),
		}
		if orderID != "" {
			fields = append(fields, zap.String("order_id", orderID))
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Info("create_order_done", fields...)
	}()

	customer, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}
	if customer == nil {
		status = string(KindCustomerNotFound)
		return nil, NewAppError(KindCustomerNotFound, "Customer does not exists")
	}

	ids := make([]string, 0, len(req.Products))
	for _, p := range req.Products {
		ids = append(ids, p.ID)
	}
	found, err := s.products.FindAllByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	if len(found) == 0 {
		status = string(KindNoProductsFound)
		return nil, NewAppError(KindNoProductsFound, "Could not find any products with the given ids")
	}

	stock := make(map[string]products.Product, len(found))
	for _, p := range found {
		stock[p.ID] = p
	}

	for _, p := range req.Products {
		if _, ok := stock[p.ID]; !ok {
			status = string(KindProductNotFound)
			return nil, NewAppError(KindProductNotFound, fmt.Sprintf("Could not find product %s", p.ID))
		}
	}

	for _, p := range req.Products {
		if stock[p.ID].Quantity < p.Quantity {
			status = string(KindInsufficientStock)
			return nil, NewAppError(KindInsufficientStock,
				fmt.Sprintf("The quantity %d is not available for %s.", p.Quantity, p.ID))
		}
	}

	lineItems := make([]orders.LineItemInput, 0, len(req.Products))
	for _, p := range req.Products {
		lineItems = append(lineItems, orders.LineItemInput{
			ProductID: p.ID,
			Quantity:  p.Quantity,
			Price:     stock[p.ID].Price,
		})
	}

	order, err := s.orders.Create(ctx, orders.CreateOrderInput{
		CustomerID: customer.ID,
		Products:   lineItems,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	orderID = order.OrderID
	span.SetAttributes(attribute.String("order.id", orderID))

	// New stock is computed from the snapshot read above, not re-read.
	updates := make([]products.QuantityUpdate, 0, len(order.Products))
	for _, li := range order.Products {
		updates = append(updates, products.QuantityUpdate{
			ID:       li.ProductID,
			Quantity: stock[li.ProductID].Quantity - li.Quantity,
		})
	}
	if err := s.products.UpdateQuantity(ctx, updates); err != nil {
		status = "STOCK_UPDATE_FAILED"
		logger.Error("stock_update_failed_after_order",
			zap.String("order_id", orderID),
			zap.Any("updates", updates),
			zap.Error(err),
		)
		return nil, fmt.Errorf("update stock for order %s: %w", orderID, err)
	}

	return order, nil
}
