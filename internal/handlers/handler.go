package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/checkout"
	"github.com/imrishuroy/go-checkout-orders/internal/customers"
	"github.com/imrishuroy/go-checkout-orders/internal/idempotency"
	"github.com/imrishuroy/go-checkout-orders/internal/money"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
	"github.com/imrishuroy/go-checkout-orders/internal/products"
	"github.com/imrishuroy/go-checkout-orders/internal/validation"
)

// OrderCreator runs the create-order use case.
type OrderCreator interface {
	Execute(ctx context.Context, req checkout.CreateOrderRequest) (*orders.Order, error)
}

// OrderFinder runs the show-order use case.
type OrderFinder interface {
	Execute(ctx context.Context, orderID string) (*orders.Order, error)
}

type CustomerCreator interface {
	Create(ctx context.Context, name, email string) (*customers.Customer, error)
}

type ProductCreator interface {
	Create(ctx context.Context, name string, price money.Money, quantity int) (*products.Product, error)
}

// IdempotencyStore guards POST /orders retries carrying an Idempotency-Key.
type IdempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key, requestHash string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
}

// EventPublisher announces stored orders.
type EventPublisher interface {
	PublishCreated(ctx context.Context, o *orders.Order, correlationID string) (string, error)
}

// HandlerConfig groups dependencies for the HTTP API. Idempotency and Events
// are optional.
type HandlerConfig struct {
	CreateOrder OrderCreator
	ShowOrder   OrderFinder
	Customers   CustomerCreator
	Products    ProductCreator
	Idempotency IdempotencyStore
	Events      EventPublisher
	Logger      *zap.Logger
	Registry    *prometheus.Registry
}

type handler struct {
	cfg       HandlerConfig
	validator *validatorv10.Validate
	log       *zap.Logger
	metrics   *Metrics
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	metrics := NewMetrics(cfg.Registry)

	r := gin.New()
	r.Use(gin.Recovery(), Tracing(), RequestID(cfg.Logger), AccessLog(cfg.Logger), HTTPMetrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))

	h := &handler{
		cfg:       cfg,
		validator: validation.New(),
		log:       cfg.Logger,
		metrics:   metrics,
	}
	h.registerCustomerRoutes(r)
	h.registerProductRoutes(r)
	h.registerOrderRoutes(r)

	return r
}
