package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/aws"
	"github.com/imrishuroy/go-checkout-orders/internal/checkout"
	"github.com/imrishuroy/go-checkout-orders/internal/config"
	"github.com/imrishuroy/go-checkout-orders/internal/customers"
	"github.com/imrishuroy/go-checkout-orders/internal/handlers"
	"github.com/imrishuroy/go-checkout-orders/internal/idempotency"
	"github.com/imrishuroy/go-checkout-orders/internal/logging"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
	"github.com/imrishuroy/go-checkout-orders/internal/products"
)

func setupRouter(cfg config.Config, clients *aws.Clients, logger *zap.Logger) *gin.Engine {
	customerStore := customers.NewStore(clients.DynamoDB, cfg.CustomersTable)
	productStore := products.NewStore(clients.DynamoDB, cfg.ProductsTable)
	orderStore := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hc := handlers.HandlerConfig{
		CreateOrder: checkout.NewCreateOrderService(customerStore, productStore, orderStore, logger),
		ShowOrder:   checkout.NewShowOrderService(orderStore),
		Customers:   customerStore,
		Products:    productStore,
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Logger:      logger,
		Registry:    registry,
	}
	if cfg.QueueURL != "" {
		hc.Events = orders.NewEventPublisher(aws.NewPublisher(clients.SQS, cfg.QueueURL))
	} else {
		logger.Warn("ORDERS_QUEUE_URL not set, order events are disabled")
	}

	return handlers.NewRouter(hc)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if !cfg.RunLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	r := setupRouter(cfg, clients, logger)

	// if RUN_LOCAL is true, run a local HTTP server for development.
	if cfg.RunLocal {
		runLocal(r, cfg.HTTPAddr, logger)
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)
	lambda.Start(adapter.ProxyWithContext)
}

func runLocal(r *gin.Engine, addr string, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("running local server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
