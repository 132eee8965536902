package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/aws"
	"github.com/imrishuroy/go-checkout-orders/internal/config"
	"github.com/imrishuroy/go-checkout-orders/internal/idempotency"
	"github.com/imrishuroy/go-checkout-orders/internal/logging"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.MustNewLogger(cfg.ServiceName+"-worker", cfg.Env)
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	p := NewProcessor(
		orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		aws.NewMetricsEmitter(clients.CloudWatch, cfg.MetricsNamespace, map[string]string{"Service": cfg.ServiceName}),
		idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		logger,
	)

	// If RUN_LOCAL=true, process a single synthetic event and exit.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			b, _ := json.Marshal(orders.CreatedEvent{OrderID: "local-order-1", CustomerID: "local-customer-1"})
			body = string(b)
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		}
		resp, err := p.Handle(context.Background(), event)
		if err != nil || len(resp.BatchItemFailures) > 0 {
			logger.Fatal("local handler error", zap.Error(err), zap.Int("failures", len(resp.BatchItemFailures)))
		}
		return
	}

	lambda.Start(p.Handle)
}
