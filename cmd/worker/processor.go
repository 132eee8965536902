package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-checkout-orders/internal/aws"
	"github.com/imrishuroy/go-checkout-orders/internal/idempotency"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
)

// ErrOrderNotFound is returned for an event whose order is not stored.
var ErrOrderNotFound = errors.New("order not found")

// OrderFinder reads stored orders.
type OrderFinder interface {
	FindByID(ctx context.Context, orderID string) (*orders.Order, error)
}

// MetricsEmitter publishes CloudWatch data points.
type MetricsEmitter interface {
	Emit(ctx context.Context, metrics ...aws.Metric) error
}

// Deduper remembers which events were already counted, so a redelivered
// message does not emit its metrics twice.
type Deduper interface {
	CreateIfNotExists(ctx context.Context, key, requestHash string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error
}

// Processor turns order-created events into business metrics.
type Processor struct {
	orders  OrderFinder
	metrics MetricsEmitter
	dedupe  Deduper
	log     *zap.Logger
}

// NewProcessor wires a processor. dedupe may be nil.
func NewProcessor(orders OrderFinder, metrics MetricsEmitter, dedupe Deduper, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{orders: orders, metrics: metrics, dedupe: dedupe, log: log}
}

// Handle processes an SQS batch. Failed messages are reported individually so
// only they are redelivered and, after the queue's maxReceiveCount, dead-lettered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("order_event_failed",
				zap.String("message_id", rec.MessageId),
				zap.Error(err),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev orders.CreatedEvent
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if ev.OrderID == "" {
		return errors.New("invalid message body: missing order_id")
	}
	logger := p.log.With(
		zap.String("order_id", ev.OrderID),
		zap.String("correlation_id", attribute(rec, "correlation_id")),
	)

	order, err := p.orders.FindByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, ev.OrderID)
	}

	key := "order-created:" + ev.OrderID
	if p.dedupe != nil {
		prev, err := p.dedupe.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read event record: %w", err)
		}
		if prev != nil && prev.Status == idempotency.StatusDone {
			logger.Info("order_event_duplicate")
			return nil
		}
	}

	// Figures come from the stored order, not the event payload.
	stored := orders.NewCreatedEvent(order)
	total, _ := stored.Total.Float64()
	err = p.metrics.Emit(ctx,
		aws.Metric{Name: "OrdersCreated", Value: 1, Unit: cwtypes.StandardUnitCount},
		aws.Metric{Name: "UnitsOrdered", Value: float64(stored.Units()), Unit: cwtypes.StandardUnitCount},
		aws.Metric{Name: "OrderValue", Value: total, Unit: cwtypes.StandardUnitNone},
	)
	if err != nil {
		return fmt.Errorf("emit metrics: %w", err)
	}

	if p.dedupe != nil {
		if err := p.remember(ctx, key, ev.OrderID, rec.Body); err != nil {
			logger.Warn("order_event_record_failed", zap.Error(err))
		}
	}
	logger.Info("order_event_processed",
		zap.Int("units", stored.Units()),
		zap.String("total", stored.Total.String()),
	)
	return nil
}

// remember records the event as counted. A failure only risks counting a
// redelivery twice, so it is logged by the caller and not retried.
func (p *Processor) remember(ctx context.Context, key, orderID, body string) error {
	if _, err := p.dedupe.CreateIfNotExists(ctx, key, idempotency.Fingerprint([]byte(body))); err != nil {
		return err
	}
	return p.dedupe.MarkDone(ctx, key, orderID, "", 0)
}

func attribute(rec events.SQSMessage, name string) string {
	if v, ok := rec.MessageAttributes[name]; ok && v.StringValue != nil {
		return *v.StringValue
	}
	return ""
}
