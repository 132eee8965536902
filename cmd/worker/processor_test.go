package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-checkout-orders/internal/aws"
	"github.com/imrishuroy/go-checkout-orders/internal/dynamotest"
	"github.com/imrishuroy/go-checkout-orders/internal/idempotency"
	"github.com/imrishuroy/go-checkout-orders/internal/money"
	"github.com/imrishuroy/go-checkout-orders/internal/orders"
)

type mockCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (m *mockCloudWatch) values() map[string]float64 {
	out := map[string]float64{}
	for _, in := range m.inputs {
		for _, d := range in.MetricData {
			out[*d.MetricName] += *d.Value
		}
	}
	return out
}

type harness struct {
	db     *dynamotest.Mock
	cw     *mockCloudWatch
	proc   *Processor
	orders *orders.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dynamotest.New().
		CreateTable("orders", "order_id").
		CreateTable("idempotency", "idempotency_key")
	cw := &mockCloudWatch{}
	store := orders.NewStore(db, "orders")
	return &harness{
		db:     db,
		cw:     cw,
		orders: store,
		proc: NewProcessor(
			store,
			aws.NewMetricsEmitter(cw, "CheckoutOrders", map[string]string{"Service": "checkout-orders"}),
			idempotency.NewStore(db, "idempotency", time.Hour),
			nil,
		),
	}
}

func (h *harness) storeOrder(t *testing.T) *orders.Order {
	t.Helper()
	o, err := h.orders.Create(context.Background(), orders.CreateOrderInput{
		CustomerID: "c1",
		Products: []orders.LineItemInput{
			{ProductID: "p1", Quantity: 3, Price: money.MustParse("10")},
			{ProductID: "p2", Quantity: 1, Price: money.MustParse("2.5")},
		},
	})
	require.NoError(t, err)
	return o
}

func messageFor(t *testing.T, id string, o *orders.Order) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(orders.NewCreatedEvent(o))
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestHandle_EmitsMetrics(t *testing.T) {
	h := newHarness(t)
	o := h.storeOrder(t)

	resp, err := h.proc.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{messageFor(t, "m1", o)}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)

	require.Len(t, h.cw.inputs, 1)
	assert.Equal(t, "CheckoutOrders", *h.cw.inputs[0].Namespace)
	assert.Equal(t, map[string]float64{"OrdersCreated": 1, "UnitsOrdered": 4, "OrderValue": 32.5}, h.cw.values())
	dims := h.cw.inputs[0].MetricData[0].Dimensions
	require.Len(t, dims, 1)
	assert.Equal(t, "Service", *dims[0].Name)
}

func TestHandle_RedeliveryIsCountedOnce(t *testing.T) {
	h := newHarness(t)
	o := h.storeOrder(t)
	msg := messageFor(t, "m1", o)

	for i := 0; i < 2; i++ {
		resp, err := h.proc.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{msg}})
		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)
	}
	assert.Len(t, h.cw.inputs, 1)

	item := h.db.Get("idempotency", "order-created:"+o.OrderID)
	require.NotNil(t, item)
	assert.Equal(t, idempotency.StatusDone, item["status"].(*types.AttributeValueMemberS).Value)
}

func TestHandle_ReportsOnlyFailedMessages(t *testing.T) {
	h := newHarness(t)
	o := h.storeOrder(t)
	ghost := &orders.Order{OrderID: "missing", CustomerID: "c1"}

	resp, err := h.proc.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "bad-json", Body: "{not json"},
		messageFor(t, "ok", o),
		messageFor(t, "ghost", ghost),
		{MessageId: "no-id", Body: `{"customer_id":"c1"}`},
	}})
	require.NoError(t, err)

	var failed []string
	for _, f := range resp.BatchItemFailures {
		failed = append(failed, f.ItemIdentifier)
	}
	assert.Equal(t, []string{"bad-json", "ghost", "no-id"}, failed)
	assert.Len(t, h.cw.inputs, 1)
}

func TestHandle_CloudWatchErrorIsRetried(t *testing.T) {
	h := newHarness(t)
	o := h.storeOrder(t)
	h.cw.err = errors.New("throttled")

	resp, err := h.proc.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{messageFor(t, "m1", o)}})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Zero(t, h.db.Len("idempotency"), "nothing is remembered on failure")

	h.cw.err = nil
	resp, err = h.proc.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{messageFor(t, "m1", o)}})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Len(t, h.cw.inputs, 1)
}
