package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// maxDatumsPerCall is the PutMetricData limit on metric datums per request.
const maxDatumsPerCall = 1000

// Metric is a single CloudWatch data point.
type Metric struct {
	Name  string
	Value float64
	Unit  cwtypes.StandardUnit
}

// MetricsEmitter publishes business metrics to a CloudWatch namespace.
type MetricsEmitter struct {
	client     CloudWatchAPI
	namespace  string
	dimensions []cwtypes.Dimension
	nowFunc    func() time.Time
}

// NewMetricsEmitter returns an emitter that tags every datum with the given dimensions.
func NewMetricsEmitter(client CloudWatchAPI, namespace string, dimensions map[string]string) *MetricsEmitter {
	dims := make([]cwtypes.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, cwtypes.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}
	return &MetricsEmitter{
		client:     client,
		namespace:  namespace,
		dimensions: dims,
		nowFunc:    time.Now,
	}
}

// Emit sends the metrics, splitting into several calls when needed.
func (e *MetricsEmitter) Emit(ctx context.Context, metrics ...Metric) error {
	if len(metrics) == 0 {
		return nil
	}
	ts := e.nowFunc()

	data := make([]cwtypes.MetricDatum, 0, len(metrics))
	for _, m := range metrics {
		unit := m.Unit
		if unit == "" {
			unit = cwtypes.StandardUnitNone
		}
		data = append(data, cwtypes.MetricDatum{
			MetricName: sdkaws.String(m.Name),
			Value:      sdkaws.Float64(m.Value),
			Unit:       unit,
			Timestamp:  sdkaws.Time(ts),
			Dimensions: e.dimensions,
		})
	}

	for start := 0; start < len(data); start += maxDatumsPerCall {
		end := min(start+maxDatumsPerCall, len(data))
		_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  sdkaws.String(e.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
	}
	return nil
}
