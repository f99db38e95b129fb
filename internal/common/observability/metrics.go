package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Observability records per-batch figures for the fan-out operations.
// A zero value is safe to use and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	batchCounter  otelmetric.Int64Counter
	batchSize     otelmetric.Int64Histogram
	batchDuration otelmetric.Float64Histogram
}

func New(serviceName string, log *zap.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", zap.Error(err))
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	batchCounter, _ := meter.Int64Counter(
		"fitcheck.batches",
		otelmetric.WithDescription("Number of fan-out batches processed"),
	)

	batchSize, _ := meter.Int64Histogram(
		"fitcheck.batch.size",
		otelmetric.WithDescription("Number of shoes per batch"),
	)

	batchDuration, _ := meter.Float64Histogram(
		"fitcheck.batch.duration",
		otelmetric.WithDescription("Batch processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		batchCounter:  batchCounter,
		batchSize:     batchSize,
		batchDuration: batchDuration,
	}
}

// RecordBatch records one completed orchestrator call.
func (o *Observability) RecordBatch(ctx context.Context, operation string, size int, duration time.Duration) {
	if o == nil || o.batchCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("operation", operation))
	o.batchCounter.Add(ctx, 1, attrs)
	o.batchSize.Record(ctx, int64(size), attrs)
	o.batchDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
