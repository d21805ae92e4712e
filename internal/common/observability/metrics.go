// internal/common/observability/metrics.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records per-operation counters and durations through OpenTelemetry,
// exported on the same Prometheus registry as the pipeline metrics.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	opCounter     otelmetric.Int64Counter
	opDuration    otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	opCounter, _ := meter.Int64Counter(
		"pipeline.operations",
		otelmetric.WithDescription("Number of pipeline operations processed"),
	)

	opDuration, _ := meter.Float64Histogram(
		"pipeline.operations.duration",
		otelmetric.WithDescription("Pipeline operation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		opCounter:     opCounter,
		opDuration:    opDuration,
	}
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordOperation(ctx context.Context, operation, status string) {
	if o == nil || o.opCounter == nil {
		return
	}
	o.opCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordDuration(ctx context.Context, operation string, duration time.Duration, status string) {
	if o == nil || o.opDuration == nil {
		return
	}
	o.opDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// Track records both the counter and the duration for one finished operation.
func (o *Observability) Track(ctx context.Context, operation string, start time.Time, status string) {
	o.RecordOperation(ctx, operation, status)
	o.RecordDuration(ctx, operation, time.Since(start), status)
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
