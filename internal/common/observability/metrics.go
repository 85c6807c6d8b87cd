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

// Observability records evaluation instruments through an OpenTelemetry meter
// exported on the Prometheus default registry. The zero value is a no-op.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	evalCounter   otelmetric.Int64Counter
	evalDuration  otelmetric.Float64Histogram
}

func New(serviceName string, log *zap.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", zap.Error(err))
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

// NewWithReader builds an Observability over a caller-supplied reader.
func NewWithReader(serviceName string, reader metric.Reader) *Observability {
	return newWithProvider(metric.NewMeterProvider(metric.WithReader(reader)), serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	evalCounter, _ := meter.Int64Counter(
		"loan.evaluations",
		otelmetric.WithDescription("Number of loan applications evaluated"),
	)

	evalDuration, _ := meter.Float64Histogram(
		"loan.evaluation.duration",
		otelmetric.WithDescription("Encode and predict duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		evalCounter:   evalCounter,
		evalDuration:  evalDuration,
	}
}

func (o *Observability) RecordEvaluation(ctx context.Context, verdict, channel string) {
	if o == nil || o.evalCounter == nil {
		return
	}
	o.evalCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("verdict", verdict),
		attribute.String("channel", channel),
	))
}

func (o *Observability) RecordEvaluationDuration(ctx context.Context, duration time.Duration, channel string) {
	if o == nil || o.evalDuration == nil {
		return
	}
	o.evalDuration.Record(ctx, float64(duration.Microseconds())/1000, otelmetric.WithAttributes(
		attribute.String("channel", channel),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
