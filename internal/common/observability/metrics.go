package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records pipeline run metrics through an OpenTelemetry meter
// exported on the default Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	runCounter    otelmetric.Int64Counter
	runDuration   otelmetric.Float64Histogram
	menusStored   otelmetric.Int64Counter
}

// New wires the exporter. On exporter failure it returns a recorder whose
// methods are no-ops, together with the error.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	runCounter, _ := meter.Int64Counter(
		"menu.pipeline.runs",
		otelmetric.WithDescription("Number of menu pipeline runs"),
	)

	runDuration, _ := meter.Float64Histogram(
		"menu.pipeline.duration",
		otelmetric.WithDescription("Menu pipeline run duration"),
		otelmetric.WithUnit("ms"),
	)

	menusStored, _ := meter.Int64Counter(
		"menu.pipeline.menus_stored",
		otelmetric.WithDescription("Number of daily menus written by the pipeline"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		runCounter:    runCounter,
		runDuration:   runDuration,
		menusStored:   menusStored,
	}, nil
}

// NewNoop returns a recorder that drops everything.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordRun(ctx context.Context, trigger, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	if o.runCounter != nil {
		o.runCounter.Add(ctx, 1, attrs)
	}
	if o.runDuration != nil {
		o.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) RecordMenusStored(ctx context.Context, source string, count int) {
	if o == nil || o.menusStored == nil {
		return
	}
	o.menusStored.Add(ctx, int64(count), otelmetric.WithAttributes(
		attribute.String("source", source),
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
