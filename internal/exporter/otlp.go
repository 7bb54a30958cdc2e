package exporter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tracebuild/tracebuild/internal/config"
	"github.com/tracebuild/tracebuild/internal/model"
)

const otlpTimeout = 5 * time.Second

// newOTLPSpanExporter builds the collector-protocol span exporter for the
// configured transport: gRPC or HTTP/protobuf, with optional transport
// encryption disabled via the insecure flag.
func newOTLPSpanExporter(ctx context.Context, cfg config.Config) (sdktrace.SpanExporter, error) {
	endpoint := cfg.TracesEndpoint()
	if cfg.OTLPProtocol == config.ProtocolGRPC {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithTimeout(otlpTimeout),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("exporter: otlp grpc traces: %w", err)
		}
		return exp, nil
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithTimeout(otlpTimeout),
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("exporter: otlp http traces: %w", err)
	}
	return exp, nil
}

// otlpMetrics records duration observations on a histogram instrument with
// the fixed build-duration boundaries and pushes them on shutdown.
type otlpMetrics struct {
	mp *sdkmetric.MeterProvider
}

func newOTLPMetrics(ctx context.Context, cfg config.Config, res *resource.Resource) (*otlpMetrics, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.MetricsEndpoint()),
		otlpmetrichttp.WithTimeout(otlpTimeout),
	}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("exporter: otlp http metrics: %w", err)
	}

	// The interval is irrelevant for a process this short-lived; the single
	// real export happens when Shutdown flushes the reader.
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp,
				sdkmetric.WithInterval(15*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	return &otlpMetrics{mp: mp}, nil
}

func (m *otlpMetrics) ExportMetric(ctx context.Context, sample model.MetricSample) error {
	hist, err := m.mp.Meter(tracerName).Float64Histogram(sample.Name,
		metric.WithUnit("s"),
		metric.WithDescription("build operation duration"),
		metric.WithExplicitBucketBoundaries(durationBucketsSeconds...),
	)
	if err != nil {
		return fmt.Errorf("exporter: create histogram %s: %w", sample.Name, err)
	}
	hist.Record(ctx, sample.Value, metric.WithAttributes(labelAttributes(sample.Labels)...))
	return nil
}

func (m *otlpMetrics) Shutdown(ctx context.Context) error {
	return m.mp.Shutdown(ctx)
}

func labelAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
