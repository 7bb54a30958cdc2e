// Package exporter routes reconstructed span records and metric samples to
// the configured telemetry backends.
//
// Exactly one trace backend (none, otlp, jaeger) and one metrics backend
// (none, otlp, prometheus push gateway) are active per invocation, selected
// once at startup. Export failures are diagnostics only: the wrapped build
// step's real outcome is never masked by telemetry.
package exporter

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/tracebuild/tracebuild/internal/config"
	"github.com/tracebuild/tracebuild/internal/model"
)

// durationBucketsSeconds are the fixed histogram boundaries shared by every
// metrics backend: five-minute-wide upper bounds from 5 to 40 minutes, with
// observations past the last boundary landing in the implicit overflow
// bucket. Build durations range from seconds to the better part of an hour;
// coarse buckets keep the pushed payload small.
var durationBucketsSeconds = []float64{300, 600, 900, 1200, 1500, 1800, 2100, 2400}

// SpanBackend delivers one reconstructed span to a trace backend.
type SpanBackend interface {
	ExportSpan(ctx context.Context, rec model.Record) error
	// Shutdown performs the final blocking flush and releases the backend.
	Shutdown(ctx context.Context) error
}

// MetricBackend delivers duration observations to a metrics backend.
type MetricBackend interface {
	ExportMetric(ctx context.Context, sample model.MetricSample) error
	Shutdown(ctx context.Context) error
}

// Router holds the one selected backend per signal.
type Router struct {
	spans        SpanBackend
	metrics      MetricBackend
	flushTimeout time.Duration
	logger       *slog.Logger
}

// New selects backends from configuration. Unknown exporter names were
// already rejected by config validation; a backend that fails to initialize
// (for example a malformed collector URL) degrades to a no-op with a
// diagnostic instead of failing the build.
func New(ctx context.Context, cfg config.Config, version string, logger *slog.Logger) *Router {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		logger.Warn("failed to build telemetry resource", "error", err)
		res = resource.Default()
	}

	r := &Router{
		spans:        noopSpans{},
		metrics:      noopMetrics{},
		flushTimeout: cfg.FlushTimeout,
		logger:       logger,
	}

	switch cfg.TracesExporter {
	case config.TracesOTLP:
		exp, err := newOTLPSpanExporter(ctx, cfg)
		if err != nil {
			logger.Warn("failed to initialize otlp trace exporter, traces disabled", "error", err)
		} else {
			r.spans = newSDKSpans(exp, res)
		}
	case config.TracesJaeger:
		exp, err := newJaegerSpanExporter(cfg)
		if err != nil {
			logger.Warn("failed to initialize jaeger trace exporter, traces disabled", "error", err)
		} else {
			r.spans = newSDKSpans(exp, res)
		}
	case config.TracesNone:
	}

	switch cfg.MetricsExporter {
	case config.MetricsOTLP:
		m, err := newOTLPMetrics(ctx, cfg, res)
		if err != nil {
			logger.Warn("failed to initialize otlp metric exporter, metrics disabled", "error", err)
		} else {
			r.metrics = m
		}
	case config.MetricsPrometheus:
		r.metrics = newPrometheusMetrics(cfg)
	case config.MetricsNone:
	}

	return r
}

// ExportSpan translates and queues one span record. Failures are logged and
// swallowed.
func (r *Router) ExportSpan(ctx context.Context, rec model.Record) {
	if _, skew := rec.Duration(); skew {
		r.logger.Warn("span end precedes start, duration clamped to zero",
			"kind", rec.Kind, "name", rec.Name, "start", rec.Start, "end", rec.End)
	}
	if err := r.spans.ExportSpan(ctx, rec); err != nil {
		r.logger.Warn("failed to export span", "kind", rec.Kind, "error", err)
	}
}

// ExportMetric records one duration observation. Failures are logged and
// swallowed.
func (r *Router) ExportMetric(ctx context.Context, sample model.MetricSample) {
	if err := r.metrics.ExportMetric(ctx, sample); err != nil {
		r.logger.Warn("failed to record metric", "metric", sample.Name, "error", err)
	}
}

// Flush performs the final synchronous delivery, bounded by the configured
// flush timeout. Both backends shut down concurrently, purely to overlap
// their network latency within the single flush; there is no later
// invocation to retry in, so failures are logged and dropped.
func (r *Router) Flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.flushTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error { return r.spans.Shutdown(ctx) })
	g.Go(func() error { return r.metrics.Shutdown(ctx) })
	if err := g.Wait(); err != nil {
		r.logger.Warn("telemetry flush failed", "error", err)
	}
}
