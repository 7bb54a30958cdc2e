package exporter

import (
	"context"

	"github.com/tracebuild/tracebuild/internal/model"
)

// noopSpans and noopMetrics back the "none" exporter selection and the
// fallback when a real backend fails to initialize.

type noopSpans struct{}

func (noopSpans) ExportSpan(context.Context, model.Record) error { return nil }
func (noopSpans) Shutdown(context.Context) error                 { return nil }

type noopMetrics struct{}

func (noopMetrics) ExportMetric(context.Context, model.MetricSample) error { return nil }
func (noopMetrics) Shutdown(context.Context) error                         { return nil }
