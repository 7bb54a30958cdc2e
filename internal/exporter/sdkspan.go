package exporter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracebuild/tracebuild/internal/model"
)

const tracerName = "tracebuild"

// sdkSpans replays a reconstructed record through a real SDK tracer
// pipeline so that every span exporter (OTLP over HTTP or gRPC, Jaeger
// agent or collector) shares one translation path: the record's own ids are
// injected via a fixed IDGenerator, its timestamps via explicit start/end
// options, and its parent via a remote span context. There is never a live
// tracer spanning the operation being described — the span is synthesized
// entirely from caller-supplied data.
type sdkSpans struct {
	exp sdktrace.SpanExporter
	res *resource.Resource
	tp  *sdktrace.TracerProvider
}

func newSDKSpans(exp sdktrace.SpanExporter, res *resource.Resource) *sdkSpans {
	return &sdkSpans{exp: exp, res: res}
}

func (s *sdkSpans) ExportSpan(ctx context.Context, rec model.Record) error {
	gen := &recordIDGenerator{
		traceID: trace.TraceID(rec.TraceID),
		spanID:  trace.SpanID(rec.SpanID),
	}
	s.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(s.exp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(s.res),
		sdktrace.WithIDGenerator(gen),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	ctx = withRemoteParent(ctx, rec)

	attrs := make([]attribute.KeyValue, 0, len(rec.Attributes))
	for k, v := range rec.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	_, span := s.tp.Tracer(tracerName).Start(ctx, rec.Name,
		trace.WithTimestamp(rec.Start.Time()),
		trace.WithSpanKind(spanKind(rec.Kind)),
		trace.WithAttributes(attrs...),
	)
	switch rec.Status {
	case model.StatusSuccess:
		span.SetStatus(codes.Ok, "")
	case model.StatusFailure:
		span.SetStatus(codes.Error, "")
	}
	span.End(trace.WithTimestamp(rec.End.Time()))
	return nil
}

// Shutdown flushes the batcher (which in turn shuts down the wrapped
// exporter). When no span was exported the exporter is shut down directly.
func (s *sdkSpans) Shutdown(ctx context.Context) error {
	if s.tp != nil {
		return s.tp.Shutdown(ctx)
	}
	return s.exp.Shutdown(ctx)
}

// withRemoteParent attaches the record's parent as a remote sampled span
// context, the cross-process stand-in for an in-flight parent span. A zero
// parent id produces an invalid context and is left off entirely.
func withRemoteParent(ctx context.Context, rec model.Record) context.Context {
	if rec.ParentSpanID == nil {
		return ctx
	}
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(rec.TraceID),
		SpanID:     trace.SpanID(*rec.ParentSpanID),
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	if !parent.IsValid() {
		return ctx
	}
	return trace.ContextWithSpanContext(ctx, parent)
}

func spanKind(k model.Kind) trace.SpanKind {
	if k == model.KindCmd {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

// recordIDGenerator hands the SDK the record's own identifiers. Each
// invocation exports exactly one span, so fixed ids are safe.
type recordIDGenerator struct {
	traceID trace.TraceID
	spanID  trace.SpanID
}

var _ sdktrace.IDGenerator = (*recordIDGenerator)(nil)

func (g *recordIDGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	return g.traceID, g.spanID
}

func (g *recordIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	return g.spanID
}
