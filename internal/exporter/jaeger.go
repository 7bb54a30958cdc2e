package exporter

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/jaeger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tracebuild/tracebuild/internal/config"
)

// newJaegerSpanExporter builds the Jaeger span exporter. A configured
// collector endpoint selects HTTP delivery with optional basic auth;
// otherwise spans go to the agent over UDP.
func newJaegerSpanExporter(cfg config.Config) (sdktrace.SpanExporter, error) {
	if cfg.JaegerEndpoint != "" {
		opts := []jaeger.CollectorEndpointOption{
			jaeger.WithEndpoint(cfg.JaegerEndpoint),
		}
		if cfg.JaegerUser != "" {
			opts = append(opts,
				jaeger.WithUsername(cfg.JaegerUser),
				jaeger.WithPassword(cfg.JaegerPassword),
			)
		}
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(opts...))
		if err != nil {
			return nil, fmt.Errorf("exporter: jaeger collector: %w", err)
		}
		return exp, nil
	}

	var opts []jaeger.AgentEndpointOption
	if cfg.JaegerAgentHost != "" {
		opts = append(opts, jaeger.WithAgentHost(cfg.JaegerAgentHost))
	}
	if cfg.JaegerAgentPort != "" {
		opts = append(opts, jaeger.WithAgentPort(cfg.JaegerAgentPort))
	}
	exp, err := jaeger.New(jaeger.WithAgentEndpoint(opts...))
	if err != nil {
		return nil, fmt.Errorf("exporter: jaeger agent: %w", err)
	}
	return exp, nil
}
