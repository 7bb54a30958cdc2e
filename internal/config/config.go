// Package config loads and validates exporter configuration from environment
// variables. Endpoints and credentials arrive here already validated by the
// surrounding CI environment; this package only selects backends and carries
// the values through as opaque input.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrUnknownExporter reports an exporter name outside the supported set. It
// is fatal at startup, before any child process runs.
var ErrUnknownExporter = errors.New("config: unknown exporter")

// Exporter names accepted for OTEL_TRACES_EXPORTER / OTEL_METRICS_EXPORTER.
const (
	TracesOTLP   = "otlp"
	TracesJaeger = "jaeger"
	TracesNone   = "none"

	MetricsOTLP       = "otlp"
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

// OTLP transport protocols.
const (
	ProtocolGRPC      = "grpc"
	ProtocolHTTPProto = "http/protobuf"
)

// Config holds all exporter selection and delivery settings.
type Config struct {
	// Backend selection. Exactly one trace and one metrics backend are
	// active per invocation.
	TracesExporter  string
	MetricsExporter string

	// Shared settings.
	ServiceName  string
	FlushTimeout time.Duration // bound on the final blocking flush
	LogLevel     string

	// OTLP settings.
	OTLPEndpoint        string // fallback for both signals
	OTLPTracesEndpoint  string
	OTLPMetricsEndpoint string
	OTLPProtocol        string // "grpc" or "http/protobuf"
	OTLPInsecure        bool

	// Jaeger settings. An agent host selects UDP-agent delivery; a collector
	// endpoint selects HTTP with optional basic auth.
	JaegerAgentHost string
	JaegerAgentPort string
	JaegerEndpoint  string
	JaegerUser      string
	JaegerPassword  string

	// Prometheus push gateway settings.
	PushgatewayHost string
	PushgatewayPort string
}

// Load reads configuration from environment variables. Defaults: OTLP
// traces on, metrics off.
func Load() (Config, error) {
	cfg := Config{
		TracesExporter:      envStr("OTEL_TRACES_EXPORTER", TracesOTLP),
		MetricsExporter:     envStr("OTEL_METRICS_EXPORTER", MetricsNone),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "tracebuild"),
		FlushTimeout:        envDuration("TRACEBUILD_FLUSH_TIMEOUT", 5*time.Second),
		LogLevel:            envStr("TRACEBUILD_LOG_LEVEL", "info"),
		OTLPEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPTracesEndpoint:  envStr("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ""),
		OTLPMetricsEndpoint: envStr("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ""),
		OTLPProtocol:        envStr("OTEL_EXPORTER_OTLP_PROTOCOL", ProtocolHTTPProto),
		OTLPInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		JaegerAgentHost:     envStr("OTEL_EXPORTER_JAEGER_AGENT_HOST", ""),
		JaegerAgentPort:     envStr("OTEL_EXPORTER_JAEGER_AGENT_PORT", "6831"),
		JaegerEndpoint:      envStr("OTEL_EXPORTER_JAEGER_ENDPOINT", ""),
		JaegerUser:          envStr("OTEL_EXPORTER_JAEGER_USER", ""),
		JaegerPassword:      envStr("OTEL_EXPORTER_JAEGER_PASSWORD", ""),
		PushgatewayHost:     envStr("OTEL_EXPORTER_PROMETHEUS_HOST", "0.0.0.0"),
		PushgatewayPort:     envStr("OTEL_EXPORTER_PROMETHEUS_PORT", "9464"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the backend selections before anything else runs.
func (c Config) Validate() error {
	switch c.TracesExporter {
	case TracesOTLP, TracesJaeger, TracesNone:
	default:
		return fmt.Errorf("%w %q for traces; supported are: otlp, jaeger, none", ErrUnknownExporter, c.TracesExporter)
	}
	switch c.MetricsExporter {
	case MetricsOTLP, MetricsPrometheus, MetricsNone:
	default:
		return fmt.Errorf("%w %q for metrics; supported are: otlp, prometheus, none", ErrUnknownExporter, c.MetricsExporter)
	}
	switch c.OTLPProtocol {
	case ProtocolGRPC, ProtocolHTTPProto:
	default:
		return fmt.Errorf("config: unknown OTLP protocol %q; supported are: grpc, http/protobuf", c.OTLPProtocol)
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("config: TRACEBUILD_FLUSH_TIMEOUT must be positive")
	}
	return nil
}

// TracesEndpoint returns the per-signal OTLP endpoint, falling back to the
// shared one.
func (c Config) TracesEndpoint() string {
	if c.OTLPTracesEndpoint != "" {
		return c.OTLPTracesEndpoint
	}
	return c.OTLPEndpoint
}

// MetricsEndpoint returns the per-signal OTLP endpoint, falling back to the
// shared one.
func (c Config) MetricsEndpoint() string {
	if c.OTLPMetricsEndpoint != "" {
		return c.OTLPMetricsEndpoint
	}
	return c.OTLPEndpoint
}

// PushgatewayURL returns the job-scoped push URL for duration histograms.
func (c Config) PushgatewayURL() string {
	return fmt.Sprintf("http://%s:%s", c.PushgatewayHost, c.PushgatewayPort)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
