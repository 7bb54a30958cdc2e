package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracebuild/tracebuild/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.TracesOTLP, cfg.TracesExporter)
	assert.Equal(t, config.MetricsNone, cfg.MetricsExporter)
	assert.Equal(t, "tracebuild", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.FlushTimeout)
	assert.Equal(t, config.ProtocolHTTPProto, cfg.OTLPProtocol)
}

func TestLoad_UnknownTracesExporter(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "zipkin")
	_, err := config.Load()
	require.ErrorIs(t, err, config.ErrUnknownExporter)
}

func TestLoad_UnknownMetricsExporter(t *testing.T) {
	t.Setenv("OTEL_METRICS_EXPORTER", "statsd")
	_, err := config.Load()
	require.ErrorIs(t, err, config.ErrUnknownExporter)
}

func TestLoad_UnknownOTLPProtocol(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "thrift")
	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_SelectsJaegerAndPrometheus(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "jaeger")
	t.Setenv("OTEL_METRICS_EXPORTER", "prometheus")
	t.Setenv("OTEL_EXPORTER_JAEGER_AGENT_HOST", "jaeger.internal")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.TracesJaeger, cfg.TracesExporter)
	assert.Equal(t, config.MetricsPrometheus, cfg.MetricsExporter)
	assert.Equal(t, "jaeger.internal", cfg.JaegerAgentHost)
}

func TestTracesEndpoint_PerSignalOverride(t *testing.T) {
	cfg := config.Config{OTLPEndpoint: "shared:4317"}
	assert.Equal(t, "shared:4317", cfg.TracesEndpoint())
	assert.Equal(t, "shared:4317", cfg.MetricsEndpoint())

	cfg.OTLPTracesEndpoint = "traces:4318"
	cfg.OTLPMetricsEndpoint = "metrics:4318"
	assert.Equal(t, "traces:4318", cfg.TracesEndpoint())
	assert.Equal(t, "metrics:4318", cfg.MetricsEndpoint())
}

func TestPushgatewayURL(t *testing.T) {
	cfg := config.Config{PushgatewayHost: "gateway.internal", PushgatewayPort: "9091"}
	assert.Equal(t, "http://gateway.internal:9091", cfg.PushgatewayURL())
}
