package exporter

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tracebuild/tracebuild/internal/config"
	"github.com/tracebuild/tracebuild/internal/model"
)

// pushJobName groups every tracebuild invocation's samples under one
// gateway job.
const pushJobName = "tracebuild"

// promMetrics accumulates duration observations in a private registry and
// pushes them to the gateway in one blocking POST at shutdown. A push
// gateway is used because the process is gone long before any scraper
// would come around.
type promMetrics struct {
	pushURL string
	client  *http.Client
	reg     *prometheus.Registry
	hists   map[string]*prometheus.HistogramVec
	dirty   bool
}

func newPrometheusMetrics(cfg config.Config) *promMetrics {
	return &promMetrics{
		pushURL: cfg.PushgatewayURL(),
		client:  &http.Client{Timeout: otlpTimeout},
		reg:     prometheus.NewRegistry(),
		hists:   make(map[string]*prometheus.HistogramVec),
	}
}

func (p *promMetrics) ExportMetric(_ context.Context, sample model.MetricSample) error {
	name := sanitizeKey(sample.Name)

	labelNames := make([]string, 0, len(sample.Labels))
	labels := make(prometheus.Labels, len(sample.Labels))
	for k, v := range sample.Labels {
		sk := sanitizeKey(k)
		labelNames = append(labelNames, sk)
		labels[sk] = v
	}
	sort.Strings(labelNames)

	hv, ok := p.hists[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    "build operation duration in seconds",
			Buckets: durationBucketsSeconds,
		}, labelNames)
		if err := p.reg.Register(hv); err != nil {
			return fmt.Errorf("exporter: register %s: %w", name, err)
		}
		p.hists[name] = hv
	}

	obs, err := hv.GetMetricWith(labels)
	if err != nil {
		return fmt.Errorf("exporter: observe %s: %w", name, err)
	}
	obs.Observe(sample.Value)
	p.dirty = true
	return nil
}

// Shutdown pushes the accumulated samples. Add (POST) rather than Push
// (PUT) so concurrent build processes reporting under the same job don't
// clobber each other's metric groups.
func (p *promMetrics) Shutdown(ctx context.Context) error {
	if !p.dirty {
		return nil
	}
	err := push.New(p.pushURL, pushJobName).
		Gatherer(p.reg).
		Client(p.client).
		AddContext(ctx)
	if err != nil {
		return fmt.Errorf("exporter: push to gateway: %w", err)
	}
	return nil
}

// sanitizeKey maps a metric or label name onto the gateway's accepted
// character set: non-alphanumerics become underscores, names starting with
// a digit or underscore get a "key" guard prefix, and the result is capped
// at 100 characters.
func sanitizeKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	s := b.String()
	switch {
	case s == "":
	case s[0] >= '0' && s[0] <= '9':
		s = "key_" + s
	case s[0] == '_':
		s = "key" + s
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
