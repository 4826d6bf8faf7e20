// Package prom implements the observability hooks with Prometheus collectors.
//
// A single [Metrics] value satisfies every hook interface, so hosts register it
// once per category:
//
//	m := prom.New(prometheus.DefaultRegisterer)
//	observability.SetLayoutHooks(m)
//	observability.SetCacheHooks(m)
//	observability.SetRenderHooks(m)
//	observability.SetHTTPHooks(m)
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/codeflow/pkg/observability"
)

// Metrics holds the collectors backing the hook implementations.
type Metrics struct {
	layoutTotal    *prometheus.CounterVec
	layoutDuration prometheus.Histogram
	layoutNodes    prometheus.Histogram

	cacheOps   *prometheus.CounterVec
	cacheBytes *prometheus.CounterVec

	renderFrames   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	renderDegraded *prometheus.CounterVec
	renderReleased *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight *prometheus.GaugeVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		layoutTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_layout_total",
			Help: "Layouts computed by result (layered or fallback)",
		}, []string{"result"}),
		layoutDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeflow_layout_duration_seconds",
			Help:    "Layout computation time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),
		layoutNodes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeflow_layout_nodes",
			Help:    "Number of nodes per laid out snapshot",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		}),

		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_cache_operations_total",
			Help: "Cache lookups and writes by key type and outcome",
		}, []string{"key_type", "op"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"key_type"}),

		renderFrames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_render_frames_total",
			Help: "Frames rendered by mode",
		}, []string{"mode"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeflow_render_frame_duration_seconds",
			Help:    "Frame render time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}, []string{"mode"}),
		renderDegraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_render_degraded_total",
			Help: "Renderer failures caught by the supervisor",
		}, []string{"mode"}),
		renderReleased: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_render_released_resources_total",
			Help: "Device resources released on teardown",
		}, []string{"mode"}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		httpInflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "codeflow_http_requests_in_flight",
			Help: "Requests currently being served",
		}, []string{"route"}),
	}
}

var (
	_ observability.LayoutHooks = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.RenderHooks = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)

func (m *Metrics) OnLayoutStart(_ context.Context, nodeCount int) {
	m.layoutNodes.Observe(float64(nodeCount))
}

func (m *Metrics) OnLayoutComplete(_ context.Context, _ int, fallback bool, d time.Duration) {
	result := "layered"
	if fallback {
		result = "fallback"
	}
	m.layoutTotal.WithLabelValues(result).Inc()
	m.layoutDuration.Observe(d.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheOps.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnFrame(_ context.Context, mode string, d time.Duration) {
	m.renderFrames.WithLabelValues(mode).Inc()
	m.renderDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) OnDegraded(_ context.Context, mode string, _ error) {
	m.renderDegraded.WithLabelValues(mode).Inc()
}

func (m *Metrics) OnRelease(_ context.Context, mode string, count int) {
	m.renderReleased.WithLabelValues(mode).Add(float64(count))
}

func (m *Metrics) OnRequest(_ context.Context, _, route string) {
	m.httpInflight.WithLabelValues(route).Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.httpInflight.WithLabelValues(route).Dec()
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
