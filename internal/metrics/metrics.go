package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route pattern, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// GraphRebuilds counts snapshot rebuilds per source key
	GraphRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evana_graph_rebuilds_total", Help: "Route graph rebuilds by source key."},
		[]string{"source"},
	)
	// GraphRebuildDuration is the time to load containers and build the graph
	GraphRebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "evana_graph_rebuild_seconds", Help: "Route graph rebuild duration in seconds.", Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}},
		[]string{"source"},
	)
	// CacheHits counts requests served from an unchanged snapshot
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evana_graph_cache_hits_total", Help: "Graph lookups answered by the cached snapshot."},
		[]string{"source"},
	)
	// SignatureDuration is the per-request cost of the freshness check
	SignatureDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "evana_signature_seconds", Help: "Source signature computation time in seconds.", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1}},
	)
	// GraphNodes reports the node count of the current snapshot per key
	GraphNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "evana_graph_nodes", Help: "Nodes in the current graph snapshot."},
		[]string{"source"},
	)
	// AdapterSkips counts unreadable files and rows
	AdapterSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evana_adapter_skips_total", Help: "Files or rows skipped by source adapters."},
		[]string{"adapter"},
	)
	// GeometryResolved counts geometry lookups by the tier that answered
	GeometryResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evana_geometry_resolved_total", Help: "Geometry lookups by answering tier (none when not found)."},
		[]string{"tier"},
	)
	// EventsPublished counts source events handed to the broker
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evana_events_published_total", Help: "Source events published by type."},
		[]string{"type"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(GraphRebuilds)
		Registry.MustRegister(GraphRebuildDuration)
		Registry.MustRegister(CacheHits)
		Registry.MustRegister(SignatureDuration)
		Registry.MustRegister(GraphNodes)
		Registry.MustRegister(AdapterSkips)
		Registry.MustRegister(GeometryResolved)
		Registry.MustRegister(EventsPublished)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// SkipCounter adapts AdapterSkips to the loader's skip hook.
func SkipCounter(adapter string) { AdapterSkips.WithLabelValues(adapter).Inc() }

var regOnce sync.Once
